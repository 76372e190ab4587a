package handlers

import (
	"net/http"

	"MediRoute/internal/models"
	"MediRoute/pkg/response"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) handlePatientPrescriptions(c *gin.Context) {
	acc := models.CurrentUser(c)
	if acc.Role != models.RolePatient {
		response.AbortWithStatus(c, http.StatusForbidden, "patient account required")
		return
	}
	list, err := models.ListPatientPrescriptions(h.db.WithContext(c.Request.Context()), acc.DisplayName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", list)
}
