package handlers

import (
	"MediRoute/internal/models"
	"MediRoute/pkg/logger"
	"MediRoute/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handlers) handlePendingHospitals(c *gin.Context) {
	list, err := models.ListPendingHospitals(h.db.WithContext(c.Request.Context()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", list)
}

// handleApproveHospital approves a pending hospital. Listeners of
// SigHospitalApproved refresh the locator and send the approval mail.
func (h *Handlers) handleApproveHospital(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	acc, err := models.ApproveHospital(h.db.WithContext(c.Request.Context()), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	logger.Info("hospital approved",
		zap.Uint("hospital_id", acc.ID),
		zap.String("code", acc.Code()),
		zap.Uint("admin_id", models.CurrentUser(c).ID))
	response.Success(c, "hospital approved", acc)
}
