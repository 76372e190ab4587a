package handlers

import (
	"fmt"
	"net/http"

	"MediRoute/internal/dispatch"
	"MediRoute/internal/models"
	"MediRoute/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ResolveForm struct {
	PrescriptionText string `json:"prescriptionText"`
	StaffName        string `json:"staffName"`
}

func (h *Handlers) handleListQueue(c *gin.Context) {
	hospital := models.CurrentUser(c)
	queue, err := h.svc.Queue(c.Request.Context(), hospital.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if queue == nil {
		queue = []models.Request{}
	}
	response.Success(c, "success", queue)
}

func (h *Handlers) handleResolveRequest(c *gin.Context) {
	var form ResolveForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}
	hospital := models.CurrentUser(c)
	p, err := h.svc.Resolve(c.Request.Context(), dispatch.ResolveInput{
		RequestID:        c.Param("id"),
		HospitalID:       hospital.ID,
		PrescriptionText: form.PrescriptionText,
		StaffName:        form.StaffName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "request resolved", p)
}

func (h *Handlers) handleQueueStream(c *gin.Context) {
	hospital := models.CurrentUser(c)
	clientID := fmt.Sprintf("hospital-%d-%s", hospital.ID, uuid.NewString())
	h.hub.Serve(c, clientID, dispatch.HospitalGroup(hospital.ID))
}

func (h *Handlers) handleQueueSocket(c *gin.Context) {
	if h.sockets == nil {
		response.AbortWithStatus(c, http.StatusNotFound, "websocket feed disabled")
		return
	}
	hospital := models.CurrentUser(c)
	connID := fmt.Sprintf("hospital-%d-%s", hospital.ID, uuid.NewString())
	h.sockets.Serve(c, connID, dispatch.HospitalGroup(hospital.ID))
}
