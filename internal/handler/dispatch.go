package handlers

import (
	"MediRoute/internal/dispatch"
	"MediRoute/pkg/response"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) handleEmergencyDispatch(c *gin.Context) {
	var in dispatch.DispatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}
	res, err := h.svc.Emergency(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "emergency dispatched", res)
}

func (h *Handlers) handleDoctorConnect(c *gin.Context) {
	var in dispatch.DispatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}
	res, err := h.svc.DoctorConnect(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "doctor request dispatched", res)
}
