package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"MediRoute/internal/models"
	"MediRoute/pkg/export"
	"MediRoute/pkg/response"

	"github.com/gin-gonic/gin"
)

type StaffForm struct {
	Name      string `json:"name" binding:"required"`
	Role      string `json:"role"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
}

type AdmitForm struct {
	Name    string `json:"name" binding:"required"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	Ailment string `json:"ailment"`
}

type PrescribeForm struct {
	Text      string `json:"text"`
	StaffName string `json:"staffName"`
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.Fail(c, "invalid id", nil)
		return 0, false
	}
	return uint(id), true
}

func (h *Handlers) handleHospitalPrescriptions(c *gin.Context) {
	hospital := models.CurrentUser(c)
	list, err := models.ListHospitalPrescriptions(h.db.WithContext(c.Request.Context()), hospital.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", list)
}

var prescriptionColumns = []export.Column{
	{Header: "Issued At", Width: 20},
	{Header: "Patient", Width: 24},
	{Header: "Prescription", Width: 60},
	{Header: "Staff", Width: 20},
	{Header: "Request ID", Width: 38},
}

func (h *Handlers) handleExportPrescriptions(c *gin.Context) {
	hospital := models.CurrentUser(c)
	list, err := models.ListHospitalPrescriptions(h.db.WithContext(c.Request.Context()), hospital.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows := make([][]any, 0, len(list))
	for _, p := range list {
		var requestID any
		if p.RequestID != nil {
			requestID = *p.RequestID
		}
		rows = append(rows, []any{p.CreatedAt.UTC().Format(time.DateTime), p.PatientName, p.Text, p.StaffName, requestID})
	}
	data, err := export.XLSX("Prescriptions", prescriptionColumns, rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("prescriptions-%s.xlsx", hospital.Code())
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, export.ContentTypeXLSX, data)
}

func (h *Handlers) handleListStaff(c *gin.Context) {
	hospital := models.CurrentUser(c)
	list, err := models.ListStaff(h.db.WithContext(c.Request.Context()), hospital.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", list)
}

func (h *Handlers) handleCreateStaff(c *gin.Context) {
	var form StaffForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, "name is required", nil)
		return
	}
	hospital := models.CurrentUser(c)
	s := &models.Staff{
		HospitalID: hospital.ID,
		Name:       strings.TrimSpace(form.Name),
		Role:       form.Role,
		Specialty:  form.Specialty,
		Phone:      form.Phone,
	}
	if err := models.CreateStaff(h.db.WithContext(c.Request.Context()), s); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "staff created", s)
}

func (h *Handlers) handleDeleteStaff(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	hospital := models.CurrentUser(c)
	if err := models.DeleteStaff(h.db.WithContext(c.Request.Context()), id, hospital.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "staff deleted", nil)
}

func (h *Handlers) handleListPatients(c *gin.Context) {
	hospital := models.CurrentUser(c)
	status := models.AdmissionStatus(strings.ToUpper(c.Query("status")))
	list, err := models.ListPatients(h.db.WithContext(c.Request.Context()), hospital.ID, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", list)
}

func (h *Handlers) handleAdmitPatient(c *gin.Context) {
	var form AdmitForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, "name is required", nil)
		return
	}
	hospital := models.CurrentUser(c)
	p := &models.Patient{
		HospitalID: hospital.ID,
		Name:       strings.TrimSpace(form.Name),
		Age:        form.Age,
		Gender:     form.Gender,
		Ailment:    form.Ailment,
	}
	if err := models.AdmitPatient(h.db.WithContext(c.Request.Context()), p); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "patient admitted", p)
}

func (h *Handlers) handleDischargePatient(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	hospital := models.CurrentUser(c)
	p, err := models.DischargePatient(h.db.WithContext(c.Request.Context()), id, hospital.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "patient discharged", p)
}

func (h *Handlers) handlePrescribePatient(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var form PrescribeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}
	hospital := models.CurrentUser(c)
	p, err := h.svc.PrescribeAdmitted(c.Request.Context(), hospital.ID, id, form.Text, form.StaffName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "prescription issued", p)
}
