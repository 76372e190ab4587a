package handlers

import (
	"net/http"
	"strings"

	"MediRoute/internal/models"
	"MediRoute/pkg/logger"
	"MediRoute/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegisterForm struct {
	Username    string   `json:"username" binding:"required"`
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=6"`
	Role        string   `json:"role"`
	DisplayName string   `json:"displayName"`
	Phone       string   `json:"phone"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// LoginForm identifier may be a hospital code, an email or a username.
type LoginForm struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h *Handlers) handleRegister(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, "invalid registration form", gin.H{"error": err.Error()})
		return
	}

	role := models.Role(strings.ToUpper(strings.TrimSpace(form.Role)))
	switch role {
	case "":
		role = models.RolePatient
	case models.RolePatient, models.RoleHospital:
	default:
		response.Fail(c, "role must be PATIENT or HOSPITAL", nil)
		return
	}

	acc := &models.Account{
		Username:    form.Username,
		Email:       form.Email,
		Role:        role,
		DisplayName: strings.TrimSpace(form.DisplayName),
		Phone:       form.Phone,
	}
	if role == models.RoleHospital && form.Latitude != nil && form.Longitude != nil {
		acc.Latitude, acc.Longitude = form.Latitude, form.Longitude
	}
	if err := models.CreateAccount(h.db.WithContext(c.Request.Context()), acc, form.Password); err != nil {
		response.Error(c, err)
		return
	}
	logger.Info("account registered", zap.Uint("account_id", acc.ID), zap.String("role", string(acc.Role)))
	response.Created(c, "registered", acc)
}

func (h *Handlers) handleLogin(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, "identifier and password are required", nil)
		return
	}
	acc, err := models.Authenticate(h.db.WithContext(c.Request.Context()), form.Identifier, form.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := models.Login(c, acc); err != nil {
		logger.Warn("save session failed", zap.Error(err))
	}
	token, expiresAt, err := h.tokens.Issue(acc.ID, string(acc.Role))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "login success", gin.H{
		"token":     token,
		"expiresAt": expiresAt,
		"account":   acc,
	})
}

func (h *Handlers) handleLogout(c *gin.Context) {
	if err := models.Logout(c); err != nil {
		logger.Warn("clear session failed", zap.Error(err))
	}
	response.Success(c, "logout success", nil)
}

func (h *Handlers) handleAccountInfo(c *gin.Context) {
	response.Success(c, "success", models.CurrentUser(c))
}

func (h *Handlers) handleUpdateLocation(c *gin.Context) {
	acc := models.CurrentUser(c)
	if !acc.IsHospital() {
		response.AbortWithStatus(c, http.StatusForbidden, "hospital account required")
		return
	}
	var form struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&form); err != nil || form.Latitude == nil || form.Longitude == nil {
		response.Fail(c, "latitude and longitude are required", nil)
		return
	}
	updated, err := models.UpdateHospitalLocation(h.db.WithContext(c.Request.Context()), acc.ID, *form.Latitude, *form.Longitude)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "location updated", updated)
}
