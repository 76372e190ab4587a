package models

import (
	"net/http"
	"strings"

	"MediRoute/pkg/auth"
	"MediRoute/pkg/middleware"
	"MediRoute/pkg/response"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const sessionUserKey = "user_id"

// Login binds the account to the cookie session when one is configured.
func Login(c *gin.Context, acc *Account) error {
	session, ok := defaultSession(c)
	if !ok {
		return nil
	}
	session.Set(sessionUserKey, acc.ID)
	return session.Save()
}

func Logout(c *gin.Context) error {
	session, ok := defaultSession(c)
	if !ok {
		return nil
	}
	session.Delete(sessionUserKey)
	session.Clear()
	return session.Save()
}

func defaultSession(c *gin.Context) (sessions.Session, bool) {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil, false
	}
	return sessions.Default(c), true
}

// AuthRequired resolves the caller from the session cookie or a bearer token
// and aborts with 401 when neither identifies an account.
func AuthRequired(c *gin.Context) {
	if authenticate(c) == nil {
		return
	}
	c.Next()
}

func authenticate(c *gin.Context) *Account {
	if acc := CurrentUser(c); acc != nil {
		return acc
	}
	acc := resolveAccount(c)
	if acc == nil {
		response.AbortWithStatus(c, http.StatusUnauthorized, "authorization required")
		return nil
	}
	c.Set(middleware.UserField, acc)
	return acc
}

// HospitalRequired admits approved hospital accounts only.
func HospitalRequired(c *gin.Context) {
	acc := authenticate(c)
	if acc == nil {
		return
	}
	if !acc.IsHospital() {
		response.AbortWithStatus(c, http.StatusForbidden, "hospital account required")
		return
	}
	if !acc.IsApproved() {
		response.AbortWithStatus(c, http.StatusForbidden, "hospital is pending approval")
		return
	}
	c.Next()
}

func AdminRequired(c *gin.Context) {
	acc := authenticate(c)
	if acc == nil {
		return
	}
	if acc.Role != RoleAdmin {
		response.AbortWithStatus(c, http.StatusForbidden, "admin account required")
		return
	}
	c.Next()
}

func CurrentUser(c *gin.Context) *Account {
	if v, ok := c.Get(middleware.UserField); ok {
		if acc, ok := v.(*Account); ok {
			return acc
		}
	}
	return nil
}

func resolveAccount(c *gin.Context) *Account {
	v, ok := c.Get(middleware.DbField)
	if !ok {
		return nil
	}
	db := v.(*gorm.DB)

	if session, ok := defaultSession(c); ok {
		if id, ok := session.Get(sessionUserKey).(uint); ok && id != 0 {
			if acc, err := GetAccountByID(db, id); err == nil {
				return acc
			}
		}
	}

	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	iv, ok := c.Get(middleware.TokenIssuerField)
	if !ok {
		return nil
	}
	id, _, err := iv.(*auth.TokenIssuer).Parse(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil
	}
	acc, err := GetAccountByID(db, id)
	if err != nil {
		return nil
	}
	return acc
}
