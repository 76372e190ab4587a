package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DbField          = "_mediroute_db"
	TokenIssuerField = "_mediroute_token_issuer"
	UserField        = "_mediroute_user"
)

// InjectDB makes db available to handlers and auth guards of the group.
func InjectDB(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DbField, db)
		c.Next()
	}
}

// InjectValue stores an arbitrary per-router dependency under key.
func InjectValue(key string, value any) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(key, value)
		c.Next()
	}
}
