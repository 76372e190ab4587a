package response

import (
	"net/http"

	apperrors "MediRoute/pkg/errors"
	"MediRoute/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Body is the envelope every JSON endpoint answers with.
type Body struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func JSON(c *gin.Context, status int, msg string, data interface{}) {
	c.JSON(status, Body{Code: status, Msg: msg, Data: data})
}

func Success(c *gin.Context, msg string, data interface{}) {
	JSON(c, http.StatusOK, msg, data)
}

func Created(c *gin.Context, msg string, data interface{}) {
	JSON(c, http.StatusCreated, msg, data)
}

// Fail answers 400 with msg.
func Fail(c *gin.Context, msg string, data interface{}) {
	JSON(c, http.StatusBadRequest, msg, data)
}

// AbortWithStatus aborts the chain with a short message.
func AbortWithStatus(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Body{Code: status, Msg: msg})
}

// Error answers with the status carried by err. Unclassified errors are
// logged and reported as a generic 500 so storage details do not leak.
func Error(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError && apperrors.GetCode(err) == 0 {
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		AbortWithStatus(c, status, "internal server error")
		return
	}
	AbortWithStatus(c, status, apperrors.GetMessage(err))
}
