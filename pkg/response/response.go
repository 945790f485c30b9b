package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
)

// Response defines the base API payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes list metadata.
type Meta struct {
	Total int64 `json:"total"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// List writes a JSON success response for a collection, including its size.
func List(c *gin.Context, data interface{}, total int64) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Total: total},
	})
}

// Error writes a JSON error response derived from an AppError. Server-side failures are
// logged with their internal cause, which never reaches the client.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logger.WithModule("http").Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", appErr.Code),
			zap.Error(appErr.Internal),
		)
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}
