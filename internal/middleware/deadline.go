package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// StorageDeadline bounds the work a request may do against storage. Services observe the
// deadline through the request context. A non-positive timeout disables the bound.
func StorageDeadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
