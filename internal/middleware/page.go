package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/barangay/internal/permissions"
	"github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/metrics"
	"github.com/charlesng35/barangay/pkg/response"
)

// RequirePage admits the request only when the caller's role may open page.
func RequirePage(page permissions.Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !permissions.CanAccess(identity.Role, page) {
			metrics.PageChecks.WithLabelValues(string(page), "denied").Inc()
			logger.WithModule("http").Debug("page denied",
				zap.String("account_id", identity.AccountID),
				zap.String("role", identity.Role.String()),
				zap.String("page", string(page)),
			)
			response.Error(c, errors.NewForbidden("Your role does not have access to this page"))
			c.Abort()
			return
		}
		metrics.PageChecks.WithLabelValues(string(page), "allowed").Inc()
		c.Next()
	}
}
