package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/barangay/internal/monitoring"
	appErrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/response"
)

// Health reports readiness from the registered dependency probes.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil {
			response.Success(c, http.StatusOK, monitoring.HealthReport{Success: true, Status: monitoring.StatusUp})
			return
		}

		report := manager.Evaluate(requestContext(c))
		if err := report.Failure(); err != nil {
			logger.WithModule("health").Warn("readiness check failed",
				zap.String("status", string(report.Status)),
				zap.Error(err),
			)
			response.Error(c, appErrors.Backend(err))
			return
		}
		response.Success(c, http.StatusOK, report)
	}
}
