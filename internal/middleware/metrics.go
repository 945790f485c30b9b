package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/pkg/metrics"
)

// UnmatchedRoute labels requests no route handled, so scanning unknown paths cannot grow
// the series count.
const UnmatchedRoute = "unmatched"

// Metrics observes latency per route template and counts responses per status class.
// Record ids never reach a label; /api/residents/:id is one series for every resident.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = UnmatchedRoute
		}
		status := c.Writer.Status()
		metrics.APILatency.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		metrics.APIResponses.WithLabelValues(route, statusClass(status)).Inc()
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
