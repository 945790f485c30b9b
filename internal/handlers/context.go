package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/middleware"
	"github.com/charlesng35/barangay/internal/services"
	appErrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentIdentity returns the caller placed by the identity middleware. It writes a 401 and
// returns false when the route was mounted without that middleware.
func currentIdentity(c *gin.Context) (auth.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return auth.Identity{}, false
	}
	return identity, true
}

func listOptions(c *gin.Context) services.ListOptions {
	return services.ListOptions{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	}
}

// parseTimeQuery accepts RFC 3339 timestamps or plain dates. Unparseable values are ignored.
func parseTimeQuery(c *gin.Context, key string) *time.Time {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

func parseBoolQuery(c *gin.Context, key string) *bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "true", "1", "yes":
		value := true
		return &value
	case "false", "0", "no":
		value := false
		return &value
	default:
		return nil
	}
}
