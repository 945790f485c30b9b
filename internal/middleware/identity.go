package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/barangay/internal/auth"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/response"
)

// CtxIdentityKey is the gin context key holding the resolved auth.Identity.
const CtxIdentityKey = "identity"

// IdentityResolver turns the request's session cookies into an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (auth.Identity, error)
}

// SessionIssuer mints a fresh session token for sliding expiry.
type SessionIssuer interface {
	IssueSession(accountID, email string) (string, error)
}

// Identity resolves the caller on every request. On success the identity is placed on
// both the gin context and the request context and the session cookies are re-issued.
// Unauthenticated requests have their session cookies cleared.
func Identity(resolver IdentityResolver, issuer SessionIssuer, cookies auth.CookieSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := resolver.Resolve(c.Request.Context(), c.Request)
		if err != nil {
			if errors.Is(err, apperrors.ErrUnauthorized) {
				cookies.ClearSession(c.Writer)
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxIdentityKey, identity)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), identity))

		if issuer != nil {
			token, err := issuer.IssueSession(identity.AccountID, identity.Email)
			if err != nil {
				logger.WithModule("http").Warn("session not refreshed",
					zap.String("account_id", identity.AccountID),
					zap.Error(err),
				)
			} else {
				cookies.SetSession(c.Writer, token, identity.Email, identity.Role)
			}
		}

		c.Next()
	}
}

// IdentityFrom returns the identity placed by the Identity middleware.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}
