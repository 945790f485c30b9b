package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/models"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
)

// Resolver turns session cookies into an Identity. It never contacts the identity
// provider; the staleness window is the session TTL.
type Resolver struct {
	db     *gorm.DB
	tokens *TokenService
}

// NewResolver constructs a Resolver.
func NewResolver(db *gorm.DB, tokens *TokenService) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("resolver: db is required")
	}
	if tokens == nil {
		return nil, errors.New("resolver: token service is required")
	}
	return &Resolver{db: db, tokens: tokens}, nil
}

// Resolve reads the access token and email hint from req. A missing or mismatched artifact
// or an unknown or inactive account is Unauthenticated; a failed lookup is BackendUnavailable.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (Identity, error) {
	token := cookieValue(req, AccessTokenCookie)
	hint := strings.ToLower(cookieValue(req, EmailCookie))
	if token == "" || hint == "" {
		return Identity{}, apperrors.ErrUnauthorized
	}

	claims, err := r.tokens.ParseSession(token)
	if err != nil {
		return Identity{}, apperrors.ErrUnauthorized.WithInternal(err)
	}
	if !strings.EqualFold(claims.Email, hint) {
		return Identity{}, apperrors.ErrUnauthorized
	}

	var account models.Account
	err = r.db.WithContext(ctx).Where("email = ?", hint).Take(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Identity{}, apperrors.ErrUnauthorized
	case err != nil:
		logger.WithModule("auth").Error("identity lookup failed", zap.Error(err))
		return Identity{}, apperrors.Backend(err)
	}

	if account.ID != claims.Subject || !account.IsActive {
		return Identity{}, apperrors.ErrUnauthorized
	}

	return IdentityFromAccount(&account), nil
}

func cookieValue(req *http.Request, name string) string {
	if req == nil {
		return ""
	}
	cookie, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
