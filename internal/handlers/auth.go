package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
	"github.com/charlesng35/barangay/internal/services"
	appErrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/metrics"
	"github.com/charlesng35/barangay/pkg/response"
	appValidator "github.com/charlesng35/barangay/pkg/validator"
)

const (
	defaultSuccessRedirect = "/dashboard"
	defaultFailureRedirect = "/login"
)

// AuthRedirects are the SPA pages a finished provider round-trip lands on.
type AuthRedirects struct {
	Success string
	Failure string
}

type AuthHandler struct {
	provider  auth.IdentityProvider
	tokens    *auth.TokenService
	accounts  *services.AccountService
	tenants   *services.TenantService
	cookies   auth.CookieSettings
	redirects AuthRedirects
}

func NewAuthHandler(
	provider auth.IdentityProvider,
	tokens *auth.TokenService,
	accounts *services.AccountService,
	tenants *services.TenantService,
	cookies auth.CookieSettings,
	redirects AuthRedirects,
) *AuthHandler {
	redirects.Success = sanitizeRedirect(redirects.Success, defaultSuccessRedirect)
	redirects.Failure = sanitizeRedirect(redirects.Failure, defaultFailureRedirect)
	return &AuthHandler{
		provider:  provider,
		tokens:    tokens,
		accounts:  accounts,
		tenants:   tenants,
		cookies:   cookies,
		redirects: redirects,
	}
}

type meResponse struct {
	User               auth.Identity      `json:"user"`
	Pages              []permissions.Page `json:"pages"`
	IssuableRoles      []permissions.Role `json:"issuableRoles"`
	Barangay           *models.Tenant     `json:"barangay"`
	BarangayConfigured bool               `json:"barangayConfigured"`
}

// GET /api/auth/login?invitation=CODE
func (h *AuthHandler) Login(c *gin.Context) {
	code := strings.TrimSpace(c.Query("invitation"))
	if code != "" && appValidator.ValidateVar(code, "invitecode") != nil {
		h.fail(c, appErrors.NewBadRequest("invitation must be a 6-digit code"))
		return
	}

	nonce := uuid.NewString()
	state, err := h.tokens.IssueState(code, nonce)
	if err != nil {
		h.fail(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	h.cookies.SetState(c.Writer, state, h.tokens.StateTTL())
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state, nonce))
}

// GET /api/auth/callback
func (h *AuthHandler) Callback(c *gin.Context) {
	h.cookies.ClearState(c.Writer)

	if providerErr := strings.TrimSpace(c.Query("error")); providerErr != "" {
		h.fail(c, appErrors.ErrUnauthorized.WithInternal(errors.New("provider: "+providerErr)))
		return
	}

	state := strings.TrimSpace(c.Query("state"))
	stored, _ := c.Cookie(auth.StateCookie)
	if state == "" || state != stored {
		h.fail(c, appErrors.ErrUnauthorized.WithInternal(errors.New("state mismatch")))
		return
	}
	claims, err := h.tokens.ParseState(state)
	if err != nil {
		h.fail(c, appErrors.ErrUnauthorized.WithInternal(err))
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		h.fail(c, appErrors.NewBadRequest("authorization code is missing"))
		return
	}

	ctx := requestContext(c)
	profile, err := h.provider.Exchange(ctx, code, claims.Nonce)
	if err != nil {
		h.fail(c, appErrors.Backend(err))
		return
	}

	account, err := h.accounts.Sync(ctx, services.SyncInput{Profile: *profile, InvitationCode: claims.InvitationCode})
	if err != nil {
		h.fail(c, err)
		return
	}

	token, err := h.tokens.IssueSession(account.ID, account.Email)
	if err != nil {
		h.fail(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	h.cookies.SetSession(c.Writer, token, account.Email, account.Role)

	metrics.Logins.WithLabelValues("success").Inc()
	c.Redirect(http.StatusSeeOther, h.redirects.Success)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	payload := meResponse{
		User:          identity,
		Pages:         permissions.PagesFor(identity.Role),
		IssuableRoles: permissions.IssuableRoles(identity.Role),
	}
	if _, assigned := identity.Tenant(); assigned {
		tenant, err := h.tenants.Current(requestContext(c), identity)
		if err != nil {
			response.Error(c, err)
			return
		}
		payload.Barangay = tenant
		payload.BarangayConfigured = services.IsConfigured(tenant)
	}
	response.Success(c, http.StatusOK, payload)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookies.ClearSession(c.Writer)
	response.Success(c, http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	metrics.Logins.WithLabelValues("failure").Inc()
	logger.WithModule("auth").Warn("sign-in failed",
		zap.String("code", appErr.Code),
		zap.Error(err),
	)
	redirectWithError(c, h.redirects.Failure, appErr.Code)
}

func sanitizeRedirect(input, fallback string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fallback
	}

	if strings.Contains(trimmed, "\n") || strings.Contains(trimmed, "\r") {
		return fallback
	}

	if strings.HasPrefix(trimmed, "/") && !strings.HasPrefix(trimmed, "//") {
		return trimmed
	}

	return fallback
}

func redirectWithError(c *gin.Context, target, code string) {
	parsed, err := url.Parse(target)
	if err != nil {
		parsed = &url.URL{Path: defaultFailureRedirect}
	}

	q := parsed.Query()
	q.Set("error", strings.ToLower(code))
	parsed.RawQuery = q.Encode()
	c.Redirect(http.StatusSeeOther, parsed.String())
}
