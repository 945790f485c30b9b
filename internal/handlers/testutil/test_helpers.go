package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/api"
	"github.com/charlesng35/barangay/internal/app"
	"github.com/charlesng35/barangay/internal/auth"
	sharedtestutil "github.com/charlesng35/barangay/internal/database/testutil"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/monitoring/checks"
	"github.com/charlesng35/barangay/internal/permissions"
	"github.com/charlesng35/barangay/internal/storage"
	"github.com/charlesng35/barangay/pkg/response"
)

const testSecret = "handler-suite-secret-handler-suite-secret"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Config   *app.Config
	Tokens   *auth.TokenService
	Provider *StubProvider
	Services *api.Services
	Files    afero.Fs
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t)

	cfg := &app.Config{
		Server: app.ServerConfig{
			StorageTimeout: 5 * time.Second,
			RateLimit:      app.RateLimitConfig{Requests: 1000, Window: time.Minute},
		},
		Auth: app.AuthConfig{
			Session: app.SessionSettings{Secret: testSecret, Issuer: "test-suite", TTL: 7 * 24 * time.Hour},
			OIDC:    app.OIDCSettings{SuccessRedirect: "/dashboard", FailureRedirect: "/login"},
		},
		Monitoring: app.MonitoringConfig{
			Health: app.HealthConfig{Enabled: true},
		},
	}

	tokens, err := auth.NewTokenService(cfg.TokenConfig())
	require.NoError(t, err)

	files := afero.NewMemMapFs()
	objects, err := storage.New(files)
	require.NoError(t, err)

	svc, err := api.NewServices(db, objects, nil, cfg)
	require.NoError(t, err)

	provider := NewStubProvider()
	router, err := api.NewRouter(db, cfg, tokens, provider, svc, api.WithHealthChecks(checks.Storage(objects)))
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Config:   cfg,
		Tokens:   tokens,
		Provider: provider,
		Services: svc,
		Files:    files,
	}
}

// CreateTenant inserts a barangay. Unconfigured tenants keep the placeholder location.
func (e *Env) CreateTenant(name string, configured bool) *models.Tenant {
	e.T.Helper()

	tenant := &models.Tenant{Name: name, Municipality: models.PlaceholderValue, Province: models.PlaceholderValue}
	if configured {
		tenant.Municipality = "Quezon City"
		tenant.Province = "Metro Manila"
	}
	require.NoError(e.T, e.DB.Create(tenant).Error)
	return tenant
}

// CreateAccount inserts an active account with the given role and tenant.
func (e *Env) CreateAccount(email string, role permissions.Role, tenant *models.Tenant) *models.Account {
	e.T.Helper()

	account := &models.Account{
		Email:    email,
		Name:     email,
		Role:     role,
		IsActive: true,
	}
	if tenant != nil {
		id := tenant.ID
		account.TenantID = &id
	}
	require.NoError(e.T, e.DB.Create(account).Error)
	return account
}

// SessionFor returns the cookies a browser would hold after signing in as account.
func (e *Env) SessionFor(account *models.Account) []*http.Cookie {
	e.T.Helper()

	token, err := e.Tokens.IssueSession(account.ID, account.Email)
	require.NoError(e.T, err)
	return []*http.Cookie{
		{Name: auth.AccessTokenCookie, Value: token},
		{Name: auth.EmailCookie, Value: account.Email},
		{Name: auth.RoleCookie, Value: account.Role.String()},
	}
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// RequireError asserts an error envelope with the given status and code.
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) APIResponse {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, code, resp.Error.Code)
	return resp
}

// Request executes an HTTP request against the test router, applying JSON encoding and cookies automatically.
func (e *Env) Request(method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, cookies)
}

// Upload posts a multipart form with a single file field named "file".
func (e *Env) Upload(path, fileName string, content []byte, fields map[string]string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(e.T, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(e.T, err)
	_, err = part.Write(content)
	require.NoError(e.T, err)
	require.NoError(e.T, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.serve(req, cookies)
}

// SignIn runs the full provider round-trip: login redirect, then the callback carrying
// the authorization code the stub provider maps to profile.
func (e *Env) SignIn(profile auth.Profile, invitationCode string) *httptest.ResponseRecorder {
	e.T.Helper()

	loginPath := "/api/auth/login"
	if invitationCode != "" {
		loginPath += "?invitation=" + url.QueryEscape(invitationCode)
	}
	login := e.Request(http.MethodGet, loginPath, nil, nil)
	require.Equal(e.T, http.StatusFound, login.Code, login.Body.String())

	location, err := url.Parse(login.Header().Get("Location"))
	require.NoError(e.T, err)
	state := location.Query().Get("state")
	require.NotEmpty(e.T, state)

	code := e.Provider.Register(profile)
	callback := "/api/auth/callback?" + url.Values{"state": {state}, "code": {code}}.Encode()
	return e.Request(http.MethodGet, callback, nil, CookiesNamed(login, auth.StateCookie))
}

func (e *Env) serve(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// CookiesNamed returns the cookies set by a response, filtered by name when names are given.
func CookiesNamed(w *httptest.ResponseRecorder, names ...string) []*http.Cookie {
	all := w.Result().Cookies()
	if len(names) == 0 {
		return all
	}
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	out := make([]*http.Cookie, 0, len(names))
	for _, cookie := range all {
		if _, ok := wanted[cookie.Name]; ok {
			out = append(out, cookie)
		}
	}
	return out
}

// StubProvider is an in-process identity provider. Each registered profile is handed out
// once per authorization code.
type StubProvider struct {
	mu       sync.Mutex
	profiles map[string]auth.Profile
	next     int
	Err      error
}

// NewStubProvider constructs an empty StubProvider.
func NewStubProvider() *StubProvider {
	return &StubProvider{profiles: make(map[string]auth.Profile)}
}

// Register returns an authorization code that exchanges for profile.
func (p *StubProvider) Register(profile auth.Profile) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	code := fmt.Sprintf("code-%d", p.next)
	p.profiles[code] = profile
	return code
}

// AuthCodeURL implements auth.IdentityProvider.
func (p *StubProvider) AuthCodeURL(state, nonce string) string {
	return "https://idp.example.com/authorize?" + url.Values{"state": {state}, "nonce": {nonce}}.Encode()
}

// Exchange implements auth.IdentityProvider.
func (p *StubProvider) Exchange(_ context.Context, code, nonce string) (*auth.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if nonce == "" {
		return nil, errors.New("stub provider: nonce missing")
	}
	profile, ok := p.profiles[code]
	if !ok {
		return nil, errors.New("stub provider: unknown code")
	}
	delete(p.profiles, code)
	return &profile, nil
}
