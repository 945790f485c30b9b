package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/permissions"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

type stubResolver struct {
	identity auth.Identity
	err      error
}

func (s stubResolver) Resolve(context.Context, *http.Request) (auth.Identity, error) {
	return s.identity, s.err
}

type stubIssuer struct {
	token string
	err   error
}

func (s stubIssuer) IssueSession(string, string) (string, error) { return s.token, s.err }

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestIdentityMiddlewareResolvesAndRefreshes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tenantID := "tenant-1"
	identity := auth.Identity{AccountID: "acct-1", Email: "cap@example.com", Role: permissions.RoleBarangayCaptain, TenantID: &tenantID}
	settings := auth.CookieSettings{TTL: 7 * 24 * time.Hour}

	r := gin.New()
	r.Use(Identity(stubResolver{identity: identity}, stubIssuer{token: "fresh-token"}, settings))
	r.GET("/me", func(c *gin.Context) {
		fromGin, ok := IdentityFrom(c)
		require.True(t, ok)
		fromCtx, ok := auth.IdentityFromContext(c.Request.Context())
		require.True(t, ok)
		require.Equal(t, fromGin, fromCtx)
		c.String(http.StatusOK, fromGin.AccountID)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "acct-1", w.Body.String())

	cookies := cookiesByName(w)
	require.Equal(t, "fresh-token", cookies[auth.AccessTokenCookie].Value)
	require.Equal(t, 7*24*60*60, cookies[auth.AccessTokenCookie].MaxAge)
	require.Equal(t, "cap@example.com", cookies[auth.EmailCookie].Value)
	require.Equal(t, string(permissions.RoleBarangayCaptain), cookies[auth.RoleCookie].Value)
}

func TestIdentityMiddlewareKeepsSessionWhenRefreshFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	identity := auth.Identity{AccountID: "acct-1", Email: "cap@example.com", Role: permissions.RoleSuperadmin}

	r := gin.New()
	r.Use(Identity(stubResolver{identity: identity}, stubIssuer{err: errors.New("signing failed")}, auth.CookieSettings{}))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Result().Cookies())
}

func TestIdentityMiddlewareRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		err     error
		status  int
		cleared bool
	}{
		{"unauthenticated", apperrors.ErrUnauthorized, http.StatusUnauthorized, true},
		{"backend", apperrors.Backend(errors.New("db down")), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reached := false
			r := gin.New()
			r.Use(Identity(stubResolver{err: tc.err}, stubIssuer{token: "x"}, auth.CookieSettings{}))
			r.GET("/me", func(c *gin.Context) { reached = true })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

			require.Equal(t, tc.status, w.Code)
			require.False(t, reached)
			cookies := cookiesByName(w)
			if tc.cleared {
				require.Equal(t, -1, cookies[auth.AccessTokenCookie].MaxAge)
			} else {
				require.Empty(t, cookies)
			}
		})
	}
}
