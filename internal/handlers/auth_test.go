package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/handlers/testutil"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
)

type mePayload struct {
	User struct {
		ID       string  `json:"id"`
		Email    string  `json:"email"`
		Role     string  `json:"role"`
		TenantID *string `json:"tenantId"`
	} `json:"user"`
	Pages              []string       `json:"pages"`
	IssuableRoles      []string       `json:"issuableRoles"`
	Barangay           *models.Tenant `json:"barangay"`
	BarangayConfigured bool           `json:"barangayConfigured"`
}

func sessionCookies(t *testing.T, w *httptest.ResponseRecorder) []*http.Cookie {
	t.Helper()
	var out []*http.Cookie
	for _, cookie := range w.Result().Cookies() {
		switch cookie.Name {
		case auth.AccessTokenCookie, auth.EmailCookie, auth.RoleCookie:
			if cookie.MaxAge >= 0 && cookie.Value != "" {
				out = append(out, cookie)
			}
		}
	}
	return out
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func me(t *testing.T, env *testutil.Env, cookies []*http.Cookie) mePayload {
	t.Helper()
	w := env.Request(http.MethodGet, "/api/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var payload mePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &payload)
	return payload
}

func TestSetupStatus(t *testing.T) {
	env := testutil.NewEnv(t)

	status := func() bool {
		w := env.Request(http.MethodGet, "/api/setup/status", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var data map[string]bool
		testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &data)
		return data["firstAccount"]
	}

	require.True(t, status())
	env.CreateAccount("admin@example.com", permissions.RoleSuperadmin, nil)
	require.False(t, status())
}

func TestSignInBootstrapsSuperadmin(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.SignIn(auth.Profile{Email: "Admin@Example.com", SubjectID: "sub-1", DisplayName: "Ada Admin"}, "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))

	cookies := sessionCookies(t, w)
	require.Len(t, cookies, 3)
	require.Equal(t, "admin@example.com", cookieValue(cookies, auth.EmailCookie))
	require.Equal(t, "superadmin", cookieValue(cookies, auth.RoleCookie))

	payload := me(t, env, cookies)
	require.Equal(t, "superadmin", payload.User.Role)
	require.Nil(t, payload.User.TenantID)
	require.Contains(t, payload.Pages, string(permissions.PageBarangays))
	require.Equal(t, []string{"barangay_captain"}, payload.IssuableRoles)
	require.Nil(t, payload.Barangay)
}

func TestSignInRequiresInvitationAfterBootstrap(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateAccount("admin@example.com", permissions.RoleSuperadmin, nil)

	w := env.SignIn(auth.Profile{Email: "stranger@example.com"}, "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/login?error=invitation_required", w.Header().Get("Location"))
	require.Empty(t, sessionCookies(t, w))
}

func TestSignInWithCaptainInvitation(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateAccount("admin@example.com", permissions.RoleSuperadmin, nil)

	issued := env.Request(http.MethodPost, "/api/invitations", map[string]any{
		"email": "juan@example.com",
		"role":  "barangay_captain",
	}, env.SessionFor(admin))
	require.Equal(t, http.StatusCreated, issued.Code, issued.Body.String())
	var invitation models.Invitation
	testutil.DecodeInto(t, testutil.DecodeResponse(t, issued).Data, &invitation)
	require.Len(t, invitation.Code, 6)

	w := env.SignIn(auth.Profile{Email: "juan@example.com", DisplayName: "Juan Dela Cruz"}, invitation.Code)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))

	payload := me(t, env, sessionCookies(t, w))
	require.Equal(t, "barangay_captain", payload.User.Role)
	require.NotNil(t, payload.User.TenantID)
	require.NotNil(t, payload.Barangay)
	require.Equal(t, "Juan's Barangay", payload.Barangay.Name)
	require.False(t, payload.BarangayConfigured)

	replay := env.SignIn(auth.Profile{Email: "other@example.com"}, invitation.Code)
	require.Equal(t, "/login?error=invitation_already_used", replay.Header().Get("Location"))
}

func TestLoginRedirectsToProvider(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/auth/login?invitation=123456", nil, nil)
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "idp.example.com", location.Host)
	require.NotEmpty(t, location.Query().Get("nonce"))

	state := testutil.CookiesNamed(w, auth.StateCookie)
	require.Len(t, state, 1)
	require.True(t, state[0].HttpOnly)
	require.Equal(t, location.Query().Get("state"), state[0].Value)

	claims, err := env.Tokens.ParseState(state[0].Value)
	require.NoError(t, err)
	require.Equal(t, "123456", claims.InvitationCode)
	require.Equal(t, location.Query().Get("nonce"), claims.Nonce)
}

func TestLoginRejectsMalformedInvitation(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/auth/login?invitation=12ab", nil, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/login?error=bad_request", w.Header().Get("Location"))
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/auth/callback?state=forged&code=abc", nil, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/login?error=unauthorized", w.Header().Get("Location"))

	w = env.Request(http.MethodGet, "/api/auth/callback?error=access_denied", nil, nil)
	require.Equal(t, "/login?error=unauthorized", w.Header().Get("Location"))
}

func TestCallbackReportsProviderOutage(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Provider.Err = errors.New("idp unreachable")

	w := env.SignIn(auth.Profile{Email: "admin@example.com"}, "")
	require.Equal(t, "/login?error=backend_unavailable", w.Header().Get("Location"))
	require.Empty(t, sessionCookies(t, w))
}

func TestSignInRejectsDisabledAccount(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateAccount("admin@example.com", permissions.RoleSuperadmin, nil)
	disabled := env.CreateAccount("gone@example.com", permissions.RoleStaff, env.CreateTenant("San Roque", true))
	require.NoError(t, env.DB.Model(disabled).Update("is_active", false).Error)

	w := env.SignIn(auth.Profile{Email: "gone@example.com"}, "")
	require.Equal(t, "/login?error=account_disabled", w.Header().Get("Location"))
}

func TestMeRequiresSession(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/auth/me", nil, nil)
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	admin := env.CreateAccount("admin@example.com", permissions.RoleSuperadmin, nil)
	cookies := env.SessionFor(admin)
	for _, cookie := range cookies {
		if cookie.Name == auth.EmailCookie {
			cookie.Value = "someone-else@example.com"
		}
	}
	w = env.Request(http.MethodGet, "/api/auth/me", nil, cookies)
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestMeUsesStoredRoleNotCookie(t *testing.T) {
	env := testutil.NewEnv(t)
	tenant := env.CreateTenant("San Roque", true)
	staff := env.CreateAccount("staff@example.com", permissions.RoleStaff, tenant)

	cookies := env.SessionFor(staff)
	for _, cookie := range cookies {
		if cookie.Name == auth.RoleCookie {
			cookie.Value = "superadmin"
		}
	}

	payload := me(t, env, cookies)
	require.Equal(t, "staff", payload.User.Role)
	require.True(t, payload.BarangayConfigured)
	require.Equal(t, "San Roque", payload.Barangay.Name)
	require.NotContains(t, payload.Pages, string(permissions.PageUsers))

	w := env.Request(http.MethodGet, "/api/barangays", nil, cookies)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")
}

func TestLogoutClearsSession(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateAccount("admin@example.com", permissions.RoleSuperadmin, nil)

	w := env.Request(http.MethodPost, "/api/auth/logout", nil, env.SessionFor(admin))
	require.Equal(t, http.StatusOK, w.Code)

	tokens := testutil.CookiesNamed(w, auth.AccessTokenCookie)
	require.NotEmpty(t, tokens)
	last := tokens[len(tokens)-1]
	require.Empty(t, last.Value)
	require.Less(t, last.MaxAge, 0)
}
