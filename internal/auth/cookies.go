package auth

import (
	"net/http"
	"time"

	"github.com/charlesng35/barangay/internal/permissions"
)

// Session and login cookie names.
const (
	AccessTokenCookie = "access_token"
	EmailCookie       = "user_email"
	RoleCookie        = "user_role"
	StateCookie       = "oauth_state"
)

// CookieSettings controls how session cookies are written. The role and email cookies are
// readable by client script for display only; the server never trusts them for authorization.
type CookieSettings struct {
	TTL    time.Duration
	Secure bool
	Domain string
}

// SetSession writes the three session cookies with a fresh expiry.
func (c CookieSettings) SetSession(w http.ResponseWriter, token, email string, role permissions.Role) {
	c.set(w, AccessTokenCookie, token, c.ttl(), true)
	c.set(w, EmailCookie, email, c.ttl(), false)
	c.set(w, RoleCookie, role.String(), c.ttl(), false)
}

// ClearSession expires every session cookie.
func (c CookieSettings) ClearSession(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, EmailCookie, RoleCookie} {
		c.set(w, name, "", -1, name == AccessTokenCookie)
	}
}

// SetState stores the OAuth state value for comparison at callback time.
func (c CookieSettings) SetState(w http.ResponseWriter, value string, ttl time.Duration) {
	c.set(w, StateCookie, value, ttl, true)
}

// ClearState expires the OAuth state cookie.
func (c CookieSettings) ClearState(w http.ResponseWriter) {
	c.set(w, StateCookie, "", -1, true)
}

func (c CookieSettings) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultSessionTTL
	}
	return c.TTL
}

func (c CookieSettings) set(w http.ResponseWriter, name, value string, ttl time.Duration, httpOnly bool) {
	maxAge := -1
	if ttl > 0 {
		maxAge = int(ttl / time.Second)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		Secure:   c.Secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	})
}
