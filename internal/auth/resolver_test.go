package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/database/testutil"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

type resolverFixture struct {
	db       *gorm.DB
	tokens   *TokenService
	resolver *Resolver
}

func newResolverFixture(t *testing.T) resolverFixture {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	tokens, err := NewTokenService(TokenConfig{Secret: "resolver-secret"})
	require.NoError(t, err)
	resolver, err := NewResolver(db, tokens)
	require.NoError(t, err)
	return resolverFixture{db: db, tokens: tokens, resolver: resolver}
}

func (f resolverFixture) createAccount(t *testing.T, email string, role permissions.Role, tenantID *string) *models.Account {
	t.Helper()
	account := &models.Account{Email: email, Name: "Test", Role: role, TenantID: tenantID, IsActive: true}
	require.NoError(t, f.db.Create(account).Error)
	return account
}

func requestWithCookies(cookies map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}

func TestResolveReturnsStoredRoleAndTenant(t *testing.T) {
	f := newResolverFixture(t)
	tenantID := "tenant-a"
	account := f.createAccount(t, "sec@example.com", permissions.RoleSecretary, &tenantID)

	token, err := f.tokens.IssueSession(account.ID, account.Email)
	require.NoError(t, err)

	identity, err := f.resolver.Resolve(context.Background(), requestWithCookies(map[string]string{
		AccessTokenCookie: token,
		EmailCookie:       "SEC@example.com",
		RoleCookie:        "superadmin",
	}))
	require.NoError(t, err)
	require.Equal(t, account.ID, identity.AccountID)
	require.Equal(t, permissions.RoleSecretary, identity.Role)
	require.False(t, identity.IsSuperadmin())
	tenant, ok := identity.Tenant()
	require.True(t, ok)
	require.Equal(t, "tenant-a", tenant)
}

func TestResolveMissingArtifactsIsUnauthenticated(t *testing.T) {
	f := newResolverFixture(t)
	account := f.createAccount(t, "sec@example.com", permissions.RoleSecretary, nil)
	token, err := f.tokens.IssueSession(account.ID, account.Email)
	require.NoError(t, err)

	cases := map[string]map[string]string{
		"no cookies":    {},
		"missing hint":  {AccessTokenCookie: token},
		"missing token": {EmailCookie: account.Email},
		"bad token":     {AccessTokenCookie: "garbage", EmailCookie: account.Email},
		"hint mismatch": {AccessTokenCookie: token, EmailCookie: "other@example.com"},
	}
	for name, cookies := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.resolver.Resolve(context.Background(), requestWithCookies(cookies))
			require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		})
	}
}

func TestResolveUnknownOrInactiveAccount(t *testing.T) {
	f := newResolverFixture(t)

	token, err := f.tokens.IssueSession("missing-id", "ghost@example.com")
	require.NoError(t, err)
	_, err = f.resolver.Resolve(context.Background(), requestWithCookies(map[string]string{
		AccessTokenCookie: token,
		EmailCookie:       "ghost@example.com",
	}))
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	account := f.createAccount(t, "off@example.com", permissions.RoleStaff, nil)
	require.NoError(t, f.db.Model(account).Update("is_active", false).Error)
	token, err = f.tokens.IssueSession(account.ID, account.Email)
	require.NoError(t, err)
	_, err = f.resolver.Resolve(context.Background(), requestWithCookies(map[string]string{
		AccessTokenCookie: token,
		EmailCookie:       account.Email,
	}))
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestResolveLookupFailureIsBackendUnavailable(t *testing.T) {
	f := newResolverFixture(t)
	account := f.createAccount(t, "sec@example.com", permissions.RoleSecretary, nil)
	token, err := f.tokens.IssueSession(account.ID, account.Email)
	require.NoError(t, err)

	require.NoError(t, f.db.Migrator().DropTable(&models.Account{}))

	_, err = f.resolver.Resolve(context.Background(), requestWithCookies(map[string]string{
		AccessTokenCookie: token,
		EmailCookie:       account.Email,
	}))
	require.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
}
