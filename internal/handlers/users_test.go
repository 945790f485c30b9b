package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/barangay/internal/handlers/testutil"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
)

func TestUserListIsTenantScoped(t *testing.T) {
	env := testutil.NewEnv(t)
	tenant := env.CreateTenant("San Roque", true)
	other := env.CreateTenant("Santa Cruz", true)
	captain := env.CreateAccount("captain@example.com", permissions.RoleBarangayCaptain, tenant)
	env.CreateAccount("staff@example.com", permissions.RoleStaff, tenant)
	env.CreateAccount("outsider@example.com", permissions.RoleStaff, other)
	admin := env.CreateAccount("admin@example.com", permissions.RoleSuperadmin, nil)

	w := env.Request(http.MethodGet, "/api/users", nil, env.SessionFor(captain))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, int64(2), resp.Meta.Total)
	var accounts []models.Account
	testutil.DecodeInto(t, resp.Data, &accounts)
	for _, account := range accounts {
		require.Equal(t, tenant.ID, *account.TenantID)
	}

	w = env.Request(http.MethodGet, "/api/users?role=staff", nil, env.SessionFor(admin))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(2), testutil.DecodeResponse(t, w).Meta.Total)
}

func TestUserActivation(t *testing.T) {
	env := testutil.NewEnv(t)
	tenant := env.CreateTenant("San Roque", true)
	captain := env.CreateAccount("captain@example.com", permissions.RoleBarangayCaptain, tenant)
	secretary := env.CreateAccount("secretary@example.com", permissions.RoleSecretary, tenant)
	staff := env.CreateAccount("staff@example.com", permissions.RoleStaff, tenant)
	outsider := env.CreateAccount("outsider@example.com", permissions.RoleStaff, env.CreateTenant("Santa Cruz", true))

	staffSession := env.SessionFor(staff)
	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/api/auth/me", nil, staffSession).Code)

	w := env.Request(http.MethodPost, "/api/users/"+staff.ID+"/deactivate", nil, env.SessionFor(secretary))
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodPost, "/api/users/"+captain.ID+"/deactivate", nil, env.SessionFor(captain))
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	w = env.Request(http.MethodPost, "/api/users/"+outsider.ID+"/deactivate", nil, env.SessionFor(captain))
	testutil.RequireError(t, w, http.StatusNotFound, "NOT_FOUND")

	w = env.Request(http.MethodPost, "/api/users/"+staff.ID+"/deactivate", nil, env.SessionFor(captain))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Account
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
	require.False(t, updated.IsActive)

	w = env.Request(http.MethodGet, "/api/auth/me", nil, staffSession)
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	w = env.Request(http.MethodPost, "/api/users/"+staff.ID+"/activate", nil, env.SessionFor(captain))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/api/auth/me", nil, staffSession).Code)
}
