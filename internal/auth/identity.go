package auth

import (
	"context"

	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
)

// Identity is the resolved caller of a request. Role and tenant always come from the stored
// account, never from client-readable cookies.
type Identity struct {
	AccountID string           `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Role      permissions.Role `json:"role"`
	TenantID  *string          `json:"tenantId"`
}

// IdentityFromAccount projects an account onto the request identity.
func IdentityFromAccount(account *models.Account) Identity {
	if account == nil {
		return Identity{}
	}
	identity := Identity{
		AccountID: account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Role:      account.Role,
	}
	if account.TenantID != nil && *account.TenantID != "" {
		tenant := *account.TenantID
		identity.TenantID = &tenant
	}
	return identity
}

// IsSuperadmin reports whether the identity has cross-tenant visibility.
func (i Identity) IsSuperadmin() bool {
	return i.Role == permissions.RoleSuperadmin
}

// Tenant returns the identity's tenant and whether one is assigned.
func (i Identity) Tenant() (string, bool) {
	if i.TenantID == nil || *i.TenantID == "" {
		return "", false
	}
	return *i.TenantID, true
}

type identityKey struct{}

// WithIdentity stores the identity on ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext extracts the identity placed by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
