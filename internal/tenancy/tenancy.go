// Package tenancy applies the tenant partition to every query and mutation against
// tenant-scoped records.
package tenancy

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/metrics"
)

// Column is the tenant reference column carried by every scoped table.
const Column = "tenant_id"

// Scope restricts db to the identity's tenant. Superadmins see every tenant; any other
// identity without a tenant is rejected before storage is touched.
func Scope(db *gorm.DB, identity auth.Identity) (*gorm.DB, error) {
	if identity.IsSuperadmin() {
		return db, nil
	}
	tenantID, ok := identity.Tenant()
	if !ok {
		return nil, apperrors.ErrTenantNotAssigned
	}
	return db.Where(Column+" = ?", tenantID), nil
}

// Guard loads the tenant reference of the record with id and verifies the identity may
// mutate it. A record in another tenant is reported exactly like a missing one, and an
// identity without a tenant is rejected before storage is touched.
func Guard(ctx context.Context, db *gorm.DB, model any, id string, identity auth.Identity) error {
	tenantID, ok := identity.Tenant()
	if !identity.IsSuperadmin() && !ok {
		return apperrors.ErrTenantNotAssigned
	}
	if strings.TrimSpace(id) == "" {
		return apperrors.ErrNotFound
	}

	var owner struct {
		TenantID *string
	}
	err := db.WithContext(ctx).Model(model).Select(Column).Where("id = ?", id).Take(&owner).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case err != nil:
		return apperrors.Backend(err)
	}

	if identity.IsSuperadmin() {
		return nil
	}
	if owner.TenantID == nil || *owner.TenantID != tenantID {
		resource := resourceName(db, model)
		logger.WithModule("tenancy").Warn("cross-tenant access denied",
			zap.String("resource", resource),
			zap.String("record_id", id),
			zap.String("account_id", identity.AccountID),
			zap.String("tenant_id", tenantID),
		)
		metrics.TenantScopeDenials.WithLabelValues(resource).Inc()
		return apperrors.ErrNotFound
	}
	return nil
}

// CreationTenant returns the tenant a new record must be written to. Tenant-bound
// identities always write to their own tenant and any override is ignored; superadmins
// must name the tenant explicitly.
func CreationTenant(identity auth.Identity, override *string) (string, error) {
	if !identity.IsSuperadmin() {
		tenantID, ok := identity.Tenant()
		if !ok {
			return "", apperrors.ErrTenantNotAssigned
		}
		return tenantID, nil
	}
	if override == nil || strings.TrimSpace(*override) == "" {
		return "", apperrors.ErrTenantNotAssigned.WithMessage("Select the barangay this record belongs to")
	}
	return strings.TrimSpace(*override), nil
}

func resourceName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil || stmt.Schema == nil {
		return "unknown"
	}
	return stmt.Schema.Table
}
