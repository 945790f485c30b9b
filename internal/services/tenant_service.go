package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
)

// TenantInput carries the editable barangay profile fields.
type TenantInput struct {
	Name          string `json:"name" validate:"required,notblank,max=255"`
	Municipality  string `json:"municipality" validate:"omitempty,max=255"`
	Province      string `json:"province" validate:"omitempty,max=255"`
	Region        string `json:"region" validate:"omitempty,max=255"`
	Address       string `json:"address" validate:"omitempty,max=512"`
	ContactNumber string `json:"contactNumber" validate:"omitempty,max=64"`
	Email         string `json:"email" validate:"omitempty,email,max=320"`
	CaptainName   string `json:"captainName" validate:"omitempty,max=255"`
}

func (in TenantInput) normalised() TenantInput {
	return TenantInput{
		Name:          strings.TrimSpace(in.Name),
		Municipality:  strings.TrimSpace(in.Municipality),
		Province:      strings.TrimSpace(in.Province),
		Region:        strings.TrimSpace(in.Region),
		Address:       strings.TrimSpace(in.Address),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		CaptainName:   strings.TrimSpace(in.CaptainName),
	}
}

func (in TenantInput) columns() map[string]any {
	return map[string]any{
		"name":           in.Name,
		"municipality":   in.Municipality,
		"province":       in.Province,
		"region":         in.Region,
		"address":        in.Address,
		"contact_number": in.ContactNumber,
		"email":          in.Email,
		"captain_name":   in.CaptainName,
	}
}

// TenantService manages barangays. Tenants are never deleted.
type TenantService struct {
	db       *gorm.DB
	activity *ActivityService
}

// NewTenantService constructs a TenantService.
func NewTenantService(db *gorm.DB, activity *ActivityService) (*TenantService, error) {
	if db == nil {
		return nil, errors.New("tenant service: db is required")
	}
	return &TenantService{db: db, activity: activity}, nil
}

// IsConfigured reports whether the tenant's placeholder fields have been replaced.
func IsConfigured(tenant *models.Tenant) bool {
	return tenant.IsConfigured()
}

// List returns every tenant. Only superadmins may enumerate tenants.
func (s *TenantService) List(ctx context.Context, identity auth.Identity, opts ListOptions) ([]models.Tenant, int64, error) {
	if !identity.IsSuperadmin() {
		return nil, 0, apperrors.NewForbidden("Only superadmins can list barangays")
	}
	opts = opts.normalised()

	query := searchColumns(opts.Search, "name", "municipality", "province")(s.db.WithContext(ctx).Model(&models.Tenant{}))
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError(err)
	}
	tenants := make([]models.Tenant, 0)
	if err := query.Order("name ASC").Limit(opts.Limit).Offset(opts.Offset).Find(&tenants).Error; err != nil {
		return nil, 0, storageError(err)
	}
	return tenants, total, nil
}

// Get returns a tenant visible to identity. Another tenant is reported as not found.
func (s *TenantService) Get(ctx context.Context, identity auth.Identity, id string) (*models.Tenant, error) {
	id = strings.TrimSpace(id)
	if !identity.IsSuperadmin() {
		own, ok := identity.Tenant()
		if !ok {
			return nil, apperrors.ErrTenantNotAssigned
		}
		if own != id {
			return nil, apperrors.ErrNotFound
		}
	}
	return s.load(ctx, s.db, id)
}

// Current returns the identity's own tenant.
func (s *TenantService) Current(ctx context.Context, identity auth.Identity) (*models.Tenant, error) {
	own, ok := identity.Tenant()
	if !ok {
		return nil, apperrors.ErrTenantNotAssigned
	}
	return s.load(ctx, s.db, own)
}

// Create registers a tenant directly. Reserved for superadmins.
func (s *TenantService) Create(ctx context.Context, identity auth.Identity, input TenantInput) (*models.Tenant, error) {
	if !identity.IsSuperadmin() {
		return nil, apperrors.NewForbidden("Only superadmins can create barangays")
	}

	input = input.normalised()
	tenant := &models.Tenant{
		Name:          input.Name,
		Municipality:  orPlaceholder(input.Municipality),
		Province:      orPlaceholder(input.Province),
		Region:        input.Region,
		Address:       input.Address,
		ContactNumber: input.ContactNumber,
		Email:         input.Email,
		CaptainName:   input.CaptainName,
	}
	if tenant.Name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return storageError(err)
		}
		return s.record(ctx, tx, identity, ActivityEntry{
			Action:     ActionCreate,
			Resource:   "tenant",
			ResourceID: tenant.ID,
			TenantID:   &tenant.ID,
			Details:    map[string]any{"name": tenant.Name},
		})
	})
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// Update replaces the barangay profile. Captains and secretaries may edit only their own
// tenant; superadmins may edit any.
func (s *TenantService) Update(ctx context.Context, identity auth.Identity, id string, input TenantInput) (*models.Tenant, error) {
	id = strings.TrimSpace(id)
	if !identity.IsSuperadmin() {
		own, ok := identity.Tenant()
		if !ok {
			return nil, apperrors.ErrTenantNotAssigned
		}
		if own != id {
			logger.WithModule("tenants").Warn("cross-tenant update denied",
				zap.String("account_id", identity.AccountID),
				zap.String("tenant_id", id),
			)
			return nil, apperrors.ErrNotFound
		}
		if !permissions.CanAccess(identity.Role, permissions.PageSettings) {
			return nil, apperrors.NewForbidden("Your role cannot change barangay settings")
		}
	}

	input = input.normalised()
	if input.Name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	var updated *models.Tenant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Model(&models.Tenant{}).Where("id = ?", id).Updates(input.columns()).Error; err != nil {
			return storageError(err)
		}
		tenant, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = tenant
		return s.record(ctx, tx, identity, ActivityEntry{
			Action:     ActionUpdate,
			Resource:   "tenant",
			ResourceID: id,
			TenantID:   &id,
			Details:    map[string]any{"configured": tenant.IsConfigured()},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TenantService) load(ctx context.Context, db *gorm.DB, id string) (*models.Tenant, error) {
	if id == "" {
		return nil, apperrors.ErrNotFound
	}
	var tenant models.Tenant
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&tenant).Error; err != nil {
		return nil, storageError(err)
	}
	return &tenant, nil
}

func (s *TenantService) record(ctx context.Context, tx *gorm.DB, identity auth.Identity, entry ActivityEntry) error {
	if s.activity == nil {
		return nil
	}
	return s.activity.Record(ctx, tx, identity, entry)
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return models.PlaceholderValue
	}
	return value
}
