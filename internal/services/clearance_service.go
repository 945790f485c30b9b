package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

const (
	defaultClearanceValidity = 6 * 30 * 24 * time.Hour
	defaultQRSize            = 256
)

// ClearanceInput carries the editable clearance fields.
type ClearanceInput struct {
	ResidentID string          `json:"residentId" validate:"required"`
	Type       string          `json:"type" validate:"required,notblank,max=64"`
	Purpose    string          `json:"purpose" validate:"omitempty,max=512"`
	Fee        decimal.Decimal `json:"fee"`
	Status     string          `json:"status" validate:"omitempty,oneof=pending approved released rejected"`
	ValidUntil *time.Time      `json:"validUntil"`
	TenantID   *string         `json:"tenantId"`
}

func (in ClearanceInput) normalised() (ClearanceInput, error) {
	out := in
	out.ResidentID = strings.TrimSpace(out.ResidentID)
	out.Type = strings.TrimSpace(out.Type)
	out.Purpose = strings.TrimSpace(out.Purpose)
	out.Status = strings.ToLower(strings.TrimSpace(out.Status))
	if out.Status == "" {
		out.Status = models.ClearanceStatusPending
	}
	if out.ResidentID == "" || out.Type == "" {
		return out, apperrors.NewBadRequest("residentId and type are required")
	}
	if out.Fee.IsNegative() {
		return out, apperrors.NewBadRequest("fee cannot be negative")
	}
	return out, nil
}

// ClearanceFilters narrows clearance listings.
type ClearanceFilters struct {
	ListOptions
	ResidentID string
	Status     string
	Type       string
}

// ClearanceService issues barangay clearances.
type ClearanceService struct {
	recordBase
	store scopedStore[models.Clearance]
}

// NewClearanceService constructs a ClearanceService.
func NewClearanceService(db *gorm.DB, activity *ActivityService, numbers *Numberer, opts ...RecordOption) (*ClearanceService, error) {
	if db == nil {
		return nil, errors.New("clearance service: db is required")
	}
	return &ClearanceService{
		recordBase: newRecordBase(db, activity, numbers, opts),
		store:      scopedStore[models.Clearance]{db: db},
	}, nil
}

// List returns clearances in scope, newest first.
func (s *ClearanceService) List(ctx context.Context, identity auth.Identity, filters ClearanceFilters) ([]models.Clearance, int64, error) {
	return s.store.list(ensureContext(ctx), identity, filters.ListOptions, "created_at DESC", func(query *gorm.DB) *gorm.DB {
		query = searchColumns(filters.Search, "clearance_number", "type", "purpose")(query)
		query = equalsIfSet("resident_id", filters.ResidentID)(query)
		query = equalsIfSet("status", filters.Status)(query)
		return equalsIfSet("type", filters.Type)(query)
	})
}

// Get returns one clearance in scope.
func (s *ClearanceService) Get(ctx context.Context, identity auth.Identity, id string) (*models.Clearance, error) {
	return s.store.get(ensureContext(ctx), identity, id)
}

// Create files a clearance for a resident of the same tenant.
func (s *ClearanceService) Create(ctx context.Context, identity auth.Identity, input ClearanceInput) (*models.Clearance, error) {
	ctx = ensureContext(ctx)
	input, err := input.normalised()
	if err != nil {
		return nil, err
	}
	tenantID, err := s.creationTenant(ctx, identity, input.TenantID)
	if err != nil {
		return nil, err
	}
	if err := residentInTenant(ctx, s.db, input.ResidentID, tenantID); err != nil {
		return nil, err
	}

	now := s.now()
	clearance := &models.Clearance{
		TenantModel: tenantModel(tenantID, now),
		ResidentID:  input.ResidentID,
		Type:        input.Type,
		Purpose:     input.Purpose,
		Status:      input.Status,
		Fee:         input.Fee,
		ValidUntil:  input.ValidUntil,
	}
	s.stampRelease(clearance, identity, now)

	err = s.createNumbered(ctx, identity, tenantID, DocClearance, "clearance", clearance,
		func(number string) { clearance.ClearanceNumber = number },
		func() string { return clearance.ID },
	)
	if err != nil {
		return nil, err
	}
	return clearance, nil
}

// Update changes a clearance. Releasing it stamps the issue date and validity window.
func (s *ClearanceService) Update(ctx context.Context, identity auth.Identity, id string, input ClearanceInput) (*models.Clearance, error) {
	ctx = ensureContext(ctx)
	input, err := input.normalised()
	if err != nil {
		return nil, err
	}

	entry := ActivityEntry{Action: ActionUpdate, Resource: "clearance", Details: map[string]any{"status": input.Status}}
	err = s.mutate(ctx, identity, &models.Clearance{}, id, entry, func(tx *gorm.DB) error {
		var current models.Clearance
		if err := tx.Where("id = ?", id).Take(&current).Error; err != nil {
			return err
		}
		if err := residentInTenant(ctx, tx, input.ResidentID, current.TenantID); err != nil {
			return err
		}

		current.ResidentID = input.ResidentID
		current.Type = input.Type
		current.Purpose = input.Purpose
		current.Status = input.Status
		current.Fee = input.Fee
		current.ValidUntil = input.ValidUntil
		s.stampRelease(&current, identity, s.now())

		return tx.Model(&models.Clearance{}).Where("id = ?", id).Updates(map[string]any{
			"resident_id": current.ResidentID,
			"type":        current.Type,
			"purpose":     current.Purpose,
			"status":      current.Status,
			"fee":         current.Fee,
			"issued_at":   current.IssuedAt,
			"valid_until": current.ValidUntil,
			"issued_by":   current.IssuedBy,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.store.get(ctx, identity, id)
}

// Delete removes a clearance.
func (s *ClearanceService) Delete(ctx context.Context, identity auth.Identity, id string) error {
	return s.mutate(ensureContext(ctx), identity, &models.Clearance{}, id, ActivityEntry{Action: ActionDelete, Resource: "clearance"}, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&models.Clearance{}).Error
	})
}

// QRCode renders a PNG QR code encoding the clearance number for printed certificates.
func (s *ClearanceService) QRCode(ctx context.Context, identity auth.Identity, id string, size int) ([]byte, error) {
	clearance, err := s.store.get(ensureContext(ctx), identity, id)
	if err != nil {
		return nil, err
	}
	if size <= 0 || size > 1024 {
		size = defaultQRSize
	}
	png, err := qrcode.Encode(clearance.ClearanceNumber, qrcode.Medium, size)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("clearance qr: %w", err))
	}
	return png, nil
}

func (s *ClearanceService) stampRelease(clearance *models.Clearance, identity auth.Identity, now time.Time) {
	if clearance.Status != models.ClearanceStatusReleased || clearance.IssuedAt != nil {
		return
	}
	issued := now
	clearance.IssuedAt = &issued
	clearance.IssuedBy = identity.AccountID
	if clearance.ValidUntil == nil {
		validUntil := issued.Add(defaultClearanceValidity)
		clearance.ValidUntil = &validUntil
	}
}

// residentInTenant rejects references to residents outside tenantID the same way as
// references to residents that do not exist.
func residentInTenant(ctx context.Context, db *gorm.DB, residentID, tenantID string) error {
	var count int64
	err := db.WithContext(ctx).Model(&models.Resident{}).
		Where("id = ? AND tenant_id = ?", residentID, tenantID).
		Count(&count).Error
	if err != nil {
		return storageError(err)
	}
	if count == 0 {
		return apperrors.ErrNotFound.WithMessage("Resident not found")
	}
	return nil
}
