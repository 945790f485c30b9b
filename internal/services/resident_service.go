package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

// ResidentInput carries the editable resident fields. TenantID is honoured only for
// superadmins creating a record.
type ResidentInput struct {
	FirstName     string     `json:"firstName" validate:"required,notblank,max=128"`
	MiddleName    string     `json:"middleName" validate:"omitempty,max=128"`
	LastName      string     `json:"lastName" validate:"required,notblank,max=128"`
	Suffix        string     `json:"suffix" validate:"omitempty,max=16"`
	BirthDate     *time.Time `json:"birthDate"`
	Gender        string     `json:"gender" validate:"omitempty,oneof=male female other"`
	CivilStatus   string     `json:"civilStatus" validate:"omitempty,oneof=single married widowed separated"`
	Address       string     `json:"address" validate:"omitempty,max=512"`
	Purok         string     `json:"purok" validate:"omitempty,max=64"`
	ContactNumber string     `json:"contactNumber" validate:"omitempty,max=64"`
	Occupation    string     `json:"occupation" validate:"omitempty,max=128"`
	IsVoter       bool       `json:"isVoter"`
	Status        string     `json:"status" validate:"omitempty,oneof=active inactive moved deceased"`
	TenantID      *string    `json:"tenantId"`
}

func (in ResidentInput) normalised() (ResidentInput, error) {
	out := in
	for _, field := range []*string{
		&out.FirstName, &out.MiddleName, &out.LastName, &out.Suffix, &out.Gender,
		&out.CivilStatus, &out.Address, &out.Purok, &out.ContactNumber, &out.Occupation, &out.Status,
	} {
		*field = strings.TrimSpace(*field)
	}
	if out.Status == "" {
		out.Status = "active"
	}
	if out.FirstName == "" || out.LastName == "" {
		return out, apperrors.NewBadRequest("firstName and lastName are required")
	}
	return out, nil
}

func (in ResidentInput) columns() map[string]any {
	return map[string]any{
		"first_name":     in.FirstName,
		"middle_name":    in.MiddleName,
		"last_name":      in.LastName,
		"suffix":         in.Suffix,
		"birth_date":     in.BirthDate,
		"gender":         in.Gender,
		"civil_status":   in.CivilStatus,
		"address":        in.Address,
		"purok":          in.Purok,
		"contact_number": in.ContactNumber,
		"occupation":     in.Occupation,
		"is_voter":       in.IsVoter,
		"status":         in.Status,
	}
}

// ResidentFilters narrows resident listings.
type ResidentFilters struct {
	ListOptions
	Purok  string
	Status string
}

// ResidentService manages the resident registry.
type ResidentService struct {
	recordBase
	store scopedStore[models.Resident]
}

// NewResidentService constructs a ResidentService.
func NewResidentService(db *gorm.DB, activity *ActivityService, numbers *Numberer, opts ...RecordOption) (*ResidentService, error) {
	if db == nil {
		return nil, errors.New("resident service: db is required")
	}
	return &ResidentService{
		recordBase: newRecordBase(db, activity, numbers, opts),
		store:      scopedStore[models.Resident]{db: db},
	}, nil
}

// List returns residents in scope ordered by name.
func (s *ResidentService) List(ctx context.Context, identity auth.Identity, filters ResidentFilters) ([]models.Resident, int64, error) {
	return s.store.list(ensureContext(ctx), identity, filters.ListOptions, "last_name ASC, first_name ASC", func(query *gorm.DB) *gorm.DB {
		query = searchColumns(filters.Search, "first_name", "last_name", "resident_number", "address")(query)
		query = equalsIfSet("purok", filters.Purok)(query)
		return equalsIfSet("status", filters.Status)(query)
	})
}

// Get returns one resident in scope.
func (s *ResidentService) Get(ctx context.Context, identity auth.Identity, id string) (*models.Resident, error) {
	return s.store.get(ensureContext(ctx), identity, id)
}

// Create registers a resident and assigns its RES number.
func (s *ResidentService) Create(ctx context.Context, identity auth.Identity, input ResidentInput) (*models.Resident, error) {
	ctx = ensureContext(ctx)
	input, err := input.normalised()
	if err != nil {
		return nil, err
	}
	tenantID, err := s.creationTenant(ctx, identity, input.TenantID)
	if err != nil {
		return nil, err
	}

	resident := &models.Resident{
		TenantModel:   tenantModel(tenantID, s.now()),
		FirstName:     input.FirstName,
		MiddleName:    input.MiddleName,
		LastName:      input.LastName,
		Suffix:        input.Suffix,
		BirthDate:     input.BirthDate,
		Gender:        input.Gender,
		CivilStatus:   input.CivilStatus,
		Address:       input.Address,
		Purok:         input.Purok,
		ContactNumber: input.ContactNumber,
		Occupation:    input.Occupation,
		IsVoter:       input.IsVoter,
		Status:        input.Status,
	}

	err = s.createNumbered(ctx, identity, tenantID, DocResident, "resident", resident,
		func(number string) { resident.ResidentNumber = number },
		func() string { return resident.ID },
	)
	if err != nil {
		return nil, err
	}
	return resident, nil
}

// Update replaces the resident's editable fields.
func (s *ResidentService) Update(ctx context.Context, identity auth.Identity, id string, input ResidentInput) (*models.Resident, error) {
	ctx = ensureContext(ctx)
	input, err := input.normalised()
	if err != nil {
		return nil, err
	}

	err = s.mutate(ctx, identity, &models.Resident{}, id, ActivityEntry{Action: ActionUpdate, Resource: "resident"}, func(tx *gorm.DB) error {
		return tx.Model(&models.Resident{}).Where("id = ?", id).Updates(input.columns()).Error
	})
	if err != nil {
		return nil, err
	}
	return s.store.get(ctx, identity, id)
}

// Delete removes a resident who has no clearances on record.
func (s *ResidentService) Delete(ctx context.Context, identity auth.Identity, id string) error {
	ctx = ensureContext(ctx)
	return s.mutate(ctx, identity, &models.Resident{}, id, ActivityEntry{Action: ActionDelete, Resource: "resident"}, func(tx *gorm.DB) error {
		var clearances int64
		if err := tx.Model(&models.Clearance{}).Where("resident_id = ?", id).Count(&clearances).Error; err != nil {
			return err
		}
		if clearances > 0 {
			return apperrors.NewConflict("Resident has clearances on record")
		}
		return tx.Where("id = ?", id).Delete(&models.Resident{}).Error
	})
}

func tenantModel(tenantID string, now time.Time) models.TenantModel {
	return models.TenantModel{
		BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
		TenantID:  tenantID,
	}
}
