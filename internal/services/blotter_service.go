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

// BlotterInput carries the editable blotter fields.
type BlotterInput struct {
	IncidentType string     `json:"incidentType" validate:"required,notblank,max=128"`
	IncidentDate *time.Time `json:"incidentDate"`
	Location     string     `json:"location" validate:"omitempty,max=512"`
	Complainant  string     `json:"complainant" validate:"required,notblank,max=255"`
	Respondent   string     `json:"respondent" validate:"omitempty,max=255"`
	Narrative    string     `json:"narrative"`
	Status       string     `json:"status" validate:"omitempty,oneof=open under_mediation settled escalated closed"`
	TenantID     *string    `json:"tenantId"`
}

func (in BlotterInput) normalised(now time.Time) (BlotterInput, error) {
	out := in
	for _, field := range []*string{&out.IncidentType, &out.Location, &out.Complainant, &out.Respondent, &out.Narrative} {
		*field = strings.TrimSpace(*field)
	}
	out.Status = strings.ToLower(strings.TrimSpace(out.Status))
	if out.Status == "" {
		out.Status = models.BlotterStatusOpen
	}
	if out.IncidentDate == nil || out.IncidentDate.IsZero() {
		date := now
		out.IncidentDate = &date
	}
	if out.IncidentType == "" || out.Complainant == "" {
		return out, apperrors.NewBadRequest("incidentType and complainant are required")
	}
	return out, nil
}

// BlotterFilters narrows blotter listings.
type BlotterFilters struct {
	ListOptions
	Status       string
	IncidentType string
}

// BlotterService records incidents in the barangay blotter.
type BlotterService struct {
	recordBase
	store scopedStore[models.BlotterEntry]
}

// NewBlotterService constructs a BlotterService.
func NewBlotterService(db *gorm.DB, activity *ActivityService, numbers *Numberer, opts ...RecordOption) (*BlotterService, error) {
	if db == nil {
		return nil, errors.New("blotter service: db is required")
	}
	return &BlotterService{
		recordBase: newRecordBase(db, activity, numbers, opts),
		store:      scopedStore[models.BlotterEntry]{db: db},
	}, nil
}

// List returns blotter entries in scope, most recent incident first.
func (s *BlotterService) List(ctx context.Context, identity auth.Identity, filters BlotterFilters) ([]models.BlotterEntry, int64, error) {
	return s.store.list(ensureContext(ctx), identity, filters.ListOptions, "incident_date DESC", func(query *gorm.DB) *gorm.DB {
		query = searchColumns(filters.Search, "case_number", "complainant", "respondent", "incident_type")(query)
		query = equalsIfSet("status", filters.Status)(query)
		return equalsIfSet("incident_type", filters.IncidentType)(query)
	})
}

// Get returns one blotter entry in scope.
func (s *BlotterService) Get(ctx context.Context, identity auth.Identity, id string) (*models.BlotterEntry, error) {
	return s.store.get(ensureContext(ctx), identity, id)
}

// Create records an incident and assigns its BLT case number.
func (s *BlotterService) Create(ctx context.Context, identity auth.Identity, input BlotterInput) (*models.BlotterEntry, error) {
	ctx = ensureContext(ctx)
	now := s.now()
	input, err := input.normalised(now)
	if err != nil {
		return nil, err
	}
	tenantID, err := s.creationTenant(ctx, identity, input.TenantID)
	if err != nil {
		return nil, err
	}

	entry := &models.BlotterEntry{
		TenantModel:  tenantModel(tenantID, now),
		IncidentType: input.IncidentType,
		IncidentDate: *input.IncidentDate,
		Location:     input.Location,
		Complainant:  input.Complainant,
		Respondent:   input.Respondent,
		Narrative:    input.Narrative,
		Status:       input.Status,
		RecordedBy:   identity.AccountID,
	}

	err = s.createNumbered(ctx, identity, tenantID, DocBlotter, "blotter", entry,
		func(number string) { entry.CaseNumber = number },
		func() string { return entry.ID },
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Update replaces the blotter entry's editable fields.
func (s *BlotterService) Update(ctx context.Context, identity auth.Identity, id string, input BlotterInput) (*models.BlotterEntry, error) {
	ctx = ensureContext(ctx)
	input, err := input.normalised(s.now())
	if err != nil {
		return nil, err
	}

	entry := ActivityEntry{Action: ActionUpdate, Resource: "blotter", Details: map[string]any{"status": input.Status}}
	err = s.mutate(ctx, identity, &models.BlotterEntry{}, id, entry, func(tx *gorm.DB) error {
		return tx.Model(&models.BlotterEntry{}).Where("id = ?", id).Updates(map[string]any{
			"incident_type": input.IncidentType,
			"incident_date": *input.IncidentDate,
			"location":      input.Location,
			"complainant":   input.Complainant,
			"respondent":    input.Respondent,
			"narrative":     input.Narrative,
			"status":        input.Status,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.store.get(ctx, identity, id)
}

// Delete removes a blotter entry.
func (s *BlotterService) Delete(ctx context.Context, identity auth.Identity, id string) error {
	return s.mutate(ensureContext(ctx), identity, &models.BlotterEntry{}, id, ActivityEntry{Action: ActionDelete, Resource: "blotter"}, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&models.BlotterEntry{}).Error
	})
}
