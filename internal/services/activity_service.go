package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
)

// Activity actions.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionInvite     = "invite"
	ActionRevoke     = "revoke"
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
	ActionUpload     = "upload"
)

// ActivityEntry captures a single change to persist.
type ActivityEntry struct {
	Action     string
	Resource   string
	ResourceID string
	TenantID   *string
	Details    map[string]any
}

// ActivityFilters encapsulates optional filters when querying the activity log.
type ActivityFilters struct {
	ListOptions
	ActorID  string
	Action   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

// ActivityService persists and retrieves activity log entries.
type ActivityService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewActivityService constructs an ActivityService using the provided database handle.
func NewActivityService(db *gorm.DB) (*ActivityService, error) {
	if db == nil {
		return nil, errors.New("activity service: db is required")
	}
	return &ActivityService{db: db, now: time.Now}, nil
}

// Record stores entry through tx so it commits or rolls back with the change it describes.
// The tenant defaults to the actor's own tenant.
func (s *ActivityService) Record(ctx context.Context, tx *gorm.DB, actor auth.Identity, entry ActivityEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("activity service: action is required")
	}
	if tx == nil {
		tx = s.db
	}

	tenantID := trimmedPtr(entry.TenantID)
	if tenantID == nil {
		tenantID = trimmedPtr(actor.TenantID)
	}

	log := models.ActivityLog{
		TenantID:   tenantID,
		ActorID:    actor.AccountID,
		ActorEmail: actor.Email,
		Action:     strings.TrimSpace(entry.Action),
		Resource:   strings.TrimSpace(entry.Resource),
		ResourceID: strings.TrimSpace(entry.ResourceID),
		CreatedAt:  s.now().UTC(),
	}
	if len(entry.Details) > 0 {
		log.Details = datatypes.JSONMap(entry.Details)
	}

	if err := tx.WithContext(ensureContext(ctx)).Create(&log).Error; err != nil {
		return storageError(fmt.Errorf("activity service: record: %w", err))
	}
	return nil
}

// List returns the activity log visible to identity, newest first.
func (s *ActivityService) List(ctx context.Context, identity auth.Identity, filters ActivityFilters) ([]models.ActivityLog, int64, error) {
	store := scopedStore[models.ActivityLog]{db: s.db}
	return store.list(ensureContext(ctx), identity, filters.ListOptions, "created_at DESC", func(query *gorm.DB) *gorm.DB {
		query = searchColumns(filters.Search, "actor_email", "action", "resource")(query)
		query = equalsIfSet("actor_id", filters.ActorID)(query)
		query = equalsIfSet("action", filters.Action)(query)
		query = equalsIfSet("resource", filters.Resource)(query)
		if filters.Since != nil {
			query = query.Where("created_at >= ?", *filters.Since)
		}
		if filters.Until != nil {
			query = query.Where("created_at <= ?", *filters.Until)
		}
		return query
	})
}

// CleanupOlderThan removes entries older than the supplied retention window (in days).
func (s *ActivityService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New("activity service: retentionDays must be positive")
	}

	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ensureContext(ctx)).Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("activity service: cleanup: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
