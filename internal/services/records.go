package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/tenancy"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ListOptions carries the paging and free-text search shared by every record listing.
type ListOptions struct {
	Search string
	Limit  int
	Offset int
}

func (o ListOptions) normalised() ListOptions {
	o.Search = strings.TrimSpace(o.Search)
	if o.Limit <= 0 {
		o.Limit = defaultPageSize
	}
	if o.Limit > maxPageSize {
		o.Limit = maxPageSize
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// RecordOption customises the record services.
type RecordOption func(*recordBase)

// WithRecordClock injects a custom clock primarily for testing.
func WithRecordClock(clock func() time.Time) RecordOption {
	return func(b *recordBase) {
		if clock != nil {
			b.now = clock
		}
	}
}

// recordBase holds what every tenant-scoped record service needs.
type recordBase struct {
	db       *gorm.DB
	activity *ActivityService
	numbers  *Numberer
	now      func() time.Time
}

func newRecordBase(db *gorm.DB, activity *ActivityService, numbers *Numberer, opts []RecordOption) recordBase {
	if numbers == nil {
		numbers = NewNumberer()
	}
	base := recordBase{
		db:       db,
		activity: activity,
		numbers:  numbers,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

func (b recordBase) record(ctx context.Context, tx *gorm.DB, identity auth.Identity, entry ActivityEntry) error {
	if b.activity == nil {
		return nil
	}
	return b.activity.Record(ctx, tx, identity, entry)
}

// creationTenant resolves the tenant of a new record. A superadmin override must name an
// existing tenant.
func (b recordBase) creationTenant(ctx context.Context, identity auth.Identity, override *string) (string, error) {
	tenantID, err := tenancy.CreationTenant(identity, override)
	if err != nil {
		return "", err
	}
	if !identity.IsSuperadmin() {
		return tenantID, nil
	}
	var count int64
	if err := b.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", tenantID).Count(&count).Error; err != nil {
		return "", storageError(err)
	}
	if count == 0 {
		return "", apperrors.ErrNotFound.WithMessage("Barangay not found")
	}
	return tenantID, nil
}

// createNumbered reserves the next number for docType and inserts the record in the same
// transaction, then logs the creation.
func (b recordBase) createNumbered(ctx context.Context, identity auth.Identity, tenantID string, docType DocType, resource string, record any, assign func(number string), id func() string) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := b.numbers.Next(ctx, tx, tenantID, docType, b.now().Year())
		if err != nil {
			return err
		}
		assign(number)
		if err := tx.Create(record).Error; err != nil {
			return storageError(err)
		}
		return b.record(ctx, tx, identity, ActivityEntry{
			Action:     ActionCreate,
			Resource:   resource,
			ResourceID: id(),
			TenantID:   &tenantID,
			Details:    map[string]any{"number": number},
		})
	})
}

// mutate guards the record against the identity's tenant and runs fn in one transaction
// with the activity entry. The entry's tenant is taken from the record itself.
func (b recordBase) mutate(ctx context.Context, identity auth.Identity, model any, id string, entry ActivityEntry, fn func(tx *gorm.DB) error) error {
	id = strings.TrimSpace(id)
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tenancy.Guard(ctx, tx, model, id, identity); err != nil {
			return err
		}
		var owners []string
		if err := tx.Model(model).Where("id = ?", id).Pluck(tenancy.Column, &owners).Error; err != nil {
			return storageError(err)
		}
		if err := fn(tx); err != nil {
			return storageError(err)
		}
		entry.ResourceID = id
		if len(owners) > 0 {
			entry.TenantID = &owners[0]
		}
		return b.record(ctx, tx, identity, entry)
	})
}

// scopedStore applies the tenant policy to reads of T.
type scopedStore[T any] struct {
	db *gorm.DB
}

func (s scopedStore[T]) list(ctx context.Context, identity auth.Identity, opts ListOptions, order string, apply func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	opts = opts.normalised()

	query, err := tenancy.Scope(s.db.WithContext(ctx).Model(new(T)), identity)
	if err != nil {
		return nil, 0, err
	}
	if apply != nil {
		query = apply(query)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError(err)
	}

	items := make([]T, 0)
	if err := query.Order(order).Limit(opts.Limit).Offset(opts.Offset).Find(&items).Error; err != nil {
		return nil, 0, storageError(err)
	}
	return items, total, nil
}

func (s scopedStore[T]) get(ctx context.Context, identity auth.Identity, id string) (*T, error) {
	query, err := tenancy.Scope(s.db.WithContext(ctx), identity)
	if err != nil {
		return nil, err
	}
	var record T
	if err := query.Where("id = ?", strings.TrimSpace(id)).Take(&record).Error; err != nil {
		return nil, storageError(err)
	}
	return &record, nil
}

func (s scopedStore[T]) guard(ctx context.Context, tx *gorm.DB, identity auth.Identity, id string) error {
	return tenancy.Guard(ctx, tx, new(T), id, identity)
}

// searchColumns matches term case-insensitively against any of columns.
func searchColumns(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + escapeLike(term) + "%"
		clauses := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, column := range columns {
			clauses[i] = "LOWER(" + column + ") LIKE ? ESCAPE '!'"
			args[i] = pattern
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return replacer.Replace(term)
}

func equalsIfSet(column, value string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		value = strings.TrimSpace(value)
		if value == "" {
			return db
		}
		return db.Where(column+" = ?", value)
	}
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
