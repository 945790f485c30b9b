package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/barangay/internal/models"
)

var _ Store = (*DatabaseStore)(nil)

// DatabaseStore keeps counters in the primary SQL database.
type DatabaseStore struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, clock: time.Now}
}

// IncrementWithTTL atomically increments the counter for key. An expired counter starts a
// new window.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock().UTC()
	var counter models.RateCounter

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&counter, "counter_key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			counter = models.RateCounter{Key: key, Count: 1, ExpiresAt: now.Add(window)}
			return tx.Create(&counter).Error
		}
		if err != nil {
			return err
		}

		if !now.Before(counter.ExpiresAt) {
			counter.Count = 1
			counter.ExpiresAt = now.Add(window)
		} else {
			counter.Count++
		}
		return tx.Model(&models.RateCounter{}).Where("counter_key = ?", key).Updates(map[string]any{
			"count":      counter.Count,
			"expires_at": counter.ExpiresAt,
		}).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return counter.Count, counter.ExpiresAt.Sub(now), nil
}

// PurgeExpired deletes counters whose window has closed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.clock().UTC()).Delete(&models.RateCounter{})
	return result.RowsAffected, result.Error
}
