package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/barangay/internal/database/testutil"
	"github.com/charlesng35/barangay/internal/models"
)

func TestDatabaseStoreFixedWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := NewDatabaseStore(db)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "1.2.3.4|/verify", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, time.Minute, ttl)

	now = now.Add(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "1.2.3.4|/verify", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
	require.Equal(t, 40*time.Second, ttl)

	count, _, err = store.IncrementWithTTL(ctx, "5.6.7.8|/verify", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	now = now.Add(time.Minute)
	count, ttl, err = store.IncrementWithTTL(ctx, "1.2.3.4|/verify", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, time.Minute, ttl)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := NewDatabaseStore(db)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }
	ctx := context.Background()

	_, _, err := store.IncrementWithTTL(ctx, "old", time.Second)
	require.NoError(t, err)
	_, _, err = store.IncrementWithTTL(ctx, "fresh", time.Hour)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	var remaining []models.RateCounter
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "fresh", remaining[0].Key)
}

func TestNilDatabaseStore(t *testing.T) {
	require.Nil(t, NewDatabaseStore(nil))

	var store *DatabaseStore
	_, _, err := store.IncrementWithTTL(context.Background(), "k", time.Second)
	require.Error(t, err)
}
