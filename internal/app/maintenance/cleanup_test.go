package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/charlesng35/barangay/internal/cache"
	testutil "github.com/charlesng35/barangay/internal/database/testutil"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
	"github.com/charlesng35/barangay/internal/services"
)

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Now().UTC()

	activity, err := services.NewActivityService(db)
	require.NoError(t, err)
	invitations, err := services.NewInvitationService(db, nil, activity,
		services.WithInvitationClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	for _, age := range []time.Duration{40 * 24 * time.Hour, 2 * time.Hour} {
		require.NoError(t, db.Create(&models.ActivityLog{
			ActorID:   "actor",
			Action:    services.ActionCreate,
			Resource:  "resident",
			CreatedAt: now.Add(-age),
		}).Error)
	}

	expiredCode, pendingCode := "111111", "222222"
	require.NoError(t, db.Create(&models.Invitation{
		Email: "expired@example.com", Code: expiredCode, ActiveCode: &expiredCode,
		Role: permissions.RoleStaff, InvitedBy: "actor", ExpiresAt: now.Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.Invitation{
		Email: "pending@example.com", Code: pendingCode, ActiveCode: &pendingCode,
		Role: permissions.RoleStaff, InvitedBy: "actor", ExpiresAt: now.Add(time.Hour),
	}).Error)

	c := NewCleaner(activity, invitations,
		WithActivityRetentionDays(30),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)
	require.NoError(t, c.RunOnce(context.Background()))

	var remaining int64
	require.NoError(t, db.Model(&models.ActivityLog{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)

	var expired models.Invitation
	require.NoError(t, db.Where("email = ?", "expired@example.com").Take(&expired).Error)
	require.Nil(t, expired.ActiveCode)
	require.Equal(t, expiredCode, expired.Code)

	var pending models.Invitation
	require.NoError(t, db.Where("email = ?", "pending@example.com").Take(&pending).Error)
	require.NotNil(t, pending.ActiveCode)
}

func TestCleanerPurgesRateCounters(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Now().UTC()

	require.NoError(t, db.Create(&models.RateCounter{Key: "stale", Count: 3, ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.RateCounter{Key: "live", Count: 1, ExpiresAt: now.Add(time.Hour)}).Error)

	c := NewCleaner(nil, nil, WithCounterPurger(cache.NewDatabaseStore(db)))
	require.NoError(t, c.RunOnce(context.Background()))

	var keys []string
	require.NoError(t, db.Model(&models.RateCounter{}).Pluck("counter_key", &keys).Error)
	require.Equal(t, []string{"live"}, keys)
}

type failingPruner struct{ err error }

func (f failingPruner) CleanupOlderThan(context.Context, int) (int64, error) { return 0, f.err }

type failingReleaser struct{ err error }

func (f failingReleaser) ReleaseExpiredCodes(context.Context) (int64, error) { return 0, f.err }

func TestCleanerRunOnceCombinesFailures(t *testing.T) {
	pruneErr := errors.New("prune failed")
	releaseErr := errors.New("release failed")

	c := NewCleaner(failingPruner{err: pruneErr}, failingReleaser{err: releaseErr})
	err := c.RunOnce(context.Background())
	require.ErrorIs(t, err, pruneErr)
	require.ErrorIs(t, err, releaseErr)
	require.Len(t, multierr.Errors(err), 2)
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	c := NewCleaner(failingPruner{}, nil, WithActivitySchedule("not a schedule"))
	require.Error(t, c.Start())
}

func TestCleanerStartRejectsBadCounterSchedule(t *testing.T) {
	c := NewCleaner(nil, nil, WithCounterPurger(failingPurger{}), WithCounterSchedule("every so often"))
	require.Error(t, c.Start())
}

type failingPurger struct{}

func (failingPurger) PurgeExpired(context.Context) (int64, error) { return 0, errors.New("purge failed") }

func TestCleanerStartWithoutJobs(t *testing.T) {
	c := NewCleaner(nil, nil)
	require.NoError(t, c.Start())
	<-c.Stop().Done()
}
