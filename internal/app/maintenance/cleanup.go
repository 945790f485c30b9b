package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/barangay/pkg/logger"
)

const (
	defaultActivityRetentionDays = 365
	defaultActivitySpec          = "@daily"
	defaultInvitationSpec        = "@hourly"
	defaultCounterSpec           = "@every 15m"
)

// ActivityPruner removes activity-log entries past their retention window.
type ActivityPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// CodeReleaser frees the codes held by expired invitations.
type CodeReleaser interface {
	ReleaseExpiredCodes(ctx context.Context) (int64, error)
}

// CounterPurger drops rate-limit counters whose window has closed.
type CounterPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance: pruning the activity log, returning expired
// invitation codes to the pool and purging stale rate-limit counters.
type Cleaner struct {
	activity    ActivityPruner
	invitations CodeReleaser
	counters    CounterPurger
	cron        *cron.Cron
	log         *zap.Logger
	retention   int

	activitySchedule   string
	invitationSchedule string
	counterSchedule    string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithActivityRetentionDays adjusts how long activity entries are kept.
func WithActivityRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithActivitySchedule overrides the cron specification for activity retention.
func WithActivitySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.activitySchedule = spec
		}
	}
}

// WithInvitationSchedule overrides the cron specification for releasing expired codes.
func WithInvitationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.invitationSchedule = spec
		}
	}
}

// WithCounterPurger enables purging of database-backed rate-limit counters.
func WithCounterPurger(purger CounterPurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.counters = purger
	}
}

// WithCounterSchedule overrides the cron specification for counter purging.
func WithCounterSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.counterSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil dependency skips its job.
func NewCleaner(activity ActivityPruner, invitations CodeReleaser, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		activity:           activity,
		invitations:        invitations,
		retention:          defaultActivityRetentionDays,
		activitySchedule:   defaultActivitySpec,
		invitationSchedule: defaultInvitationSpec,
		counterSchedule:    defaultCounterSpec,
		log:                logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it when any job exists.
func (c *Cleaner) Start() error {
	jobs := 0

	if c.activity != nil {
		if _, err := c.cron.AddFunc(c.activitySchedule, func() {
			c.pruneActivity(context.Background())
		}); err != nil {
			return err
		}
		jobs++
	}

	if c.invitations != nil {
		if _, err := c.cron.AddFunc(c.invitationSchedule, func() {
			c.releaseCodes(context.Background())
		}); err != nil {
			return err
		}
		jobs++
	}

	if c.counters != nil {
		if _, err := c.cron.AddFunc(c.counterSchedule, func() {
			c.purgeCounters(context.Background())
		}); err != nil {
			return err
		}
		jobs++
	}

	if jobs > 0 {
		c.cron.Start()
	}
	return nil
}

// Stop halts the underlying scheduler; the returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially and combines their failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.activity != nil {
		errs = multierr.Append(errs, c.pruneActivity(ctx))
	}
	if c.invitations != nil {
		errs = multierr.Append(errs, c.releaseCodes(ctx))
	}
	if c.counters != nil {
		errs = multierr.Append(errs, c.purgeCounters(ctx))
	}
	return errs
}

func (c *Cleaner) pruneActivity(ctx context.Context) error {
	removed, err := c.activity.CleanupOlderThan(ctx, c.retention)
	if err != nil {
		c.log.Warn("activity retention failed", zap.Error(err))
		return err
	}
	if removed > 0 {
		c.log.Info("activity entries pruned", zap.Int64("removed", removed), zap.Int("retention_days", c.retention))
	}
	return nil
}

func (c *Cleaner) releaseCodes(ctx context.Context) error {
	released, err := c.invitations.ReleaseExpiredCodes(ctx)
	if err != nil {
		c.log.Warn("invitation code release failed", zap.Error(err))
		return err
	}
	if released > 0 {
		c.log.Info("expired invitation codes released", zap.Int64("released", released))
	}
	return nil
}

func (c *Cleaner) purgeCounters(ctx context.Context) error {
	purged, err := c.counters.PurgeExpired(ctx)
	if err != nil {
		c.log.Warn("rate counter purge failed", zap.Error(err))
		return err
	}
	if purged > 0 {
		c.log.Debug("expired rate counters purged", zap.Int64("purged", purged))
	}
	return nil
}
