package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/logger"
)

const (
	defaultRetentionDays = 90
	defaultEvaluateSpec  = "@every 5m"
	defaultPurgeSpec     = "@daily"
)

// Runner coordinates background work: the periodic alert sweep across all
// users and the purge of aged alert notifications.
type Runner struct {
	db            *gorm.DB
	evaluator     *alerts.Evaluator
	notifications *services.NotificationService
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger
	retention     int

	evaluateSchedule string
	purgeSchedule    string
}

// Option customises the Runner.
type Option func(*Runner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(runner *Runner) {
		if c != nil {
			runner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(runner *Runner) {
		if now != nil {
			runner.now = now
		}
	}
}

// WithRetentionDays adjusts how long notifications are retained before purge.
func WithRetentionDays(days int) Option {
	return func(runner *Runner) {
		if days > 0 {
			runner.retention = days
		}
	}
}

// WithEvaluateSchedule overrides the cron specification for the alert sweep.
func WithEvaluateSchedule(spec string) Option {
	return func(runner *Runner) {
		if spec != "" {
			runner.evaluateSchedule = spec
		}
	}
}

// WithPurgeSchedule overrides the cron specification for notification purges.
func WithPurgeSchedule(spec string) Option {
	return func(runner *Runner) {
		if spec != "" {
			runner.purgeSchedule = spec
		}
	}
}

// NewRunner constructs a Runner with sensible defaults.
func NewRunner(db *gorm.DB, evaluator *alerts.Evaluator, opts ...Option) (*Runner, error) {
	notifications, err := services.NewNotificationService(db)
	if err != nil {
		return nil, err
	}

	runner := &Runner{
		db:               db,
		evaluator:        evaluator,
		notifications:    notifications,
		now:              time.Now,
		retention:        defaultRetentionDays,
		evaluateSchedule: defaultEvaluateSpec,
		purgeSchedule:    defaultPurgeSpec,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(runner)
	}

	if runner.cron == nil {
		runner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return runner, nil
}

// Start registers the jobs with the cron scheduler and launches it.
func (r *Runner) Start() error {
	if r.evaluator != nil {
		if _, err := r.cron.AddFunc(r.evaluateSchedule, func() {
			ctx := context.Background()
			summary, err := r.evaluator.EvaluateAll(ctx)
			if err != nil {
				r.log.Warn("alert sweep failed", zap.Error(err))
				return
			}
			if summary.Fired > 0 {
				r.log.Info("alert sweep fired notifications",
					zap.Int("evaluated", summary.Evaluated),
					zap.Int("fired", summary.Fired))
			}
		}); err != nil {
			return err
		}
	}

	if r.retention > 0 {
		if _, err := r.cron.AddFunc(r.purgeSchedule, func() {
			ctx := context.Background()
			cutoff := r.now().AddDate(0, 0, -r.retention)
			if _, err := r.notifications.PurgeOlderThan(ctx, cutoff); err != nil {
				r.log.Warn("notification purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	r.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (r *Runner) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes all configured jobs sequentially. Primarily used in tests
// and at boot when evaluate_on_boot is set.
func (r *Runner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if r.evaluator != nil {
		if _, err := r.evaluator.EvaluateAll(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if r.retention > 0 {
		cutoff := r.now().AddDate(0, 0, -r.retention)
		if _, err := r.notifications.PurgeOlderThan(ctx, cutoff); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
