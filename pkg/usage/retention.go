package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/pcp/pkg/persistence"
	"github.com/robfig/cron/v3"
)

// Retention deletes usage records older than a fixed window on a cron schedule.
type Retention struct {
	usage  persistence.UsageRepository
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
	cron   *cron.Cron
}

func NewRetention(usage persistence.UsageRepository, days int, logger *slog.Logger) *Retention {
	return &Retention{
		usage:  usage,
		window: time.Duration(days) * 24 * time.Hour,
		logger: logger,
		now:    time.Now,
	}
}

// Sweep deletes every record older than the window and returns how many went.
func (r *Retention) Sweep(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.window)

	deleted, err := r.usage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete usage before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	r.logger.InfoContext(ctx, "usage retention sweep finished", "deleted", deleted, "cutoff", cutoff)

	return deleted, nil
}

// Start schedules Sweep on schedule, for example "@daily".
func (r *Retention) Start(ctx context.Context, schedule string) error {
	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := r.cron.AddFunc(schedule, func() {
		_, err := r.Sweep(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "usage retention sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	r.cron.Start()

	return nil
}

// Stop waits for a running sweep and stops the schedule.
func (r *Retention) Stop() {
	if r.cron == nil {
		return
	}

	<-r.cron.Stop().Done()
}
