package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

type HoldReleaser interface {
	ReleaseExpiredHolds(ctx context.Context, ttl time.Duration) ([]domain.AvailabilityBlock, error)
}

// StartHoldReaper schedules the expired-hold sweep every interval. Runs never
// overlap; a slow sweep delays the next one.
func StartHoldReaper(ctx context.Context, releaser HoldReleaser, interval, ttl time.Duration, logger *zap.Logger) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			sweepCtx, cancel := context.WithTimeout(ctx, interval)
			defer cancel()
			released, err := releaser.ReleaseExpiredHolds(sweepCtx, ttl)
			if err != nil {
				logger.Error("hold sweep failed", zap.Error(err))
				return
			}
			if len(released) > 0 {
				logger.Info("hold sweep released holds", zap.Int("count", len(released)))
			}
		}),
		gocron.WithName("release-expired-holds"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("schedule hold sweep: %w", err)
	}

	scheduler.Start()
	logger.Info("hold reaper started", zap.Duration("interval", interval), zap.Duration("ttl", ttl))
	return scheduler, nil
}
