// Package lifecycle runs the auto-close sweep: a recurring scan that
// closes every open poll whose closing time has passed.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Store closes expired polls in one bulk operation and reports how many
// changed.
type Store interface {
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

// Notifier pushes cache-invalidation events to viewers.
type Notifier interface {
	PollListUpdated()
}

// Sweeper periodically closes expired polls. A concurrent manual status
// change on the same poll is a harmless race: both writers settle on
// closed.
type Sweeper struct {
	store    Store
	notifier Notifier
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a sweeper. The interval is a tuning knob, not a
// contract; one minute is the usual setting.
func NewSweeper(store Store, notifier Notifier, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{store: store, notifier: notifier, interval: interval, logger: logger}
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("auto-close sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-close sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("auto-close sweep", zap.Error(err))
			}
		}
	}
}

// Sweep closes every expired open poll and, when at least one changed,
// emits a single pollListUpdated event for the whole batch.
func (s *Sweeper) Sweep(ctx context.Context) error {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	closed, err := s.store.CloseExpired(sweepCtx, time.Now())
	if err != nil {
		return err
	}
	if closed > 0 {
		s.logger.Info("polls auto-closed", zap.Int64("count", closed))
		s.notifier.PollListUpdated()
	}
	return nil
}
