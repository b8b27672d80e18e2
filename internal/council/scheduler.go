// ABOUTME: Background timer that settles expired rounds and keeps one round open
// ABOUTME: Runs one pass at startup, then one per tick until its context ends

package council

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives SweepExpired on a fixed interval
type Scheduler struct {
	council  *Council
	interval time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

// NewScheduler creates a Scheduler ticking at the council's TickInterval
func NewScheduler(c *Council) *Scheduler {
	interval := c.cfg.TickInterval
	if interval <= 0 {
		interval = DefaultConfig().TickInterval
	}
	return &Scheduler{
		council:  c,
		interval: interval,
		logger:   c.base.With("component", "scheduler"),
		done:     make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled. Sweep failures are logged and retried on
// the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)

	s.logger.Info("scheduler started", "interval", s.interval)
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Done is closed once Run returns
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) tick(ctx context.Context) {
	closed, err := s.council.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("sweep failed", "error", err)
		return
	}
	if closed > 0 {
		s.logger.Info("settled expired rounds", "count", closed)
	}
}
