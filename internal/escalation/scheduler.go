package escalation

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Scheduler drives the sweeper on a fixed interval. A tick that
// arrives while a sweep is still running is dropped rather than
// queued.
type Scheduler struct {
	Sweeper  Sweeper
	Interval time.Duration
	Logger   *log.Logger

	running atomic.Bool
}

func (s *Scheduler) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// Start blocks until ctx is cancelled, sweeping once immediately and
// then on every interval tick.
func (s *Scheduler) Start(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	s.tick(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger().Printf("escalation sweep still running, skipping tick")
		return
	}
	defer s.running.Store(false)
	if err := s.Sweeper.Run(ctx); err != nil {
		s.logger().Printf("escalation sweep failed: %v", err)
	}
}
