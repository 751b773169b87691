// Package scheduler runs the periodic analytics refresh.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RefreshFunc recomputes the analytics snapshot of the current day.
type RefreshFunc func(ctx context.Context) error

// Scheduler refreshes analytics once shortly after Start and then on a
// cron schedule (UTC).
type Scheduler struct {
	cron         *cron.Cron
	refresh      RefreshFunc
	startupDelay time.Duration
	timeout      time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	startup *time.Timer
	stopped bool
	running sync.WaitGroup
}

func New(spec string, startupDelay time.Duration, refresh RefreshFunc, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		refresh:      refresh,
		startupDelay: startupDelay,
		timeout:      time.Minute,
		log:          log.Named("scheduler"),
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid analytics schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startup = time.AfterFunc(s.startupDelay, s.run)
	s.cron.Start()
	s.log.Info("Analytics scheduler started", zap.Duration("startup_delay", s.startupDelay))
}

// Stop cancels a pending startup run and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.startup != nil {
		s.startup.Stop()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.running.Wait()
	s.log.Info("Analytics scheduler stopped")
}

func (s *Scheduler) run() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.refresh(ctx); err != nil {
		s.log.Error("Analytics refresh failed", zap.Error(err))
		return
	}
	s.log.Info("Analytics refresh complete", zap.Duration("took", time.Since(start)))
}
