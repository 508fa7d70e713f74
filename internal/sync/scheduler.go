package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrSyncRunning is returned when a cycle is requested while another is
// still in flight.
var ErrSyncRunning = errors.New("a sync cycle is already running")

// Runner runs one sync cycle.
type Runner interface {
	RunCycle(ctx context.Context) error
}

// Scheduler triggers sync cycles on a fixed interval and on demand,
// guaranteeing that at most one cycle runs at a time. A tick that arrives
// while a cycle is still running is skipped, not queued.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	log      zerolog.Logger
	running  atomic.Bool
}

func NewScheduler(runner Runner, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, log: log}
}

// Running reports whether a cycle is currently in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// RunOnce runs a single cycle synchronously, or returns ErrSyncRunning.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSyncRunning
	}
	defer s.running.Store(false)
	return s.runner.RunCycle(ctx)
}

// Trigger starts a cycle in the background, or returns ErrSyncRunning. The
// cycle is detached from the caller's context so an HTTP client hanging up
// does not abort it.
func (s *Scheduler) Trigger() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSyncRunning
	}
	go func() {
		defer s.running.Store(false)
		if err := s.runner.RunCycle(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("sync cycle failed")
		}
	}()
	return nil
}

// Run syncs immediately, then on every interval tick until the context is
// cancelled. Cycle failures are logged and retried on the next tick, never
// fatal.
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	switch err := s.RunOnce(ctx); {
	case errors.Is(err, ErrSyncRunning):
		s.log.Warn().Msg("previous sync cycle still running; skipping tick")
	case err != nil:
		s.log.Error().Err(err).Msg("sync cycle failed")
	}
}
