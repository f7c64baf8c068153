// Package scheduler triggers collection runs on a fixed interval and on
// demand, holding concurrency to at most one run at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bidwatch/internal/pipeline"
)

// ErrRunInProgress is returned by TriggerNow when a run is already active.
var ErrRunInProgress = errors.New("collection run already in progress")

// Runner is the collection entry point driven by the scheduler.
type Runner interface {
	RunOnce(ctx context.Context) (pipeline.Stats, error)
}

// Scheduler wraps robfig/cron around a Runner. A tick that fires while a
// run is still in progress is skipped with a log line rather than queued,
// and manual triggers obey the same guard.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	interval time.Duration
	log      *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a Scheduler firing every interval.
func New(runner Runner, interval time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(),
		runner:   runner,
		interval: interval,
		log:      log,
	}
}

// Start registers the periodic job and starts the timer. One run is
// triggered immediately so the store is populated without waiting for the
// first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.trigger(ctx, "tick")
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))

	go s.trigger(ctx, "startup")
	return nil
}

// TriggerNow runs a collection synchronously, outside the timer cadence.
// It returns ErrRunInProgress without running when a run is already active.
func (s *Scheduler) TriggerNow(ctx context.Context) (pipeline.Stats, error) {
	return s.trigger(ctx, "manual")
}

// Stop cancels the timer and waits for an in-flight run to complete.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// trigger runs the pipeline once, unless a run is already in progress.
func (s *Scheduler) trigger(ctx context.Context, cause string) (pipeline.Stats, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Info("collection already running, skipping trigger", zap.String("cause", cause))
		return pipeline.Stats{}, ErrRunInProgress
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.running.Store(false)

	stats, err := s.runner.RunOnce(ctx)
	if err != nil {
		// Reported here for timer ticks; a failed run never stops the
		// schedule, the next tick simply retries.
		s.log.Error("collection run failed", zap.String("cause", cause), zap.Error(err))
	}
	return stats, err
}
