package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidwatch/internal/pipeline"
	"bidwatch/internal/scheduler"
)

// blockingRunner counts runs and holds each one until released.
type blockingRunner struct {
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) RunOnce(context.Context) (pipeline.Stats, error) {
	r.runs.Add(1)
	r.started <- struct{}{}
	<-r.release
	return pipeline.Stats{Fetched: 3, Eligible: 2, Inserted: 1}, r.err
}

// instantRunner completes immediately.
type instantRunner struct {
	runs atomic.Int32
	err  error
}

func (r *instantRunner) RunOnce(context.Context) (pipeline.Stats, error) {
	r.runs.Add(1)
	return pipeline.Stats{}, r.err
}

func TestStart_RunsImmediately(t *testing.T) {
	runner := newBlockingRunner()
	s := scheduler.New(runner, time.Hour, nil)

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("startup run did not fire")
	}
	close(runner.release)
	s.Stop()

	assert.Equal(t, int32(1), runner.runs.Load())
}

func TestTriggerNow_SkippedWhileRunInProgress(t *testing.T) {
	runner := newBlockingRunner()
	s := scheduler.New(runner, time.Hour, nil)

	require.NoError(t, s.Start(context.Background()))
	<-runner.started // startup run now holds the guard

	_, err := s.TriggerNow(context.Background())
	assert.ErrorIs(t, err, scheduler.ErrRunInProgress)

	close(runner.release)
	s.Stop()
	assert.Equal(t, int32(1), runner.runs.Load(), "skipped trigger must not queue a run")
}

func TestTriggerNow_RunsWhenIdle(t *testing.T) {
	runner := &instantRunner{}
	s := scheduler.New(runner, time.Hour, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// Wait for the startup run to finish before triggering manually.
	require.Eventually(t, func() bool { return runner.runs.Load() >= 1 },
		2*time.Second, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for {
		stats, err := s.TriggerNow(context.Background())
		if err == nil {
			assert.Equal(t, pipeline.Stats{}, stats)
			break
		}
		require.ErrorIs(t, err, scheduler.ErrRunInProgress)
		if time.Now().After(deadline) {
			t.Fatal("manual trigger never got the guard")
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.GreaterOrEqual(t, runner.runs.Load(), int32(2))
}

func TestTriggerNow_ReportsRunError(t *testing.T) {
	wantErr := errors.New("fetch: connection refused")
	runner := &instantRunner{err: wantErr}
	s := scheduler.New(runner, time.Hour, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return runner.runs.Load() >= 1 },
		2*time.Second, 10*time.Millisecond)

	// A failed run releases the guard; the next trigger runs again.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := s.TriggerNow(context.Background())
		if errors.Is(err, wantErr) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected run error, got %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStop_WaitsForInFlightRun(t *testing.T) {
	runner := newBlockingRunner()
	s := scheduler.New(runner, time.Hour, nil)
	require.NoError(t, s.Start(context.Background()))
	<-runner.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a run was still in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the run completed")
	}
}

func TestScheduler_PeriodicTicks(t *testing.T) {
	runner := &instantRunner{}
	s := scheduler.New(runner, time.Second, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// startup run + at least one tick
	require.Eventually(t, func() bool { return runner.runs.Load() >= 2 },
		5*time.Second, 50*time.Millisecond)
}
