package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"transparencia/internal"
)

type countingRunner struct {
	calls  atomic.Int32
	cancel context.CancelFunc
	stopAt int32
	err    error
}

func (r *countingRunner) RunAll(ctx context.Context) (internal.RunSummary, error) {
	if r.calls.Add(1) >= r.stopAt {
		r.cancel()
	}
	return internal.RunSummary{RunID: "run"}, r.err
}

func TestRunStartsImmediatelyAndRepeats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &countingRunner{cancel: cancel, stopAt: 3}

	done := make(chan error, 1)
	go func() { done <- New(runner, time.Millisecond, nil).Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	if got := runner.calls.Load(); got != 3 {
		t.Fatalf("expected 3 cycles, got %d", got)
	}
}

func TestRunSurvivesCycleErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &countingRunner{cancel: cancel, stopAt: 2, err: errors.New("smtp down")}

	if err := New(runner, time.Millisecond, nil).Run(ctx); err != nil {
		t.Fatalf("cycle errors must not stop the scheduler: %v", err)
	}
	if got := runner.calls.Load(); got != 2 {
		t.Fatalf("expected 2 cycles, got %d", got)
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	if s := New(&countingRunner{}, 0, nil); s.interval != 24*time.Hour {
		t.Fatalf("unexpected interval %s", s.interval)
	}
}
