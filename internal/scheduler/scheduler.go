package scheduler

import (
	"context"
	"log/slog"
	"time"

	"transparencia/internal"
)

type Runner interface {
	RunAll(ctx context.Context) (internal.RunSummary, error)
}

type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

func New(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Run syncs immediately and then once per interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.runCycle(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	summary, err := s.runner.RunAll(ctx)
	if err != nil {
		s.logger.Error("sync cycle error", "run_id", summary.RunID, "error", err)
	}
	if summary.Failed() {
		s.logger.Warn("sync cycle finished with failures", "run_id", summary.RunID, "error", summary.Errors())
		return
	}
	s.logger.Info("sync cycle done", "run_id", summary.RunID, "feeds", len(summary.Results), "next_in", s.interval.String())
}
