package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"transparencia/internal"
	"transparencia/internal/config"
	"transparencia/internal/connectors"
)

// WriterFactory opens the destination for one run.
type WriterFactory func(ctx context.Context) (connectors.TableWriter, error)

type Service struct {
	cfg        config.Config
	catalog    *config.Catalog
	fetcher    Fetcher
	openWriter WriterFactory
	notifier   Notifier
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(cfg config.Config, catalog *config.Catalog, fetcher Fetcher, openWriter WriterFactory, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		cfg:        cfg,
		catalog:    catalog,
		fetcher:    fetcher,
		openWriter: openWriter,
		notifier:   notifier,
		now:        time.Now,
		logger:     logger,
	}
}

// RunAll syncs every enabled table feed and then every payroll department. Feed failures
// are recorded in the summary; only a destination that cannot be opened aborts the run.
// The summary is always handed to the notifier; its error is the only one returned.
func (s *Service) RunAll(ctx context.Context) (internal.RunSummary, error) {
	summary := s.begin()
	log := s.logger.With("run_id", summary.RunID)
	log.Info("sync started", "tables", len(s.catalog.Tables), "departments", len(s.catalog.Payroll.Departments))

	writer, err := s.openWriter(ctx)
	if err != nil {
		summary.Err = fmt.Errorf("open destination: %w", err)
		log.Error("sync aborted", "error", summary.Err)
		return s.finish(ctx, summary)
	}

	tableSync := s.tableSync(writer, log)
	for _, feed := range s.catalog.Tables {
		if !feed.Enabled() {
			log.Info("feed disabled, skipping", "feed", feed.Name)
			continue
		}
		summary.Results = append(summary.Results, s.record(log, tableSync.Sync(ctx, feed)))
	}

	payrollSync := s.payrollSync(writer, log)
	for _, dept := range s.catalog.Payroll.Departments {
		summary.Results = append(summary.Results, s.record(log, payrollSync.Sync(ctx, dept)))
	}

	return s.finish(ctx, summary)
}

// RunTable syncs a single table feed by name, without notification.
func (s *Service) RunTable(ctx context.Context, name string) (internal.FeedResult, error) {
	feed, ok := s.catalog.Table(name)
	if !ok {
		return internal.FeedResult{}, fmt.Errorf("unknown feed: %s", name)
	}
	if !feed.Enabled() {
		return internal.FeedResult{}, fmt.Errorf("feed %s has no source configured", name)
	}
	writer, err := s.openWriter(ctx)
	if err != nil {
		return internal.FeedResult{}, fmt.Errorf("open destination: %w", err)
	}
	return s.record(s.logger, s.tableSync(writer, s.logger).Sync(ctx, feed)), nil
}

// RunPayroll syncs a single payroll department by id or name, without notification.
func (s *Service) RunPayroll(ctx context.Context, dept string) (internal.FeedResult, error) {
	d, ok := s.catalog.Department(dept)
	if !ok {
		return internal.FeedResult{}, fmt.Errorf("unknown department: %s", dept)
	}
	writer, err := s.openWriter(ctx)
	if err != nil {
		return internal.FeedResult{}, fmt.Errorf("open destination: %w", err)
	}
	return s.record(s.logger, s.payrollSync(writer, s.logger).Sync(ctx, d)), nil
}

func (s *Service) begin() internal.RunSummary {
	return internal.RunSummary{RunID: uuid.NewString(), StartedAt: s.now()}
}

func (s *Service) finish(ctx context.Context, summary internal.RunSummary) (internal.RunSummary, error) {
	summary.FinishedAt = s.now()
	s.logger.Info("sync finished", "run_id", summary.RunID, "feeds", len(summary.Results), "failed", summary.Failed())

	if s.notifier == nil {
		return summary, nil
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Service) tableSync(writer connectors.TableWriter, log *slog.Logger) *TableSync {
	ts := NewTableSync(s.fetcher, writer, log)
	ts.now = s.now
	return ts
}

func (s *Service) payrollSync(writer connectors.TableWriter, log *slog.Logger) *PayrollSync {
	ps := NewPayrollSync(s.fetcher, writer, s.cfg.PayrollMaxAttempts, log)
	ps.now = s.now
	return ps
}

func (s *Service) record(log *slog.Logger, res internal.FeedResult) internal.FeedResult {
	if res.Err != nil {
		log.Error("feed failed", "feed", res.Feed, "error", res.Err)
	}
	return res
}
