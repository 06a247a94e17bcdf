package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"transparencia/internal"
	"transparencia/internal/config"
	"transparencia/internal/connectors"
	"transparencia/internal/payroll"
)

const defaultPayrollAttempts = 12

type PayrollSync struct {
	fetcher     Fetcher
	writer      connectors.TableWriter
	extractor   *payroll.Extractor
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
}

func NewPayrollSync(fetcher Fetcher, writer connectors.TableWriter, maxAttempts int, logger *slog.Logger) *PayrollSync {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultPayrollAttempts
	}
	return &PayrollSync{
		fetcher:     fetcher,
		writer:      writer,
		extractor:   payroll.NewExtractor(payroll.DefaultLayout, logger),
		maxAttempts: maxAttempts,
		now:         time.Now,
		logger:      logger,
	}
}

// Sync publishes the most recent month that has data, starting at the current month and
// walking back one month per attempt. A department with no data at all is not an error.
func (s *PayrollSync) Sync(ctx context.Context, dept config.Department) internal.FeedResult {
	res := internal.FeedResult{Feed: "folha_" + dept.Name, Kind: internal.FeedPayroll, Tab: dept.Tab}
	period := currentPeriod(s.now())

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		records := s.collect(ctx, dept, period)
		s.logger.Info("payroll attempt", "dept", dept.ID, "period", period.String(), "attempt", attempt, "records", len(records))
		if len(records) > 0 {
			if err := s.writer.WriteTable(ctx, dept.Tab, internal.PayrollTable(records)); err != nil {
				res.Err = fmt.Errorf("write %s: %w", dept.Tab, err)
				return res
			}
			p := period
			res.Count = len(records)
			res.Period = &p
			return res
		}
		period = period.Previous()
	}

	s.logger.Warn("payroll has no data in range", "dept", dept.ID, "attempts", s.maxAttempts)
	return res
}

// collect treats a failed download as an empty month.
func (s *PayrollSync) collect(ctx context.Context, dept config.Department, p internal.Period) []internal.EmployeeRecord {
	raw, err := s.fetcher.FetchPayroll(ctx, dept.ID, p)
	if err != nil {
		s.logger.Warn("payroll download failed", "dept", dept.ID, "period", p.String(), "error", err)
		return nil
	}
	records, _ := s.extractor.Extract(raw, p.Year)
	return records
}
