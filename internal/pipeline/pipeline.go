// Package pipeline runs the feeds of one sync: it fetches each source, turns it into a
// table and publishes it through a connectors.TableWriter.
package pipeline

import (
	"context"
	"time"

	"transparencia/internal"
)

// Fetcher is the subset of portal.Client the pipeline needs.
type Fetcher interface {
	FetchPayroll(ctx context.Context, deptID string, p internal.Period) ([]byte, error)
	FetchFile(ctx context.Context, url string) ([]byte, error)
	ResolveCKANResource(ctx context.Context, datasetURL, match string) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, summary internal.RunSummary) error
}

func currentPeriod(now time.Time) internal.Period {
	return internal.Period{Month: int(now.Month()), Year: now.Year()}
}
