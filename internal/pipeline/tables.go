package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"transparencia/internal"
	"transparencia/internal/config"
	"transparencia/internal/connectors"
	"transparencia/internal/tables"
)

type TableSync struct {
	fetcher Fetcher
	writer  connectors.TableWriter
	now     func() time.Time
	logger  *slog.Logger
}

func NewTableSync(fetcher Fetcher, writer connectors.TableWriter, logger *slog.Logger) *TableSync {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TableSync{fetcher: fetcher, writer: writer, now: time.Now, logger: logger}
}

// Sync downloads one flat dataset, applies the feed filters and replaces the tab. When no
// row survives the filters the tab is left untouched.
func (s *TableSync) Sync(ctx context.Context, feed config.TableFeed) internal.FeedResult {
	res := internal.FeedResult{Feed: feed.Name, Kind: internal.FeedTable, Tab: feed.Tab}

	url, err := s.resolve(ctx, feed)
	if err != nil {
		res.Err = err
		return res
	}

	raw, err := s.fetcher.FetchFile(ctx, url)
	if err != nil {
		res.Err = fmt.Errorf("download: %w", err)
		return res
	}

	frame, err := tables.Load(raw, feed.Encoding)
	if err != nil {
		res.Err = err
		return res
	}
	if frame.Skipped > 0 {
		s.logger.Debug("malformed rows skipped", "feed", feed.Name, "rows", frame.Skipped)
	}
	if err := frame.Filter(feed.Filters); err != nil {
		res.Err = err
		return res
	}

	table := frame.Table()
	if table.Len() == 0 {
		s.logger.Warn("nothing to save", "feed", feed.Name)
		return res
	}

	if err := s.writer.WriteTable(ctx, feed.Tab, table); err != nil {
		res.Err = fmt.Errorf("write %s: %w", feed.Tab, err)
		return res
	}
	res.Count = table.Len()
	s.logger.Info("table feed synced", "feed", feed.Name, "tab", feed.Tab, "rows", res.Count)
	return res
}

// resolve prefers the current CKAN resource link and falls back to the configured url.
func (s *TableSync) resolve(ctx context.Context, feed config.TableFeed) (string, error) {
	p := currentPeriod(s.now())
	direct := feed.SourceURL(p.Month, p.Year)
	if feed.DatasetURL == "" {
		return direct, nil
	}

	url, err := s.fetcher.ResolveCKANResource(ctx, feed.DatasetURL, feed.ResourceMatch)
	if err == nil {
		return url, nil
	}
	if direct == "" {
		return "", fmt.Errorf("resolve dataset: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		return "", err
	}
	s.logger.Warn("dataset page lookup failed, using direct url", "feed", feed.Name, "error", err)
	return direct, nil
}
