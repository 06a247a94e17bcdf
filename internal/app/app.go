// Package app wires configuration, portal client, destination and notifier into a
// pipeline.Service for the binaries under cmd/.
package app

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"transparencia/internal/config"
	"transparencia/internal/connectors"
	sheetsconnector "transparencia/internal/connectors/sheets"
	"transparencia/internal/notify"
	"transparencia/internal/pipeline"
	"transparencia/internal/portal"
)

func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

type Options struct {
	// OutputPath switches the destination from Google Sheets to a local xlsx workbook.
	OutputPath string
	// Notify enables the summary email when recipients are configured.
	Notify bool
}

func NewService(cfg config.Config, opts Options, logger *slog.Logger) (*pipeline.Service, error) {
	catalog, err := config.LoadCatalog(cfg.FeedsFile)
	if err != nil {
		return nil, err
	}

	var notifier pipeline.Notifier
	if opts.Notify && cfg.MailEnabled() {
		sender, err := notify.NewSender(cfg)
		if err != nil {
			return nil, err
		}
		notifier = notify.New(cfg, sender, logger)
	}

	client := portal.NewClient(cfg, logger)
	return pipeline.NewService(cfg, catalog, client, writerFactory(cfg, opts.OutputPath, logger), notifier, logger), nil
}

func writerFactory(cfg config.Config, outputPath string, logger *slog.Logger) pipeline.WriterFactory {
	if outputPath != "" {
		w := pipeline.NewXLSXWriter(outputPath)
		return func(ctx context.Context) (connectors.TableWriter, error) { return w, nil }
	}
	return func(ctx context.Context) (connectors.TableWriter, error) {
		return sheetsconnector.NewWriter(ctx, cfg, logger)
	}
}
