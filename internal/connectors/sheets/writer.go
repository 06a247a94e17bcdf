package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"transparencia/internal"
	"transparencia/internal/config"
)

const (
	newTabRows    = 1000
	newTabColumns = 20
)

type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *slog.Logger
}

func NewWriter(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Writer, error) {
	if err := cfg.Require("SPREADSHEET_ID", cfg.SpreadsheetID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GOOGLE_CREDENTIALS_FILE", cfg.GoogleCredentialsFile); err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(cfg.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	jwtCfg, err := google.JWTConfigFromJSON(blob, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	if err != nil {
		return nil, err
	}
	return NewWriterWithService(svc, cfg.SpreadsheetID, logger), nil
}

func NewWriterWithService(svc *sheets.Service, spreadsheetID string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{service: svc, spreadsheetID: spreadsheetID, logger: logger}
}

// WriteTable clears the tab and uploads header plus rows starting at A1.
// Missing tabs are created first.
func (w *Writer) WriteTable(ctx context.Context, tab string, table internal.Table) error {
	if err := w.ensureTab(ctx, tab); err != nil {
		return fmt.Errorf("sheets: prepare tab %s: %w", tab, err)
	}

	rng := quoteTab(tab)
	if _, err := w.service.Spreadsheets.Values.Clear(w.spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: clear %s: %w", tab, err)
	}

	body := &sheets.ValueRange{Values: table.Values()}
	if _, err := w.service.Spreadsheets.Values.Update(w.spreadsheetID, rng+"!A1", body).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: update %s: %w", tab, err)
	}

	w.logger.Info("tab updated", "tab", tab, "rows", table.Len())
	return nil
}

func (w *Writer) ensureTab(ctx context.Context, tab string) error {
	ss, err := w.service.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: tab,
					GridProperties: &sheets.GridProperties{
						RowCount:    newTabRows,
						ColumnCount: newTabColumns,
					},
				},
			},
		}},
	}
	if _, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return err
	}
	w.logger.Info("tab created", "tab", tab)
	return nil
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
