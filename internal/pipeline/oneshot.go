package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"transparencia/internal"
	"transparencia/internal/payroll"
)

const offlineTab = "folha"

// ParsePayrollFile runs the extractor over a report saved on disk. The records are
// written to outputPath when one is given: .csv through gocsv, .xlsx as a single sheet.
func ParsePayrollFile(ctx context.Context, inputPath string, year int, outputPath string, logger *slog.Logger) ([]internal.EmployeeRecord, error) {
	blob, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	records, _ := payroll.NewExtractor(payroll.DefaultLayout, logger).Extract(blob, year)
	if outputPath == "" {
		return records, nil
	}

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".csv":
		err = ExportRecordsToCSV(records, outputPath)
	case ".xlsx":
		err = NewXLSXWriter(outputPath).WriteTable(ctx, offlineTab, internal.PayrollTable(records))
	default:
		err = fmt.Errorf("unsupported output type: %s", outputPath)
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}
