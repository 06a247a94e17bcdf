package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"transparencia/internal"
)

const scratchSheet = "_scratch"

// XLSXWriter stores every tab as a sheet of one local workbook. Existing sheets are
// replaced, the others are kept.
type XLSXWriter struct {
	path string
	mu   sync.Mutex
}

func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) WriteTable(ctx context.Context, tab string, table internal.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, fresh, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := resetSheet(f, tab, fresh); err != nil {
		return fmt.Errorf("xlsx: sheet %s: %w", tab, err)
	}

	for i, row := range table.Values() {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(tab, cell, &row); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+1, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(w.path)
}

func (w *XLSXWriter) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return f, false, nil
}

// resetSheet leaves an empty sheet named tab. A brand new workbook has its default sheet
// renamed instead of kept alongside.
func resetSheet(f *excelize.File, tab string, fresh bool) error {
	if fresh {
		return f.SetSheetName(f.GetSheetName(0), tab)
	}

	idx, err := f.GetSheetIndex(tab)
	if err != nil {
		return err
	}
	scratch := false
	if idx >= 0 {
		// a workbook cannot lose its last sheet
		if _, err := f.NewSheet(scratchSheet); err != nil {
			return err
		}
		if err := f.DeleteSheet(tab); err != nil {
			return err
		}
		scratch = true
	}

	if _, err := f.NewSheet(tab); err != nil {
		return err
	}
	if scratch {
		if err := f.DeleteSheet(scratchSheet); err != nil {
			return err
		}
	}
	idx, err = f.GetSheetIndex(tab)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	return nil
}

// ExportRecordsToCSV writes payroll records with the payroll header, separated by ';'.
func ExportRecordsToCSV(records []internal.EmployeeRecord, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := gocsv.MarshalCSV(&records, gocsv.NewSafeCSVWriter(w)); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return f.Close()
}
