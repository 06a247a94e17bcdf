package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"transparencia/internal"
)

func TestXLSXWriterReplacesOnlyTheWrittenTab(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sync", "transparencia.xlsx")
	w := NewXLSXWriter(out)
	ctx := context.Background()

	first := internal.Table{Header: []string{"Nome", "Valor"}, Rows: [][]any{{"ANA", 10.5}, {"BIA", 3.0}}}
	second := internal.Table{Header: []string{"UF"}, Rows: [][]any{{"SE"}}}
	replaced := internal.Table{Header: []string{"Nome", "Valor"}, Rows: [][]any{{"CAIO", 7.0}}}

	for _, step := range []struct {
		tab   string
		table internal.Table
	}{{"folha", first}, {"emendas", second}, {"folha", replaced}} {
		if err := w.WriteTable(ctx, step.tab, step.table); err != nil {
			t.Fatalf("write %s: %v", step.tab, err)
		}
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 {
		t.Fatalf("expected folha and emendas sheets, got %v", got)
	}

	rows, err := f.GetRows("folha")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "CAIO" || rows[1][1] != "7" {
		t.Fatalf("unexpected folha rows: %v", rows)
	}

	rows, err = f.GetRows("emendas")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "SE" {
		t.Fatalf("unexpected emendas rows: %v", rows)
	}
}

func TestParsePayrollFileToCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "relacao.csv")
	if err := os.WriteFile(input, payrollReport(5, 2024, "ANA", "BIA"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "folha.csv")

	records, err := ParsePayrollFile(context.Background(), input, 2024, out, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	blob, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(blob)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %q", lines)
	}
	if lines[0] != strings.Join(internal.PayrollHeader, ";") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "M1;ANA;001;ENFERMEIRO;EFETIVO;SAUDE;2019-02-01;05;2024;") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestParsePayrollFileToXLSX(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "relacao.csv")
	if err := os.WriteFile(input, payrollReport(5, 2024, "ANA"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "folha.xlsx")

	if _, err := ParsePayrollFile(context.Background(), input, 2024, out, nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(offlineTab)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][1] != "Nome_Servidor" || rows[1][1] != "ANA" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestParsePayrollFileRejectsUnknownOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "relacao.csv")
	if err := os.WriteFile(input, payrollReport(5, 2024, "ANA"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParsePayrollFile(context.Background(), input, 2024, filepath.Join(dir, "out.json"), nil); err == nil {
		t.Fatal("expected error for unsupported output")
	}
}
