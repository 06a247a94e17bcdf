package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"transparencia/internal"
	"transparencia/internal/config"
)

var saude = config.Department{ID: "300", Name: "saude", Tab: "folha_pagamento_saude"}

func TestPayrollSyncWalksBackToFirstMonthWithData(t *testing.T) {
	fetcher := &fakeFetcher{payroll: map[string][]byte{
		"300@02/2026": []byte("Relação de vínculos\n"),
		"300@01/2026": payrollReport(1, 2026, "ANA", "BIA"),
	}}
	writer := newMemoryWriter()
	s := NewPayrollSync(fetcher, writer, 12, nil)
	s.now = fixedClock(2026, 3, 15)

	res := s.Sync(context.Background(), saude)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Count != 2 || res.Period == nil || res.Period.String() != "01/2026" {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := []string{"300@03/2026", "300@02/2026", "300@01/2026"}
	if strings.Join(fetcher.periods, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected attempts: %v", fetcher.periods)
	}

	table, ok := writer.tabs["folha_pagamento_saude"]
	if !ok {
		t.Fatal("tab not written")
	}
	if table.Len() != 2 || table.Header[0] != "Matricula" || len(table.Header) != len(internal.PayrollHeader) {
		t.Fatalf("unexpected table: %+v", table)
	}
	if table.Rows[0][1] != "ANA" || table.Rows[0][3] != "ENFERMEIRO" {
		t.Fatalf("unexpected first row: %v", table.Rows[0])
	}
}

func TestPayrollSyncCrossesYearBoundary(t *testing.T) {
	fetcher := &fakeFetcher{payroll: map[string][]byte{
		"300@01/2026": payrollReport(12, 2025, "ANA"),
		"300@12/2025": payrollReport(12, 2025, "ANA"),
	}}
	writer := newMemoryWriter()
	s := NewPayrollSync(fetcher, writer, 12, nil)
	s.now = fixedClock(2026, 1, 5)

	res := s.Sync(context.Background(), saude)

	// the january report only carries 2025 rows, so its anchor does not match
	if res.Count != 1 || res.Period.String() != "12/2025" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPayrollSyncWithoutDataIsNotAnError(t *testing.T) {
	fetcher := &fakeFetcher{}
	writer := newMemoryWriter()
	s := NewPayrollSync(fetcher, writer, 3, nil)
	s.now = fixedClock(2026, 3, 15)

	res := s.Sync(context.Background(), saude)

	if res.Err != nil || res.Count != 0 || res.Period != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fetcher.periods) != 3 {
		t.Fatalf("expected 3 attempts, got %v", fetcher.periods)
	}
	if len(writer.tabs) != 0 {
		t.Fatal("destination must stay untouched")
	}
}

func TestPayrollSyncReportsWriteFailure(t *testing.T) {
	fetcher := &fakeFetcher{payroll: map[string][]byte{"300@03/2026": payrollReport(3, 2026, "ANA")}}
	writer := newMemoryWriter()
	writer.err = errors.New("quota exceeded")
	s := NewPayrollSync(fetcher, writer, 12, nil)
	s.now = fixedClock(2026, 3, 15)

	res := s.Sync(context.Background(), saude)
	if res.Err == nil || !strings.Contains(res.Err.Error(), "quota exceeded") {
		t.Fatalf("expected write error, got %+v", res)
	}
}

func TestPayrollSyncStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &fakeFetcher{}
	s := NewPayrollSync(fetcher, newMemoryWriter(), 12, nil)

	res := s.Sync(ctx, saude)
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context error, got %v", res.Err)
	}
	if len(fetcher.periods) != 0 {
		t.Fatalf("no request expected, got %v", fetcher.periods)
	}
}
