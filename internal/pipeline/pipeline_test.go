package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"transparencia/internal"
)

type fakeFetcher struct {
	mu       sync.Mutex
	payroll  map[string][]byte
	files    map[string][]byte
	ckanURL  string
	ckanErr  error
	periods  []string
	fetched  []string
	resolved []string
}

func (f *fakeFetcher) FetchPayroll(ctx context.Context, deptID string, p internal.Period) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periods = append(f.periods, deptID+"@"+p.String())
	blob, ok := f.payroll[deptID+"@"+p.String()]
	if !ok {
		return nil, errors.New("status 503")
	}
	return blob, nil
}

func (f *fakeFetcher) FetchFile(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	blob, ok := f.files[url]
	if !ok {
		return nil, fmt.Errorf("portal: %s: status 404", url)
	}
	return blob, nil
}

func (f *fakeFetcher) ResolveCKANResource(ctx context.Context, datasetURL, match string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, datasetURL)
	if f.ckanErr != nil {
		return "", f.ckanErr
	}
	return f.ckanURL, nil
}

type memoryWriter struct {
	tabs map[string]internal.Table
	err  error
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{tabs: map[string]internal.Table{}}
}

func (w *memoryWriter) WriteTable(ctx context.Context, tab string, table internal.Table) error {
	if w.err != nil {
		return w.err
	}
	w.tabs[tab] = table
	return nil
}

type captureNotifier struct {
	summaries []internal.RunSummary
	err       error
}

func (n *captureNotifier) Notify(ctx context.Context, summary internal.RunSummary) error {
	n.summaries = append(n.summaries, summary)
	return n.err
}

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 9, 0, 0, 0, time.UTC) }
}

func payrollReport(month, year int, names ...string) []byte {
	lines := []string{
		"Relação de vínculos;;;;;",
		"1;;CPF;Matrícula;Nome;Admissão;;Vínculo",
		"1;;;;;;;;;ENFERMEIRO;;",
	}
	for i, name := range names {
		lines = append(lines, fmt.Sprintf("1;1;%03d;M%d;%s;2019-02-01;;EFETIVO;;SAUDE;;%02d;%d;2.000,00;2.100,00;100,00;2.000,00", i+1, i+1, name, month, year))
	}
	return []byte(strings.Join(lines, "\n"))
}
