package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"transparencia/internal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

func newTestWriter(t *testing.T, existing string, calls *[]recorded) *Writer {
	t.Helper()
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
		}
		*calls = append(*calls, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
		if r.Method == http.MethodGet {
			return jsonResponse(`{"sheets":[{"properties":{"title":"` + existing + `"}}]}`), nil
		}
		return jsonResponse(`{}`), nil
	})}

	svc, err := sheets.NewService(context.Background(), option.WithHTTPClient(client), option.WithEndpoint("https://sheets.test/"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWriterWithService(svc, "planilha-1", nil)
}

func sampleTable() internal.Table {
	return internal.Table{
		Header: []string{"Nome", "Valor"},
		Rows:   [][]any{{"ANA", 1500.5}, {"BRUNO", 900.0}},
	}
}

func TestWriteTableClearsThenUpdatesExistingTab(t *testing.T) {
	var calls []recorded
	w := newTestWriter(t, "emendas", &calls)

	if err := w.WriteTable(context.Background(), "emendas", sampleTable()); err != nil {
		t.Fatalf("write: %v", err)
	}

	if len(calls) != 3 {
		t.Fatalf("expected get, clear, update; got %d calls: %+v", len(calls), calls)
	}
	if !strings.HasSuffix(calls[1].path, ":clear") {
		t.Fatalf("second call should clear, got %s %s", calls[1].method, calls[1].path)
	}
	update := calls[2]
	if update.method != http.MethodPut || !strings.Contains(update.query, "valueInputOption=RAW") {
		t.Fatalf("unexpected update call: %+v", update)
	}
	if !strings.Contains(update.path, "emendas") || !strings.HasSuffix(update.path, "!A1") {
		t.Fatalf("update should target the tab at A1, got %s", update.path)
	}

	var vr sheets.ValueRange
	if err := json.Unmarshal([]byte(update.body), &vr); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(vr.Values) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(vr.Values))
	}
	if vr.Values[0][0] != "Nome" || vr.Values[1][0] != "ANA" {
		t.Fatalf("unexpected values: %v", vr.Values)
	}
}

func TestWriteTableCreatesMissingTab(t *testing.T) {
	var calls []recorded
	w := newTestWriter(t, "outra", &calls)

	if err := w.WriteTable(context.Background(), "folha_pagamento_saude", sampleTable()); err != nil {
		t.Fatalf("write: %v", err)
	}

	if len(calls) != 4 {
		t.Fatalf("expected get, batchUpdate, clear, update; got %d", len(calls))
	}
	add := calls[1]
	if !strings.HasSuffix(add.path, ":batchUpdate") {
		t.Fatalf("expected batchUpdate, got %s", add.path)
	}
	if !strings.Contains(add.body, `"title":"folha_pagamento_saude"`) || !strings.Contains(add.body, `"rowCount":1000`) {
		t.Fatalf("unexpected addSheet body: %s", add.body)
	}
}

func TestQuoteTab(t *testing.T) {
	if got := quoteTab("folha geral"); got != "'folha geral'" {
		t.Fatalf("got %q", got)
	}
	if got := quoteTab("d'agua"); got != "'d''agua'" {
		t.Fatalf("got %q", got)
	}
}
