// Package payroll parses the headerless "relação de vínculos" payroll reports published
// by the municipal transparency portal.
//
// Each report is Latin-1, semicolon separated, one line per record. Job titles are not a
// column: a group-header line announces a title that applies to every employee line that
// follows it. Financial columns drift between departments and months, so they are located
// relative to the reference-year token instead of by fixed index.
package payroll

import (
	"bufio"
	"bytes"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"transparencia/internal"
	"transparencia/internal/util"
)

const minFields = 5

// Layout holds the column positions of the personal-data fields, which are stable
// across exports.
type Layout struct {
	TaxID        int
	Registration int
	Name         int
	Admission    int
	Bond         int
	Department   int
	Title        int
}

var DefaultLayout = Layout{
	TaxID:        2,
	Registration: 3,
	Name:         4,
	Admission:    5,
	Bond:         7,
	Department:   9,
	Title:        9,
}

var headerMarkers = []string{"CPF", "MATRICULA"}

type lineKind int

const (
	lineNoise lineKind = iota
	lineHeader
	lineTitle
	lineEmployee
)

type Extractor struct {
	layout Layout
	logger *slog.Logger
}

func NewExtractor(layout Layout, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{layout: layout, logger: logger}
}

// Extract parses a whole report with the default layout.
func Extract(raw []byte, year int) ([]internal.EmployeeRecord, int) {
	return NewExtractor(DefaultLayout, nil).Extract(raw, year)
}

func (e *Extractor) Extract(raw []byte, year int) ([]internal.EmployeeRecord, int) {
	records := slices.Collect(e.Records(bytes.NewReader(raw), year))
	return records, len(records)
}

// Records scans the report lazily. Lines that cannot be aligned are skipped; the
// sequence never fails.
func (e *Extractor) Records(r io.Reader, year int) iter.Seq[internal.EmployeeRecord] {
	return func(yield func(internal.EmployeeRecord) bool) {
		reader := bufio.NewReader(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
		anchor := strconv.Itoa(year)
		title := ""
		lineNo := 0

		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				lineNo++
				fields := splitLine(line)
				switch e.classify(fields) {
				case lineTitle:
					title = e.titleOf(fields)
				case lineEmployee:
					record, ok := e.record(fields, anchor, title)
					if !ok {
						e.logger.Debug("payroll line skipped: year anchor not found", "line", lineNo, "year", anchor)
						break
					}
					if strings.TrimSpace(record.Nome) == "" {
						break
					}
					if !yield(record) {
						return
					}
				}
			}
			if err != nil {
				if err != io.EOF {
					e.logger.Warn("payroll scan stopped", "line", lineNo, "error", err)
				}
				return
			}
		}
	}
}

func (e *Extractor) classify(fields []string) lineKind {
	if len(fields) < minFields {
		return lineNoise
	}
	if isHeaderMarker(field(fields, e.layout.TaxID)) || isHeaderMarker(field(fields, e.layout.Registration)) {
		return lineHeader
	}
	taxID := field(fields, e.layout.TaxID)
	if taxID == "" && e.titleOf(fields) != "" {
		return lineTitle
	}
	if taxID != "" && field(fields, e.layout.Name) != "" {
		return lineEmployee
	}
	return lineNoise
}

// titleOf reads the group-header title. Older exports carry one extra leading blank
// column, pushing the title one position right.
func (e *Extractor) titleOf(fields []string) string {
	for _, idx := range []int{e.layout.Title, e.layout.Title + 1} {
		v := field(fields, idx)
		if v != "" && !util.IsMoney(v) {
			return v
		}
	}
	return ""
}

func (e *Extractor) record(fields []string, anchor, title string) (internal.EmployeeRecord, bool) {
	idx := lastIndex(fields, anchor)
	if idx < 0 {
		return internal.EmployeeRecord{}, false
	}

	var trailing []string
	if start := idx + 3; start < len(fields) {
		for _, v := range fields[start:] {
			if v != "" {
				trailing = append(trailing, v)
			}
		}
	}

	net, deductions := "", ""
	switch n := len(trailing); {
	case n == 1:
		net = trailing[0]
	case n >= 2:
		net = trailing[n-1]
		deductions = trailing[n-2]
	}

	return internal.EmployeeRecord{
		Matricula:    field(fields, e.layout.Registration),
		Nome:         field(fields, e.layout.Name),
		CPF:          field(fields, e.layout.TaxID),
		Cargo:        title,
		Vinculo:      field(fields, e.layout.Bond),
		Secretaria:   field(fields, e.layout.Department),
		Admissao:     field(fields, e.layout.Admission),
		Mes:          field(fields, idx-1),
		Ano:          fields[idx],
		SalarioBase:  util.ParseMoney(field(fields, idx+1)),
		RemunBruta:   util.ParseMoney(field(fields, idx+2)),
		Descontos:    util.ParseMoney(deductions),
		ValorLiquido: util.ParseMoney(net),
	}, true
}

func splitLine(line string) []string {
	parts := strings.Split(strings.TrimRight(line, "\r\n"), ";")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(p), `"`))
	}
	return parts
}

func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

// lastIndex searches from the end: the year column sits right before the financial
// block, and earlier columns may repeat the same digits.
func lastIndex(fields []string, value string) int {
	for i := len(fields) - 1; i >= 0; i-- {
		if fields[i] == value {
			return i
		}
	}
	return -1
}

func isHeaderMarker(value string) bool {
	if value == "" {
		return false
	}
	folded := util.Fold(value)
	for _, marker := range headerMarkers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}
