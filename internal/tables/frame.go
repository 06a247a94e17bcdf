// Package tables loads the flat CSV datasets (earmarks, revenue) and narrows them down
// to the rows of the municipality before they are published.
package tables

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"transparencia/internal"
	"transparencia/internal/config"
	"transparencia/internal/util"
)

var ErrEmptyFile = errors.New("tables: file has no header")

type Frame struct {
	Header  []string
	Skipped int
	df      dataframe.DataFrame
	empty   bool
}

// Load reads a semicolon separated file. Rows whose field count differs from the header
// are dropped and counted in Skipped.
func Load(raw []byte, encoding string) (*Frame, error) {
	var r io.Reader = bytes.NewReader(raw)
	if encoding != "utf8" {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var header []string
	records := [][]string{}
	skipped := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if header == nil {
			if isBlank(row) {
				continue
			}
			header = cleanHeader(row)
			records = append(records, header)
			continue
		}
		if isBlank(row) {
			continue
		}
		if len(row) != len(header) {
			skipped++
			continue
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		records = append(records, row)
	}

	if header == nil {
		return nil, ErrEmptyFile
	}

	f := &Frame{Header: header, Skipped: skipped}
	if len(records) == 1 {
		f.empty = true
		return f, nil
	}

	f.df = dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.HasHeader(true),
		dataframe.NaNValues([]string{}),
	)
	if f.df.Err != nil {
		return nil, fmt.Errorf("tables: load records: %w", f.df.Err)
	}
	return f, nil
}

func (f *Frame) Len() int {
	if f.empty {
		return 0
	}
	return f.df.Nrow()
}

// Filter keeps the rows matching every filter. Values are compared accent- and
// case-insensitively.
func (f *Frame) Filter(filters []config.Filter) error {
	for _, flt := range filters {
		col, ok := f.column(flt.Column)
		if !ok {
			return fmt.Errorf("tables: filter column %q not in header", flt.Column)
		}
		if f.empty {
			continue
		}

		var cmp func(el series.Element) bool
		if flt.Equals != "" {
			want := util.Fold(flt.Equals)
			cmp = func(el series.Element) bool { return util.Fold(el.String()) == want }
		} else {
			want := util.Fold(flt.Contains)
			cmp = func(el series.Element) bool { return strings.Contains(util.Fold(el.String()), want) }
		}

		f.df = f.df.Filter(dataframe.F{Colname: col, Comparator: series.CompFunc, Comparando: cmp})
		if f.df.Err != nil {
			return fmt.Errorf("tables: filter %q: %w", flt.Column, f.df.Err)
		}
		if f.df.Nrow() == 0 {
			f.empty = true
		}
	}
	return nil
}

func (f *Frame) Table() internal.Table {
	t := internal.Table{Header: f.Header}
	if f.empty {
		return t
	}
	records := f.df.Records()
	if len(records) <= 1 {
		return t
	}
	t.Rows = make([][]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// column maps a configured column name to the dataframe column name.
func (f *Frame) column(name string) (string, bool) {
	want := util.Fold(name)
	for i, h := range f.Header {
		if util.Fold(h) != want {
			continue
		}
		if f.empty {
			return h, true
		}
		names := f.df.Names()
		if i < len(names) {
			return names[i], true
		}
	}
	return "", false
}

func cleanHeader(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.TrimPrefix(h, "\u00ef\u00bb\u00bf")
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
