package internal

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type FeedKind string

const (
	FeedPayroll FeedKind = "payroll"
	FeedTable   FeedKind = "table"
)

// PayrollHeader is the fixed column order of every payroll tab.
var PayrollHeader = []string{
	"Matricula", "Nome_Servidor", "CPF", "Cargo", "Vinculo", "Secretaria", "Admissao",
	"Mes", "Ano", "Salario_Base", "Remun_Bruta", "Descontos", "Valor_Liquido",
}

type EmployeeRecord struct {
	Matricula    string          `csv:"Matricula"`
	Nome         string          `csv:"Nome_Servidor"`
	CPF          string          `csv:"CPF"`
	Cargo        string          `csv:"Cargo"`
	Vinculo      string          `csv:"Vinculo"`
	Secretaria   string          `csv:"Secretaria"`
	Admissao     string          `csv:"Admissao"`
	Mes          string          `csv:"Mes"`
	Ano          string          `csv:"Ano"`
	SalarioBase  decimal.Decimal `csv:"Salario_Base"`
	RemunBruta   decimal.Decimal `csv:"Remun_Bruta"`
	Descontos    decimal.Decimal `csv:"Descontos"`
	ValorLiquido decimal.Decimal `csv:"Valor_Liquido"`
}

// Values returns the record in PayrollHeader order. Money goes out as float64 so
// spreadsheet destinations store numbers, not text.
func (r EmployeeRecord) Values() []any {
	return []any{
		r.Matricula, r.Nome, r.CPF, r.Cargo, r.Vinculo, r.Secretaria, r.Admissao,
		r.Mes, r.Ano,
		r.SalarioBase.InexactFloat64(),
		r.RemunBruta.InexactFloat64(),
		r.Descontos.InexactFloat64(),
		r.ValorLiquido.InexactFloat64(),
	}
}

type Table struct {
	Header []string
	Rows   [][]any
}

func (t Table) Len() int { return len(t.Rows) }

// Values flattens the table into header + rows, the shape spreadsheet APIs expect.
func (t Table) Values() [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, 0, len(t.Header))
	for _, h := range t.Header {
		header = append(header, h)
	}
	out = append(out, header)
	out = append(out, t.Rows...)
	return out
}

func PayrollTable(records []EmployeeRecord) Table {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Values())
	}
	return Table{Header: PayrollHeader, Rows: rows}
}

type Period struct {
	Month int
	Year  int
}

func (p Period) Previous() Period {
	if p.Month <= 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

func (p Period) String() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

type FeedResult struct {
	Feed   string
	Kind   FeedKind
	Tab    string
	Count  int
	Period *Period
	Err    error
}

func (r FeedResult) OK() bool { return r.Err == nil }

type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []FeedResult
	Err        error
}

func (s RunSummary) Failed() bool {
	if s.Err != nil {
		return true
	}
	for _, r := range s.Results {
		if !r.OK() {
			return true
		}
	}
	return false
}

// Errors joins the global error with every failed feed.
func (s RunSummary) Errors() error {
	errs := []error{s.Err}
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Feed, r.Err))
		}
	}
	return errors.Join(errs...)
}
