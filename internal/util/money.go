package util

import (
	"strings"

	"github.com/shopspring/decimal"
)

var moneyCleaner = strings.NewReplacer("R$", "", " ", "", " ", "", ".", "")

// ParseMoney reads a pt-BR formatted amount ("1.234,56"). Empty, "-" and anything
// unparsable yield zero.
func ParseMoney(input string) decimal.Decimal {
	v := strings.TrimSpace(input)
	if !strings.ContainsAny(v, "0123456789") {
		return decimal.Zero
	}
	v = moneyCleaner.Replace(v)
	v = strings.ReplaceAll(v, ",", ".")
	parsed, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

// IsMoney reports whether the token looks like a pt-BR amount: at least one digit and a
// decimal comma.
func IsMoney(input string) bool {
	v := strings.TrimSpace(input)
	return strings.ContainsAny(v, "0123456789") && strings.Contains(v, ",")
}
