// Package core holds the ledger domain types and amount parsing.
//
// This file contains the amount parser applied to the extraction
// output before anything is written to storage.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts the amount string produced by the extraction
// step into a decimal. It accepts both dot (25.50) and comma (25,50)
// separators and an optional "R$" prefix. Non-numeric or non-positive
// input returns ErrInvalidAmount, which must abort the write.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// "1.234,56" style: thousands dot plus decimal comma.
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatBRL renders a decimal as a Brazilian currency string, e.g.
// "R$ 25,50".
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + strings.ReplaceAll(d.StringFixed(2), ".", ",")
}
