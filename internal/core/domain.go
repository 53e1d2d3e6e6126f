package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type (
	// User is a ledger owner, identified by a phone number string.
	// Rows are created lazily on the first expense from a new number
	// and are never deleted.
	User struct {
		ID    int64
		Phone string
	}

	// Expense is one recorded spending event. Immutable after creation.
	Expense struct {
		ID        int64
		UserID    int64
		Descricao string
		Valor     decimal.Decimal
		Categoria string
		Data      time.Time
	}

	// CategoryTotal is one row of a category-grouped report.
	CategoryTotal struct {
		Categoria string
		Total     decimal.Decimal
	}
)

var (
	ErrEmptyPhone       = errors.New("empty phone number")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Categorias is the vocabulary the extraction prompt constrains the
// model to. Free-text categories outside the list are still accepted
// after normalization; the list only steers the model.
var Categorias = []string{
	"Alimentação",
	"Transporte",
	"Moradia",
	"Saúde",
	"Educação",
	"Lazer",
	"Compras",
	"Contas",
	"Outros",
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Phone) == "" {
		return ErrEmptyPhone
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Descricao) == "" {
		return ErrEmptyDescription
	}
	if len(e.Descricao) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(e.Categoria) == "" {
		return ErrEmptyCategory
	}
	if !e.Valor.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeDescription trims and upper-cases the first rune, the way
// registered descriptions are echoed back to the user.
func NormalizeDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// NormalizeCategory lower-cases the category and title-cases the first
// rune, so "ALIMENTAÇÃO", "alimentação" and "Alimentação" collapse to
// one spelling.
func NormalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// StartOfDay returns midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns midnight UTC of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
