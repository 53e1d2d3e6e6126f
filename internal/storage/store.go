// Package storage implements the relational ledger store behind the
// Store interface, with SQLite and Postgres backends.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
)

// Store is the ledger persistence contract. Implementations must make
// RegisterExpense atomic: the lazily created user row and the expense
// row commit or roll back together.
type Store interface {
	// RegisterExpense finds or creates the user for phone and inserts
	// the expense, all in one transaction. Returns the stored expense
	// with ID, UserID and Data filled in.
	RegisterExpense(ctx context.Context, phone string, e core.Expense) (core.Expense, error)

	// SumSince returns the total amount and row count of the user's
	// expenses with timestamp >= since (inclusive). An unknown phone
	// yields a zero total and zero count, not an error.
	SumSince(ctx context.Context, phone string, since time.Time) (decimal.Decimal, int, error)

	// ExpensesSince lists the user's expenses with timestamp >= since,
	// newest first.
	ExpensesSince(ctx context.Context, phone string, since time.Time) ([]core.Expense, error)

	// CategoryTotals groups all of the user's expenses by category and
	// also returns the grand total.
	CategoryTotals(ctx context.Context, phone string) ([]core.CategoryTotal, decimal.Decimal, error)

	// ListExpenses returns all of the user's expenses, newest first.
	ListExpenses(ctx context.Context, phone string) ([]core.Expense, error)

	Close() error
}
