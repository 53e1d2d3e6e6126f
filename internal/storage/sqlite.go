package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
)

// sqliteTimeLayout is fixed-width UTC so that string comparison on the
// data column matches chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05"

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db, "sqlite"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) RegisterExpense(ctx context.Context, phone string, e core.Expense) (core.Expense, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The UNIQUE constraint plus DO NOTHING makes two simultaneous
	// first-time messages from the same number converge on one row.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (phone_number) VALUES (?) ON CONFLICT(phone_number) DO NOTHING`,
		phone); err != nil {
		return core.Expense{}, fmt.Errorf("upsert user: %w", err)
	}

	var userID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE phone_number = ?`, phone).Scan(&userID); err != nil {
		return core.Expense{}, fmt.Errorf("select user id: %w", err)
	}

	if e.Data.IsZero() {
		e.Data = time.Now().UTC()
	}
	e.Data = e.Data.UTC().Truncate(time.Second)
	e.UserID = userID

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO gastos (descricao, valor, categoria, data, user_id)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		e.Descricao, e.Valor, e.Categoria, e.Data.Format(sqliteTimeLayout), userID,
	).Scan(&e.ID); err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"user_id", userID,
		"categoria", e.Categoria,
		"valor", e.Valor.String())

	return e, nil
}

func (s *SQLiteStore) SumSince(ctx context.Context, phone string, since time.Time) (decimal.Decimal, int, error) {
	// Summed in Go: SQLite's SUM over a NUMERIC column accumulates in
	// floating point, which drifts on large ledgers.
	rows, err := s.db.QueryContext(ctx,
		`SELECT CAST(g.valor AS TEXT)
		 FROM gastos g
		 JOIN users u ON u.id = g.user_id
		 WHERE u.phone_number = ? AND g.data >= ?`,
		phone, since.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("sum expenses: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	count := 0
	for rows.Next() {
		var valor string
		if err := rows.Scan(&valor); err != nil {
			return decimal.Zero, 0, fmt.Errorf("scan expense amount: %w", err)
		}
		v, err := decimal.NewFromString(valor)
		if err != nil {
			return decimal.Zero, 0, fmt.Errorf("parse expense amount %q: %w", valor, err)
		}
		total = total.Add(v)
		count++
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, 0, fmt.Errorf("iterate expense amounts: %w", err)
	}
	return total, count, nil
}

func (s *SQLiteStore) ExpensesSince(ctx context.Context, phone string, since time.Time) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.user_id, g.descricao, g.valor, g.categoria, g.data
		 FROM gastos g
		 JOIN users u ON u.id = g.user_id
		 WHERE u.phone_number = ? AND g.data >= ?
		 ORDER BY g.data DESC, g.id DESC`,
		phone, since.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("list expenses since: %w", err)
	}
	defer rows.Close()

	return scanSQLiteExpenses(rows)
}

func (s *SQLiteStore) ListExpenses(ctx context.Context, phone string) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.user_id, g.descricao, g.valor, g.categoria, g.data
		 FROM gastos g
		 JOIN users u ON u.id = g.user_id
		 WHERE u.phone_number = ?
		 ORDER BY g.data DESC, g.id DESC`,
		phone)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	return scanSQLiteExpenses(rows)
}

func (s *SQLiteStore) CategoryTotals(ctx context.Context, phone string) ([]core.CategoryTotal, decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.categoria, CAST(g.valor AS TEXT)
		 FROM gastos g
		 JOIN users u ON u.id = g.user_id
		 WHERE u.phone_number = ?`,
		phone)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	byCategory := make(map[string]decimal.Decimal)
	grand := decimal.Zero
	for rows.Next() {
		var categoria, valor string
		if err := rows.Scan(&categoria, &valor); err != nil {
			return nil, decimal.Zero, fmt.Errorf("scan category total: %w", err)
		}
		v, err := decimal.NewFromString(valor)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("parse expense amount %q: %w", valor, err)
		}
		byCategory[categoria] = byCategory[categoria].Add(v)
		grand = grand.Add(v)
	}
	if err := rows.Err(); err != nil {
		return nil, decimal.Zero, fmt.Errorf("iterate category totals: %w", err)
	}

	totals := make([]core.CategoryTotal, 0, len(byCategory))
	for categoria, total := range byCategory {
		totals = append(totals, core.CategoryTotal{Categoria: categoria, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].Total.Equal(totals[j].Total) {
			return totals[i].Total.GreaterThan(totals[j].Total)
		}
		return totals[i].Categoria < totals[j].Categoria
	})
	return totals, grand, nil
}

func scanSQLiteExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var out []core.Expense
	for rows.Next() {
		var (
			e    core.Expense
			data string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Descricao, &e.Valor, &e.Categoria, &data); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		t, err := time.ParseInLocation(sqliteTimeLayout, data, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse expense timestamp %q: %w", data, err)
		}
		e.Data = t
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}
