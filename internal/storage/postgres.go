package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
)

type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db, "postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) RegisterExpense(ctx context.Context, phone string, e core.Expense) (core.Expense, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (phone_number) VALUES ($1) ON CONFLICT (phone_number) DO NOTHING`,
		phone); err != nil {
		return core.Expense{}, fmt.Errorf("upsert user: %w", err)
	}

	var userID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE phone_number = $1`, phone).Scan(&userID); err != nil {
		return core.Expense{}, fmt.Errorf("select user id: %w", err)
	}

	if e.Data.IsZero() {
		e.Data = time.Now().UTC()
	}
	e.Data = e.Data.UTC().Truncate(time.Second)
	e.UserID = userID

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO gastos (descricao, valor, categoria, data, user_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.Descricao, e.Valor, e.Categoria, e.Data, userID,
	).Scan(&e.ID); err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit: %w", err)
	}

	return e, nil
}

func (s *PostgresStore) SumSince(ctx context.Context, phone string, since time.Time) (decimal.Decimal, int, error) {
	var (
		total string
		count int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(g.valor), 0)::text, COUNT(*)
		 FROM gastos g
		 JOIN users u ON u.id = g.user_id
		 WHERE u.phone_number = $1 AND g.data >= $2`,
		phone, since.UTC(),
	).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("sum expenses: %w", err)
	}
	sum, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("parse sum %q: %w", total, err)
	}
	return sum, count, nil
}

func (s *PostgresStore) ExpensesSince(ctx context.Context, phone string, since time.Time) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.user_id, g.descricao, g.valor::text, g.categoria, g.data
		 FROM gastos g
		 JOIN users u ON u.id = g.user_id
		 WHERE u.phone_number = $1 AND g.data >= $2
		 ORDER BY g.data DESC, g.id DESC`,
		phone, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expenses since: %w", err)
	}
	defer rows.Close()

	return scanPostgresExpenses(rows)
}

func (s *PostgresStore) ListExpenses(ctx context.Context, phone string) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.user_id, g.descricao, g.valor::text, g.categoria, g.data
		 FROM gastos g
		 JOIN users u ON u.id = g.user_id
		 WHERE u.phone_number = $1
		 ORDER BY g.data DESC, g.id DESC`,
		phone)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	return scanPostgresExpenses(rows)
}

func (s *PostgresStore) CategoryTotals(ctx context.Context, phone string) ([]core.CategoryTotal, decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.categoria, COALESCE(SUM(g.valor), 0)::text
		 FROM gastos g
		 JOIN users u ON u.id = g.user_id
		 WHERE u.phone_number = $1
		 GROUP BY g.categoria
		 ORDER BY SUM(g.valor) DESC`,
		phone)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var (
		totals []core.CategoryTotal
		grand  = decimal.Zero
	)
	for rows.Next() {
		var (
			ct  core.CategoryTotal
			sum string
		)
		if err := rows.Scan(&ct.Categoria, &sum); err != nil {
			return nil, decimal.Zero, fmt.Errorf("scan category total: %w", err)
		}
		total, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("parse category total %q: %w", sum, err)
		}
		ct.Total = total
		grand = grand.Add(ct.Total)
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, decimal.Zero, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, grand, nil
}

func scanPostgresExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var out []core.Expense
	for rows.Next() {
		var (
			e     core.Expense
			valor string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Descricao, &valor, &e.Categoria, &e.Data); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		v, err := decimal.NewFromString(valor)
		if err != nil {
			return nil, fmt.Errorf("parse expense amount %q: %w", valor, err)
		}
		e.Valor = v
		e.Data = e.Data.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}
