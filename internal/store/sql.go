package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Supported database/sql drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	occurred_on DATE NOT NULL,
	amount      NUMERIC(14, 2) NOT NULL,
	kind        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS transactions_user_date ON transactions (user_id, occurred_on);`

// SQLSource reads ledger records from a transactions table in Postgres or
// SQLite.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens a database for one of the supported drivers.
func OpenSQL(driver, dsn string) (*sql.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// Each connection to an in-memory SQLite database is a separate database.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewSQLSource wraps an open database.
func NewSQLSource(db *sql.DB, driver string) (*SQLSource, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return &SQLSource{db: db, driver: driver}, nil
}

// Migrate creates the transactions table when missing.
func (s *SQLSource) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate transactions table: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *SQLSource) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLSource) ListTransactions(ctx context.Context, userID string, r DateRange) ([]insights.Transaction, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	// Dates are compared and read as ISO text so both drivers behave alike.
	query := `
		SELECT id, CAST(occurred_on AS TEXT), amount, kind, description, category
		FROM transactions
		WHERE user_id = ?`
	args := []any{userID}
	if !r.Start.IsZero() {
		query += ` AND occurred_on >= ?`
		args = append(args, r.Start.Format(time.DateOnly))
	}
	if !r.End.IsZero() {
		query += ` AND occurred_on <= ?`
		args = append(args, r.End.Format(time.DateOnly))
	}
	query += ` ORDER BY occurred_on, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var records []TransactionRecord
	for rows.Next() {
		var (
			rec    TransactionRecord
			day    string
			amount decimal.Decimal
			kind   string
		)
		if err := rows.Scan(&rec.ID, &day, &amount, &kind, &rec.Description, &rec.Category); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if len(day) > len(time.DateOnly) {
			day = day[:len(time.DateOnly)]
		}
		rec.Date, err = time.Parse(time.DateOnly, day)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: invalid date %q: %w", rec.ID, day, err)
		}
		rec.UserID = userID
		rec.Amount = amount.InexactFloat64()
		rec.Kind = TransactionKind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return convertRecords(records)
}

// PutRecords upserts records in one database transaction.
func (s *SQLSource) PutRecords(ctx context.Context, records ...TransactionRecord) error {
	for _, rec := range records {
		if _, err := rec.ToTransaction(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO transactions (id, user_id, occurred_on, amount, kind, description, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			occurred_on = excluded.occurred_on,
			amount = excluded.amount,
			kind = excluded.kind,
			description = excluded.description,
			category = excluded.category`))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		_, err := stmt.ExecContext(ctx,
			rec.ID,
			rec.UserID,
			insights.Day(rec.Date).Format(time.DateOnly),
			decimal.NewFromFloat(rec.Amount).Round(2),
			string(rec.Kind),
			rec.Description,
			rec.Category,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}
	return nil
}

// DeleteUser removes every record of a user.
func (s *SQLSource) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM transactions WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLSource) Close() error {
	return s.db.Close()
}
