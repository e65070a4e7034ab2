// Package database owns the process-wide SQL handle. Repositories write their
// queries with Postgres-style $n placeholders; the handle rewrites them when
// the configured dialect is SQLite.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour of the underlying store
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a configured driver name to a Dialect
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Querier is satisfied by both *DB and *Tx so repositories can run inside or
// outside a transaction with the same code.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps *sql.DB with placeholder rebinding for the configured dialect
type DB struct {
	*sql.DB
	dialect Dialect
}

// Tx wraps *sql.Tx with the same rebinding as DB
type Tx struct {
	*sql.Tx
	dialect Dialect
}

// Open connects to the store for the given dialect and verifies the connection
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	switch dialect {
	case DialectPostgres:
		return NewPostgresConnection(ctx, dsn)
	case DialectSQLite:
		return NewSQLiteConnection(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// NewPostgresConnection opens a pooled lib/pq connection
func NewPostgresConnection(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, dialect: DialectPostgres}, nil
}

// NewSQLiteConnection opens a single-connection SQLite handle with foreign
// keys enabled. SQLite serialises writers, so one connection avoids SQLITE_BUSY.
func NewSQLiteConnection(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, dialect: DialectSQLite}, nil
}

func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Dialect returns the SQL flavour of the connection
func (db *DB) Dialect() Dialect {
	return db.dialect
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query, args = db.dialect.Rebind(query, args)
	return db.DB.ExecContext(ctx, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query, args = db.dialect.Rebind(query, args)
	return db.DB.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	query, args = db.dialect.Rebind(query, args)
	return db.DB.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction that rebinds like its parent handle
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx, dialect: db.dialect}, nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query, args = tx.dialect.Rebind(query, args)
	return tx.Tx.ExecContext(ctx, query, args...)
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query, args = tx.dialect.Rebind(query, args)
	return tx.Tx.QueryContext(ctx, query, args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	query, args = tx.dialect.Rebind(query, args)
	return tx.Tx.QueryRowContext(ctx, query, args...)
}

// Rebind rewrites $n placeholders into positional ? markers for SQLite,
// reordering args to match the order the placeholders appear in. Postgres
// queries are returned untouched.
func (d Dialect) Rebind(query string, args []any) (string, []any) {
	if d != DialectSQLite || len(args) == 0 {
		return query, args
	}

	var b strings.Builder
	b.Grow(len(query))
	out := make([]any, 0, len(args))

	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}

		n, err := strconv.Atoi(query[i+1 : j])
		if err != nil || n < 1 || n > len(args) {
			b.WriteString(query[i:j])
			i = j - 1
			continue
		}

		b.WriteByte('?')
		out = append(out, args[n-1])
		i = j - 1
	}

	return b.String(), out
}

// Date formats a calendar date the way both dialects accept for DATE columns
func Date(t time.Time) string {
	return t.Format("2006-01-02")
}
