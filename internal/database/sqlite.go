package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"health-companion-backend/internal/database/migrations"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

// sqlQuerier is satisfied by *sql.DB and *sql.Tx
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlConn struct {
	q sqlQuerier
}

func (c sqlConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

func (c sqlConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	return sqlRows{rows: rows}, nil
}

func (c sqlConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return sqlRow{row: c.q.QueryRowContext(ctx, query, args...)}
}

type sqlRow struct {
	row *sql.Row
}

func (r sqlRow) Scan(dest ...any) error {
	return translateSQLiteError(r.row.Scan(dest...))
}

type sqlRows struct {
	rows *sql.Rows
}

func (r sqlRows) Next() bool             { return r.rows.Next() }
func (r sqlRows) Scan(dest ...any) error { return translateSQLiteError(r.rows.Scan(dest...)) }
func (r sqlRows) Err() error             { return translateSQLiteError(r.rows.Err()) }
func (r sqlRows) Close()                 { r.rows.Close() }

func translateSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
		}
	}
	return err
}

// SQLite implements DB with database/sql and go-sqlite3
type SQLite struct {
	sqlConn
	db *sql.DB
}

// NewSQLite opens a database file, or a private in-memory database when path is ":memory:"
func NewSQLite(path string) (*SQLite, error) {
	db, err := OpenSQLiteConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLite{sqlConn: sqlConn{q: db}, db: db}, nil
}

// OpenSQLiteConnection opens and configures a SQLite connection pool.
// Foreign keys are enabled through the DSN so every pooled connection gets them.
func OpenSQLiteConnection(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database, and SQLite allows a single
	// writer anyway, so one connection keeps every caller on the same data.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// InTx runs fn in a database/sql transaction
func (s *SQLite) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(sqlConn{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translateSQLiteError(err))
	}
	return nil
}

// MigrateUp applies the embedded sqlite migrations
func (s *SQLite) MigrateUp() error {
	return migrations.SQLiteUp(s.db)
}

// MigrationStatus checks the sqlite schema version
func (s *SQLite) MigrationStatus() error {
	return migrations.SQLiteStatus(s.db)
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() {
	s.db.Close()
}
