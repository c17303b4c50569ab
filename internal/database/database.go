// Package database hides the differences between the PostgreSQL and SQLite drivers behind
// a small query interface. Repositories write one set of SQL using $N placeholders, which
// both engines accept as long as parameters first appear in ascending order.
package database

import (
	"context"
	"errors"
)

var (
	// ErrNoRows is returned by Row.Scan when the query matched nothing
	ErrNoRows = errors.New("no rows in result set")
	// ErrUniqueViolation wraps driver errors caused by a UNIQUE or PRIMARY KEY constraint
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrForeignKeyViolation wraps driver errors caused by a FOREIGN KEY constraint
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")
)

// Row is the result of QueryRow
type Row interface {
	Scan(dest ...any) error
}

// Rows is the result of Query. Close must be called once iteration is done.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier runs statements against a pool or an open transaction
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
}

// DB is an open database
type DB interface {
	Querier

	// InTx runs fn inside a transaction. The transaction commits when fn returns nil
	// and rolls back otherwise.
	InTx(ctx context.Context, fn func(q Querier) error) error

	// MigrateUp applies all pending schema migrations
	MigrateUp() error

	// MigrationStatus returns nil when the schema is at the latest version
	MigrationStatus() error

	Ping(ctx context.Context) error
	Close()
}
