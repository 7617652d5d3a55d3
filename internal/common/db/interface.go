package db

import (
	"context"
	"database/sql"
)

// Database is the unified interface over the supported SQL engines.
// This abstraction lets the judge pipeline run against either sandbox
// dialect (and the main metadata database) without changing business logic.
type Database interface {
	// Query executes a query that returns rows
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)

	// QueryRow executes a query that returns at most one row
	QueryRow(ctx context.Context, query string, args ...interface{}) Row

	// Exec executes a query that doesn't return rows
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)

	// Transaction executes a function within a database transaction
	Transaction(ctx context.Context, fn func(tx Transaction) error) error

	// BeginTx starts a new transaction with the given options
	BeginTx(ctx context.Context, opts *TxOptions) (Transaction, error)

	// Ping verifies a connection to the database is still alive
	Ping(ctx context.Context) error

	// Close closes the database connection
	Close() error

	// Stats returns database statistics
	Stats() Stats
}

// Rows is the result of a query.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
	Columns() ([]string, error)
}

// Row is the result of calling QueryRow.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result summarizes an executed statement.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Transaction represents an in-progress database transaction.
type Transaction interface {
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)
	Commit() error
	Rollback() error
}

// IsolationLevel mirrors sql.IsolationLevel.
type IsolationLevel int

const (
	LevelDefault IsolationLevel = iota
	LevelReadUncommitted
	LevelReadCommitted
	LevelRepeatableRead
	LevelSerializable
)

// TxOptions holds transaction options.
type TxOptions struct {
	Isolation IsolationLevel
	ReadOnly  bool
}

// Stats holds database pool statistics.
type Stats struct {
	OpenConnections int
	InUse           int
	Idle            int
	WaitCount       int64
	WaitDuration    int64
}

// ConvertTxOptions maps TxOptions to sql.TxOptions.
func ConvertTxOptions(opts *TxOptions) *sql.TxOptions {
	if opts == nil {
		return nil
	}
	return &sql.TxOptions{
		Isolation: sql.IsolationLevel(opts.Isolation),
		ReadOnly:  opts.ReadOnly,
	}
}

// ConvertSQLStats maps sql.DBStats to Stats.
func ConvertSQLStats(s sql.DBStats) Stats {
	return Stats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
		WaitDuration:    int64(s.WaitDuration),
	}
}
