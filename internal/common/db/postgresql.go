package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgreSQLConfig holds the configuration for PostgreSQL connection pool
type PostgreSQLConfig struct {
	// DSN is the data source name
	// Format: "user=postgres password=password host=localhost port=5432 dbname=dbname sslmode=disable"
	DSN string `yaml:"dsn"`

	// MaxOpenConnections is the maximum number of open connections to the database.
	// The sandbox pool runs with 1 to serialize access to the scratch schema.
	MaxOpenConnections int `yaml:"maxOpenConnections"`

	// MaxIdleConnections is the maximum number of connections in the idle connection pool
	MaxIdleConnections int `yaml:"maxIdleConnections"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
}

// DefaultPostgreSQLConfig returns the default PostgreSQL configuration
func DefaultPostgreSQLConfig() *PostgreSQLConfig {
	return &PostgreSQLConfig{
		MaxOpenConnections: 25,
		MaxIdleConnections: 5,
		ConnMaxLifetime:    5 * time.Minute,
		ConnMaxIdleTime:    10 * time.Minute,
	}
}

// PostgreSQL implements the Database interface using the PostgreSQL driver.
// Each PostgreSQL instance manages its own connection pool.
type PostgreSQL struct {
	db     *sql.DB
	config *PostgreSQLConfig
}

// NewPostgreSQL creates a new PostgreSQL database connection with connection pool
func NewPostgreSQL(dsn string) (*PostgreSQL, error) {
	config := DefaultPostgreSQLConfig()
	config.DSN = dsn
	return NewPostgreSQLWithConfig(config)
}

// NewPostgreSQLWithConfig creates a new PostgreSQL database connection with custom configuration
func NewPostgreSQLWithConfig(config *PostgreSQLConfig) (*PostgreSQL, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("DSN cannot be empty")
	}

	applyPostgreSQLDefaults(config)

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConnections)
	db.SetMaxIdleConns(config.MaxIdleConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgreSQL{db: db, config: config}, nil
}

// NewPostgreSQLWithDB creates a PostgreSQL instance from an existing sql.DB
func NewPostgreSQLWithDB(db *sql.DB) (*PostgreSQL, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgreSQL{db: db, config: DefaultPostgreSQLConfig()}, nil
}

func applyPostgreSQLDefaults(config *PostgreSQLConfig) {
	if config.MaxOpenConnections == 0 {
		config.MaxOpenConnections = 25
	}
	if config.MaxIdleConnections == 0 {
		config.MaxIdleConnections = 5
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = 5 * time.Minute
	}
	if config.ConnMaxIdleTime == 0 {
		config.ConnMaxIdleTime = 10 * time.Minute
	}
}

// Query executes a query that returns rows
func (p *PostgreSQL) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

// QueryRow executes a query that returns at most one row
func (p *PostgreSQL) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Exec executes a query that doesn't return rows
func (p *PostgreSQL) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Transaction executes a function within a database transaction
func (p *PostgreSQL) Transaction(ctx context.Context, fn func(tx Transaction) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}

	wrapped := &sqlTransaction{tx: tx}
	if err := fn(wrapped); err != nil {
		_ = wrapped.Rollback()
		return err
	}
	return wrapped.Commit()
}

// BeginTx starts a new transaction with the given options
func (p *PostgreSQL) BeginTx(ctx context.Context, opts *TxOptions) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, ConvertTxOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("begin transaction failed: %w", err)
	}
	return &sqlTransaction{tx: tx}, nil
}

// Ping verifies a connection to the database is still alive
func (p *PostgreSQL) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (p *PostgreSQL) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// Stats returns database statistics
func (p *PostgreSQL) Stats() Stats {
	return ConvertSQLStats(p.db.Stats())
}
