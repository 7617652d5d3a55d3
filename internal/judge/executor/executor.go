// Package executor runs validated queries against a prepared sandbox under
// an enforced statement time limit. Each engine needs its own way to attach
// the limit, so the executors are per dialect behind a common interface.
package executor

import (
	"context"
	"time"

	"sqldrill/internal/common/db"
	"sqldrill/internal/judge/feedback"
	"sqldrill/internal/judge/model"
	"sqldrill/pkg/errors"
)

// DefaultStatementTimeout bounds a single practice query.
const DefaultStatementTimeout = 10 * time.Second

// Executor runs one read-only query and collects its full result set.
type Executor interface {
	Execute(ctx context.Context, database db.Database, query string) (*model.ExecutionResult, error)
}

// New returns the executor for the given dialect.
func New(dialect model.Dialect, timeout time.Duration) (Executor, error) {
	if timeout <= 0 {
		timeout = DefaultStatementTimeout
	}
	switch dialect {
	case model.DialectMySQL:
		return &mysqlExecutor{timeout: timeout}, nil
	case model.DialectPostgreSQL:
		return &postgresExecutor{timeout: timeout}, nil
	default:
		return nil, errors.Newf(errors.DialectNotSupported, "unsupported dialect: %s", dialect)
	}
}

// collectRows drains a result set into flat column to value maps. Byte
// slices are copied to strings because drivers reuse their buffers between
// Scan calls.
func collectRows(rows db.Rows) ([]string, []map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var collected []map[string]interface{}
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, collected, nil
}

// classifyExecError wraps a driver error, distinguishing enforced timeouts
// from ordinary query failures.
func classifyExecError(ctx context.Context, err error) *errors.Error {
	if ctx.Err() == context.DeadlineExceeded || feedback.Classify(err.Error()) == feedback.KindTimeout {
		return errors.Wrap(err, errors.QueryTimeout)
	}
	return errors.Wrap(err, errors.QueryExecutionFailed)
}
