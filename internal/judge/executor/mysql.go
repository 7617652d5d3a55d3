package executor

import (
	"context"
	"fmt"
	"time"

	"sqldrill/internal/common/db"
	"sqldrill/internal/judge/model"
)

// mysqlExecutor pins the query to one connection via a read-only
// transaction so the session time limit applies to the statement that
// follows it. MAX_EXECUTION_TIME only covers SELECT, which is all the
// validator lets through.
type mysqlExecutor struct {
	timeout time.Duration
}

func (e *mysqlExecutor) Execute(ctx context.Context, database db.Database, query string) (*model.ExecutionResult, error) {
	// Grace period lets the engine report its own timeout error before the
	// context kills the connection.
	ctx, cancel := context.WithTimeout(ctx, e.timeout+2*time.Second)
	defer cancel()

	tx, err := database.BeginTx(ctx, &db.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, classifyExecError(ctx, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET SESSION MAX_EXECUTION_TIME = %d", e.timeout.Milliseconds())); err != nil {
		return nil, classifyExecError(ctx, err)
	}

	start := time.Now()
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, classifyExecError(ctx, err)
	}
	defer rows.Close()

	columns, collected, err := collectRows(rows)
	if err != nil {
		return nil, classifyExecError(ctx, err)
	}

	return &model.ExecutionResult{
		Columns:   columns,
		Rows:      collected,
		RowCount:  len(collected),
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}
