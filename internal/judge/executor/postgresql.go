package executor

import (
	"context"
	"fmt"
	"time"

	"sqldrill/internal/common/db"
	"sqldrill/internal/judge/model"
)

// postgresExecutor runs the query inside a read-only transaction with a
// SET LOCAL statement_timeout, so the limit and the read-only guard expire
// with the transaction no matter how it ends.
type postgresExecutor struct {
	timeout time.Duration
}

func (e *postgresExecutor) Execute(ctx context.Context, database db.Database, query string) (*model.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout+2*time.Second)
	defer cancel()

	tx, err := database.BeginTx(ctx, &db.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, classifyExecError(ctx, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", e.timeout.Milliseconds())); err != nil {
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
