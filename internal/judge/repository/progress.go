package repository

import (
	"context"

	"sqldrill/internal/common/db"
	"sqldrill/internal/judge/model"
	"sqldrill/pkg/errors"
)

// ProgressRepository maintains the per-(session, problem) attempt ledger.
type ProgressRepository interface {
	// RecordAttempt upserts one attempt. Completed status is sticky and the
	// best execution time only improves, and only on correct attempts.
	RecordAttempt(ctx context.Context, sessionID, problemID string, numericID int64, correct bool, executionMs int64) error

	// GetProgress looks up the ledger row by problem UUID or numeric id.
	GetProgress(ctx context.Context, sessionID, problemID string, numericID int64) (*model.ProgressRecord, error)
}

type progressRepository struct {
	db db.Database
}

// NewProgressRepository creates a progress repository over the main database.
func NewProgressRepository(database db.Database) ProgressRepository {
	return &progressRepository{db: database}
}

// recordAttemptQuery folds the whole attempt transition into one statement,
// so concurrent submissions for the same (session, problem) cannot lose
// updates to a read-then-write race.
const recordAttemptQuery = `
INSERT INTO user_problem_progress (
	session_id, problem_id, problem_numeric_id, status,
	total_attempts, correct_attempts, best_execution_ms,
	first_attempt_at, last_attempt_at, completed_at
) VALUES (
	$1, $2, $3,
	CASE WHEN $4 THEN 'completed' ELSE 'attempted' END,
	1,
	CASE WHEN $4 THEN 1 ELSE 0 END,
	CASE WHEN $4 THEN $5::bigint END,
	NOW(), NOW(),
	CASE WHEN $4 THEN NOW() END
)
ON CONFLICT (session_id, problem_id) DO UPDATE SET
	status = CASE
		WHEN user_problem_progress.status = 'completed' OR $4 THEN 'completed'
		ELSE 'attempted'
	END,
	total_attempts = user_problem_progress.total_attempts + 1,
	correct_attempts = user_problem_progress.correct_attempts + CASE WHEN $4 THEN 1 ELSE 0 END,
	best_execution_ms = CASE
		WHEN $4 THEN LEAST(COALESCE(user_problem_progress.best_execution_ms, $5::bigint), $5::bigint)
		ELSE user_problem_progress.best_execution_ms
	END,
	last_attempt_at = NOW(),
	completed_at = COALESCE(user_problem_progress.completed_at, CASE WHEN $4 THEN NOW() END)`

func (r *progressRepository) RecordAttempt(ctx context.Context, sessionID, problemID string, numericID int64, correct bool, executionMs int64) error {
	if sessionID == "" || problemID == "" {
		return errors.New(errors.InvalidParams).WithMessage("session and problem are required to track progress")
	}
	if _, err := r.db.Exec(ctx, recordAttemptQuery, sessionID, problemID, numericID, correct, executionMs); err != nil {
		return errors.Wrap(err, errors.ProgressRecordFailed)
	}
	return nil
}

const getProgressQuery = `
SELECT session_id, problem_id, problem_numeric_id, status,
	total_attempts, correct_attempts, best_execution_ms,
	first_attempt_at, last_attempt_at, completed_at
FROM user_problem_progress
WHERE session_id = $1 AND (problem_id = $2 OR problem_numeric_id = $3)`

func (r *progressRepository) GetProgress(ctx context.Context, sessionID, problemID string, numericID int64) (*model.ProgressRecord, error) {
	var rec model.ProgressRecord
	row := r.db.QueryRow(ctx, getProgressQuery, sessionID, problemID, numericID)
	err := row.Scan(
		&rec.SessionID, &rec.ProblemID, &rec.ProblemNumericID, &rec.Status,
		&rec.TotalAttempts, &rec.CorrectAttempts, &rec.BestExecutionMs,
		&rec.FirstAttemptAt, &rec.LastAttemptAt, &rec.CompletedAt,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, errors.New(errors.ProgressNotFound)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return &rec, nil
}
