package model

import "time"

// ProgressStatus tracks where a learner stands on one problem.
// Completed is sticky: it never reverts to Attempted.
type ProgressStatus string

const (
	StatusAttempted ProgressStatus = "attempted"
	StatusCompleted ProgressStatus = "completed"
)

// ProgressRecord is the per-(session, problem) attempt ledger row.
type ProgressRecord struct {
	SessionID        string
	ProblemID        string
	ProblemNumericID int64
	Status           ProgressStatus
	TotalAttempts    int
	CorrectAttempts  int

	// BestExecutionMs only decreases, and only on correct submissions.
	BestExecutionMs *int64

	FirstAttemptAt time.Time
	LastAttemptAt  time.Time

	// CompletedAt is set exactly once, on the transition into Completed.
	CompletedAt *time.Time
}
