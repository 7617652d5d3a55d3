package model

// VerdictKind classifies the outcome of grading one submission.
type VerdictKind string

const (
	VerdictCorrect         VerdictKind = "correct"
	VerdictIncorrect       VerdictKind = "incorrect"
	VerdictUnvalidated     VerdictKind = "unvalidated"
	VerdictExecutionFailed VerdictKind = "execution_failed"
	VerdictRejected        VerdictKind = "rejected"
)

// Verdict is the graded outcome of one submission.
type Verdict struct {
	Kind VerdictKind

	// Reason explains an incorrect result (row count or row index mismatch).
	Reason string

	// Hint is advisory feedback when no expected output exists.
	Hint string

	// ErrorKind is the stable classification of a runtime SQL error.
	ErrorKind string

	// Reasons lists every violated validation rule for a rejected query.
	Reasons []string
}

// Correct reports whether the verdict counts as a successful solve.
func (v Verdict) Correct() bool {
	return v.Kind == VerdictCorrect
}

// CorrectVerdict marks the submission as matching the expected output.
func CorrectVerdict() Verdict {
	return Verdict{Kind: VerdictCorrect}
}

// IncorrectVerdict marks a mismatch with the stored expected output.
func IncorrectVerdict(reason string) Verdict {
	return Verdict{Kind: VerdictIncorrect, Reason: reason}
}

// UnvalidatedVerdict marks a run that cannot be graded for lack of expected
// output. It is never a success.
func UnvalidatedVerdict(hint string) Verdict {
	return Verdict{Kind: VerdictUnvalidated, Hint: hint}
}

// ExecutionFailedVerdict marks a runtime rejection by the sandbox engine.
func ExecutionFailedVerdict(errorKind string) Verdict {
	return Verdict{Kind: VerdictExecutionFailed, ErrorKind: errorKind}
}

// RejectedVerdict marks a query that never reached a database.
func RejectedVerdict(reasons []string) Verdict {
	return Verdict{Kind: VerdictRejected, Reasons: reasons}
}
