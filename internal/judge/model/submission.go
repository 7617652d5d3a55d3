package model

// Submission is one grading request. It lives for the duration of a single
// HTTP call and is never persisted.
type Submission struct {
	SQL              string
	Dialect          Dialect
	ProblemID        string
	ProblemNumericID int64
	SessionID        string
}

// HasProblemRef reports whether the submission references a problem at all.
// Submissions without a reference are executed but cannot be graded or
// tracked.
func (s Submission) HasProblemRef() bool {
	return s.ProblemID != "" || s.ProblemNumericID > 0
}

// ValidationResult is the outcome of the lexical safety check.
type ValidationResult struct {
	Accepted      bool
	Reasons       []string
	NormalizedSQL string
}

// ProblemFixture is the per-(problem, dialect) sandbox definition owned by
// the content layer. The judge only reads it.
type ProblemFixture struct {
	ProblemID string
	NumericID int64
	Dialect   Dialect
	SetupSQL  string
	SeedSQL   string

	// ExpectedOutput is an ordered sequence of flat column→value rows.
	// nil or empty means the problem cannot be validated automatically.
	ExpectedOutput []map[string]interface{}
}

// HasExpectedOutput reports whether the fixture can produce a boolean verdict.
func (f *ProblemFixture) HasExpectedOutput() bool {
	return f != nil && len(f.ExpectedOutput) > 0
}

// ExecutionResult is the raw outcome of running one validated query against
// a prepared sandbox. Values are surfaced as returned by the engine, without
// coercion; the comparator owns normalization.
type ExecutionResult struct {
	Columns   []string
	Rows      []map[string]interface{}
	RowCount  int
	ElapsedMs int64
}
