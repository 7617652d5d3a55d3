// Package service implements the grading pipeline: validate, load fixture,
// prepare sandbox, execute, compare, record. Each stage either produces a
// graded outcome or aborts with a coded error; rejected and failed queries
// never mutate sandbox or progress state beyond what already happened.
package service

import (
	"context"

	"go.uber.org/zap"

	"sqldrill/internal/judge/comparator"
	"sqldrill/internal/judge/executor"
	"sqldrill/internal/judge/feedback"
	"sqldrill/internal/judge/model"
	"sqldrill/internal/judge/repository"
	"sqldrill/internal/judge/sandbox"
	"sqldrill/internal/judge/validator"
	"sqldrill/pkg/errors"
	"sqldrill/pkg/utils/logger"
)

// SandboxManager is the slice of the sandbox manager the pipeline needs.
type SandboxManager interface {
	Supports(dialect model.Dialect) bool
	Prepare(ctx context.Context, dialect model.Dialect, fixture *model.ProblemFixture) (*sandbox.Handle, error)
}

// JudgeResult is the graded outcome of one submission.
type JudgeResult struct {
	Verdict   model.Verdict
	Execution *model.ExecutionResult

	// Feedback is the one-line human summary shown with every outcome.
	Feedback string

	// Guidance carries the educational payload for rejected and failed
	// submissions.
	Guidance *feedback.Feedback

	// ErrorMessage is the raw engine error when execution failed.
	ErrorMessage string
}

// JudgeService grades SQL submissions against problem fixtures.
type JudgeService interface {
	Judge(ctx context.Context, sub *model.Submission) (*JudgeResult, error)

	// PrepareEnvironment resets the dialect sandbox to a problem's fixture
	// without running a query, so the learner can inspect the schema.
	PrepareEnvironment(ctx context.Context, problemID string, numericID int64, dialect model.Dialect) error

	GetProgress(ctx context.Context, sessionID, problemID string, numericID int64) (*model.ProgressRecord, error)
}

type judgeService struct {
	fixtures  repository.FixtureRepository
	progress  repository.ProgressRepository
	sandboxes SandboxManager
	executors map[model.Dialect]executor.Executor
}

// NewJudgeService wires the grading pipeline.
func NewJudgeService(
	fixtures repository.FixtureRepository,
	progress repository.ProgressRepository,
	sandboxes SandboxManager,
	executors map[model.Dialect]executor.Executor,
) JudgeService {
	return &judgeService{
		fixtures:  fixtures,
		progress:  progress,
		sandboxes: sandboxes,
		executors: executors,
	}
}

func (s *judgeService) Judge(ctx context.Context, sub *model.Submission) (*JudgeResult, error) {
	validation := validator.Validate(sub.SQL)
	if !validation.Accepted {
		logger.Warn(ctx, "query rejected by validator",
			zap.Strings("reasons", validation.Reasons),
			zap.String("session_id", sub.SessionID),
			zap.String("problem_id", sub.ProblemID))
		guidance := feedback.ForRejection(validation.Reasons)
		return &JudgeResult{
			Verdict:  model.RejectedVerdict(validation.Reasons),
			Feedback: "Query not allowed",
			Guidance: &guidance,
		}, nil
	}

	if !sub.Dialect.Valid() {
		return nil, errors.Newf(errors.DialectNotSupported, "unsupported dialect: %s", sub.Dialect)
	}
	exec, ok := s.executors[sub.Dialect]
	if !ok || !s.sandboxes.Supports(sub.Dialect) {
		return nil, errors.Newf(errors.DialectNotSupported, "no sandbox configured for dialect %q", sub.Dialect)
	}

	var fixture *model.ProblemFixture
	if sub.HasProblemRef() {
		var err error
		fixture, err = s.fixtures.GetFixture(ctx, sub.ProblemID, sub.ProblemNumericID, sub.Dialect)
		if err != nil {
			return nil, err
		}
	}

	handle, err := s.sandboxes.Prepare(ctx, sub.Dialect, fixture)
	if err != nil {
		return nil, err
	}
	defer handle.Teardown()

	logger.Info(ctx, "executing query",
		zap.String("sandbox_id", handle.ID),
		zap.String("dialect", string(sub.Dialect)),
		zap.String("session_id", sub.SessionID))

	execution, err := exec.Execute(ctx, handle.DB, validation.NormalizedSQL)
	if err != nil {
		return s.failedResult(ctx, sub, fixture, err), nil
	}

	var expected []map[string]interface{}
	if fixture != nil {
		expected = fixture.ExpectedOutput
	}
	verdict := comparator.Compare(execution.Rows, expected, validation.NormalizedSQL)

	result := &JudgeResult{Verdict: verdict, Execution: execution}
	switch verdict.Kind {
	case model.VerdictCorrect:
		result.Feedback = comparator.CorrectMessage
	case model.VerdictIncorrect:
		result.Feedback = verdict.Reason
	case model.VerdictUnvalidated:
		result.Feedback = verdict.Hint
	}

	s.trackProgress(ctx, sub, fixture, verdict.Correct(), execution.ElapsedMs)
	return result, nil
}

// failedResult turns an execution error into a graded failure with
// educational feedback. The attempt still counts toward progress.
func (s *judgeService) failedResult(ctx context.Context, sub *model.Submission, fixture *model.ProblemFixture, err error) *JudgeResult {
	msg := errors.GetError(err).Error()
	kind := feedback.Classify(msg)
	if errors.Is(err, errors.QueryTimeout) {
		kind = feedback.KindTimeout
	}

	logger.Warn(ctx, "query execution failed",
		zap.String("error_kind", kind),
		zap.String("session_id", sub.SessionID),
		zap.Error(err))

	guidance := feedback.ForError(msg, sub.SQL)
	s.trackProgress(ctx, sub, fixture, false, 0)
	return &JudgeResult{
		Verdict:      model.ExecutionFailedVerdict(kind),
		Feedback:     guidance.Title,
		Guidance:     &guidance,
		ErrorMessage: msg,
	}
}

// trackProgress records the attempt when a session and problem are known.
// Ledger failures are logged, never surfaced: grading already happened.
func (s *judgeService) trackProgress(ctx context.Context, sub *model.Submission, fixture *model.ProblemFixture, correct bool, elapsedMs int64) {
	if sub.SessionID == "" || fixture == nil {
		return
	}
	if err := s.progress.RecordAttempt(ctx, sub.SessionID, fixture.ProblemID, fixture.NumericID, correct, elapsedMs); err != nil {
		logger.Error(ctx, "failed to record progress",
			zap.String("session_id", sub.SessionID),
			zap.String("problem_id", fixture.ProblemID),
			zap.Error(err))
	}
}

func (s *judgeService) PrepareEnvironment(ctx context.Context, problemID string, numericID int64, dialect model.Dialect) error {
	if !dialect.Valid() {
		return errors.Newf(errors.DialectNotSupported, "unsupported dialect: %s", dialect)
	}
	fixture, err := s.fixtures.GetFixture(ctx, problemID, numericID, dialect)
	if err != nil {
		return err
	}
	handle, err := s.sandboxes.Prepare(ctx, dialect, fixture)
	if err != nil {
		return err
	}
	handle.Teardown()
	return nil
}

func (s *judgeService) GetProgress(ctx context.Context, sessionID, problemID string, numericID int64) (*model.ProgressRecord, error) {
	if sessionID == "" {
		return nil, errors.BadRequest("session id is required")
	}
	return s.progress.GetProgress(ctx, sessionID, problemID, numericID)
}
