package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"sqldrill/internal/judge/controller"
	"sqldrill/internal/judge/feedback"
	"sqldrill/internal/judge/model"
	"sqldrill/internal/judge/service"
	"sqldrill/pkg/errors"
)

type fakeJudgeService struct {
	result   *service.JudgeResult
	err      error
	progress *model.ProgressRecord

	lastSub       *model.Submission
	lastProblemID string
	lastNumericID int64
	lastSessionID string
}

func (f *fakeJudgeService) Judge(ctx context.Context, sub *model.Submission) (*service.JudgeResult, error) {
	f.lastSub = sub
	return f.result, f.err
}

func (f *fakeJudgeService) PrepareEnvironment(ctx context.Context, problemID string, numericID int64, dialect model.Dialect) error {
	f.lastProblemID = problemID
	f.lastNumericID = numericID
	return f.err
}

func (f *fakeJudgeService) GetProgress(ctx context.Context, sessionID, problemID string, numericID int64) (*model.ProgressRecord, error) {
	f.lastSessionID = sessionID
	f.lastProblemID = problemID
	f.lastNumericID = numericID
	if f.err != nil {
		return nil, f.err
	}
	return f.progress, nil
}

func newRouter(svc service.JudgeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	ctl := controller.NewJudgeController(svc)
	engine.POST("/api/v1/execute/sql", ctl.ExecuteSQL)
	engine.POST("/api/v1/execute/setup", ctl.PrepareEnvironment)
	engine.GET("/api/v1/progress/:problemId", ctl.GetProgress)
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestExecuteSQLCorrectSubmission(t *testing.T) {
	t.Parallel()
	svc := &fakeJudgeService{result: &service.JudgeResult{
		Verdict: model.CorrectVerdict(),
		Execution: &model.ExecutionResult{
			Columns:   []string{"n"},
			Rows:      []map[string]interface{}{{"n": "1"}},
			RowCount:  1,
			ElapsedMs: 7,
		},
		Feedback: "Correct! Your query produced the expected output.",
	}}
	engine := newRouter(svc)

	w := postJSON(t, engine, "/api/v1/execute/sql",
		gin.H{"sql": "SELECT 1", "problemId": "p1"},
		map[string]string{"X-Session-Id": "s1"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			RowCount  int    `json:"rowCount"`
			Verdict   string `json:"verdict"`
			IsCorrect *bool  `json:"isCorrect"`
			Feedback  string `json:"feedback"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Data.Verdict != "correct" {
		t.Fatalf("body = %s", w.Body.String())
	}
	if resp.Data.IsCorrect == nil || !*resp.Data.IsCorrect {
		t.Fatalf("isCorrect = %v", resp.Data.IsCorrect)
	}
	if svc.lastSub.SessionID != "s1" {
		t.Fatalf("session = %q", svc.lastSub.SessionID)
	}
	if svc.lastSub.Dialect != model.DialectPostgreSQL {
		t.Fatalf("default dialect = %q", svc.lastSub.Dialect)
	}
}

func TestExecuteSQLRejectedReturns400WithReasons(t *testing.T) {
	t.Parallel()
	guidance := feedback.ForRejection([]string{"Multiple SQL statements not allowed"})
	svc := &fakeJudgeService{result: &service.JudgeResult{
		Verdict:  model.RejectedVerdict([]string{"Multiple SQL statements not allowed"}),
		Feedback: "Query not allowed",
		Guidance: &guidance,
	}}
	engine := newRouter(svc)

	w := postJSON(t, engine, "/api/v1/execute/sql", gin.H{"sql": "SELECT 1; SELECT 2"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Success bool     `json:"success"`
		Error   string   `json:"error"`
		Reasons []string `json:"reasons"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error != "Query not allowed" || len(resp.Reasons) != 1 {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestExecuteSQLExecutionFailureIsHTTP200(t *testing.T) {
	t.Parallel()
	guidance := feedback.ForError(`column "salery" does not exist`, "")
	svc := &fakeJudgeService{result: &service.JudgeResult{
		Verdict:      model.ExecutionFailedVerdict(feedback.KindColumnNotFound),
		Feedback:     guidance.Title,
		Guidance:     &guidance,
		ErrorMessage: `column "salery" does not exist`,
	}}
	engine := newRouter(svc)

	w := postJSON(t, engine, "/api/v1/execute/sql", gin.H{"sql": "SELECT salery FROM t"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error == "" {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestExecuteSQLCapsDisplayRows(t *testing.T) {
	t.Parallel()
	rows := make([]map[string]interface{}, controller.MaxDisplayRows+500)
	for i := range rows {
		rows[i] = map[string]interface{}{"n": i}
	}
	svc := &fakeJudgeService{result: &service.JudgeResult{
		Verdict:   model.UnvalidatedVerdict("big result"),
		Execution: &model.ExecutionResult{Rows: rows, RowCount: len(rows)},
		Feedback:  "big result",
	}}
	engine := newRouter(svc)

	w := postJSON(t, engine, "/api/v1/execute/sql", gin.H{"sql": "SELECT n FROM t"}, nil)
	var resp struct {
		Data struct {
			Rows     []map[string]interface{} `json:"rows"`
			RowCount int                      `json:"rowCount"`
			Feedback string                   `json:"feedback"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data.Rows) != controller.MaxDisplayRows {
		t.Fatalf("rows = %d", len(resp.Data.Rows))
	}
	if resp.Data.RowCount != controller.MaxDisplayRows+500 {
		t.Fatalf("rowCount = %d", resp.Data.RowCount)
	}
	want := fmt.Sprintf("(Showing first %d of %d rows)", controller.MaxDisplayRows, controller.MaxDisplayRows+500)
	if !bytes.Contains([]byte(resp.Data.Feedback), []byte(want)) {
		t.Fatalf("feedback = %q", resp.Data.Feedback)
	}
}

func TestExecuteSQLMissingBody(t *testing.T) {
	t.Parallel()
	engine := newRouter(&fakeJudgeService{})
	w := postJSON(t, engine, "/api/v1/execute/sql", gin.H{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestExecuteSQLUnknownDialect(t *testing.T) {
	t.Parallel()
	engine := newRouter(&fakeJudgeService{})
	w := postJSON(t, engine, "/api/v1/execute/sql", gin.H{"sql": "SELECT 1", "dialect": "oracle"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestPrepareEnvironmentRequiresProblemRef(t *testing.T) {
	t.Parallel()
	engine := newRouter(&fakeJudgeService{})
	w := postJSON(t, engine, "/api/v1/execute/setup", gin.H{"dialect": "postgresql"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetProgressRequiresSessionHeader(t *testing.T) {
	t.Parallel()
	engine := newRouter(&fakeJudgeService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/progress/42", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetProgressParsesNumericAndUUIDRefs(t *testing.T) {
	t.Parallel()
	now := time.Now()
	svc := &fakeJudgeService{progress: &model.ProgressRecord{
		ProblemID:        "p1",
		ProblemNumericID: 42,
		Status:           model.StatusCompleted,
		TotalAttempts:    3,
		CorrectAttempts:  1,
		FirstAttemptAt:   now,
		LastAttemptAt:    now,
	}}
	engine := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/progress/42", nil)
	req.Header.Set("X-Session-Id", "s1")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.lastNumericID != 42 || svc.lastProblemID != "" {
		t.Fatalf("numeric ref parsed as (%q, %d)", svc.lastProblemID, svc.lastNumericID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/progress/3f2b9a", nil)
	req.Header.Set("X-Session-Id", "s1")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if svc.lastProblemID != "3f2b9a" || svc.lastNumericID != 0 {
		t.Fatalf("uuid ref parsed as (%q, %d)", svc.lastProblemID, svc.lastNumericID)
	}
}

func TestGetProgressNotFoundIs404(t *testing.T) {
	t.Parallel()
	svc := &fakeJudgeService{err: errors.New(errors.ProgressNotFound)}
	engine := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/progress/42", nil)
	req.Header.Set("X-Session-Id", "s1")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}
