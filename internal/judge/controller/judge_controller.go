// Package controller exposes the judge pipeline over HTTP.
package controller

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sqldrill/internal/judge/model"
	"sqldrill/internal/judge/service"
	"sqldrill/pkg/utils/response"
)

// MaxDisplayRows caps the rows returned over the wire. RowCount still
// reports the untruncated total.
const MaxDisplayRows = 1000

// JudgeController handles submission, setup, and progress endpoints.
type JudgeController struct {
	svc service.JudgeService
}

// NewJudgeController creates a judge controller.
func NewJudgeController(svc service.JudgeService) *JudgeController {
	return &JudgeController{svc: svc}
}

type executeRequest struct {
	SQL              string `json:"sql" binding:"required"`
	Dialect          string `json:"dialect"`
	ProblemID        string `json:"problemId"`
	ProblemNumericID int64  `json:"problemNumericId"`
}

type executeData struct {
	Columns       []string                 `json:"columns"`
	Rows          []map[string]interface{} `json:"rows"`
	RowCount      int                      `json:"rowCount"`
	ExecutionTime int64                    `json:"executionTimeMs"`
	Verdict       model.VerdictKind        `json:"verdict"`
	IsCorrect     *bool                    `json:"isCorrect"`
	Feedback      string                   `json:"feedback"`
}

// ExecuteSQL grades one submission.
// POST /api/v1/execute/sql
func (ctl *JudgeController) ExecuteSQL(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "sql is required")
		return
	}

	dialect, err := model.ParseDialect(req.Dialect)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sub := &model.Submission{
		SQL:              req.SQL,
		Dialect:          dialect,
		ProblemID:        req.ProblemID,
		ProblemNumericID: req.ProblemNumericID,
		SessionID:        c.GetHeader("X-Session-Id"),
	}

	result, err := ctl.svc.Judge(c.Request.Context(), sub)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch result.Verdict.Kind {
	case model.VerdictRejected:
		response.Rejected(c, result.Verdict.Reasons, result.Feedback, result.Guidance)
	case model.VerdictExecutionFailed:
		response.ExecutionFailed(c, result.ErrorMessage, result.Feedback, gin.H{
			"errorKind": result.Verdict.ErrorKind,
			"guidance":  result.Guidance,
		})
	default:
		response.Success(c, buildExecuteData(result))
	}
}

func buildExecuteData(result *service.JudgeResult) executeData {
	execution := result.Execution
	data := executeData{
		Columns:       execution.Columns,
		Rows:          execution.Rows,
		RowCount:      execution.RowCount,
		ExecutionTime: execution.ElapsedMs,
		Verdict:       result.Verdict.Kind,
		Feedback:      result.Feedback,
	}
	if data.Columns == nil {
		data.Columns = []string{}
	}
	if data.Rows == nil {
		data.Rows = []map[string]interface{}{}
	}
	if len(data.Rows) > MaxDisplayRows {
		data.Rows = data.Rows[:MaxDisplayRows]
		data.Feedback = data.Feedback + " (Showing first " + strconv.Itoa(MaxDisplayRows) + " of " + strconv.Itoa(data.RowCount) + " rows)"
	}
	switch result.Verdict.Kind {
	case model.VerdictCorrect:
		correct := true
		data.IsCorrect = &correct
	case model.VerdictIncorrect:
		correct := false
		data.IsCorrect = &correct
	}
	return data
}

type setupRequest struct {
	ProblemID        string `json:"problemId"`
	ProblemNumericID int64  `json:"problemNumericId"`
	Dialect          string `json:"dialect"`
}

// PrepareEnvironment resets the sandbox to a problem's fixture.
// POST /api/v1/execute/setup
func (ctl *JudgeController) PrepareEnvironment(c *gin.Context) {
	var req setupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.ProblemID == "" && req.ProblemNumericID <= 0 {
		response.BadRequest(c, "problemId or problemNumericId is required")
		return
	}

	dialect, err := model.ParseDialect(req.Dialect)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := ctl.svc.PrepareEnvironment(c.Request.Context(), req.ProblemID, req.ProblemNumericID, dialect); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"prepared": true, "dialect": dialect})
}

type progressData struct {
	ProblemID        string `json:"problemId"`
	ProblemNumericID int64  `json:"problemNumericId"`
	Status           string `json:"status"`
	TotalAttempts    int    `json:"totalAttempts"`
	CorrectAttempts  int    `json:"correctAttempts"`
	BestExecutionMs  *int64 `json:"bestExecutionMs"`
	FirstAttemptAt   string `json:"firstAttemptAt"`
	LastAttemptAt    string `json:"lastAttemptAt"`
	CompletedAt      *string `json:"completedAt"`
}

// GetProgress returns the attempt ledger row for one problem.
// GET /api/v1/progress/:problemId
func (ctl *JudgeController) GetProgress(c *gin.Context) {
	sessionID := c.GetHeader("X-Session-Id")
	if sessionID == "" {
		response.BadRequest(c, "X-Session-Id header is required")
		return
	}

	ref := c.Param("problemId")
	var (
		problemID string
		numericID int64
	)
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		numericID = n
	} else {
		problemID = ref
	}

	record, err := ctl.svc.GetProgress(c.Request.Context(), sessionID, problemID, numericID)
	if err != nil {
		response.Error(c, err)
		return
	}

	data := progressData{
		ProblemID:        record.ProblemID,
		ProblemNumericID: record.ProblemNumericID,
		Status:           string(record.Status),
		TotalAttempts:    record.TotalAttempts,
		CorrectAttempts:  record.CorrectAttempts,
		BestExecutionMs:  record.BestExecutionMs,
		FirstAttemptAt:   record.FirstAttemptAt.Format(time.RFC3339),
		LastAttemptAt:    record.LastAttemptAt.Format(time.RFC3339),
	}
	if record.CompletedAt != nil {
		completed := record.CompletedAt.Format(time.RFC3339)
		data.CompletedAt = &completed
	}
	response.Success(c, data)
}
