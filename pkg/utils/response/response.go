package response

import (
	"net/http"

	"sqldrill/pkg/errors"
	"sqldrill/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response represents a standard API response
type Response struct {
	Success  bool             `json:"success"`
	Code     errors.ErrorCode `json:"code"`
	Data     interface{}      `json:"data,omitempty"`
	Error    string           `json:"error,omitempty"`
	Reasons  []string         `json:"reasons,omitempty"`
	Feedback string           `json:"feedback,omitempty"`
	Details  interface{}      `json:"details,omitempty"`
	TraceID  string           `json:"trace_id,omitempty"`
}

// Success sends a successful response with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Code:    errors.Success,
		Data:    data,
		TraceID: getTraceID(c),
	})
}

// Rejected sends a validation rejection. The submission never reached a
// database, so this is a 400 with the full list of violated rules.
func Rejected(c *gin.Context, reasons []string, feedback string, details interface{}) {
	c.JSON(http.StatusBadRequest, Response{
		Success:  false,
		Code:     errors.QueryRejected,
		Error:    errors.QueryRejected.Message(),
		Reasons:  reasons,
		Feedback: feedback,
		Details:  details,
		TraceID:  getTraceID(c),
	})
}

// ExecutionFailed sends a graded execution failure. The query ran and the
// engine rejected it; this is a normal outcome, not a server error.
func ExecutionFailed(c *gin.Context, errMsg, feedback string, details interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:  false,
		Code:     errors.QueryExecutionFailed,
		Error:    errMsg,
		Feedback: feedback,
		Details:  details,
		TraceID:  getTraceID(c),
	})
}

// Error sends an error response.
// It automatically extracts error code and message from the error.
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)

	logger.Error(c.Request.Context(), "request error",
		zap.Int("code", int(customErr.Code)),
		zap.String("message", customErr.Error()),
		zap.Any("details", customErr.Details),
	)

	c.JSON(customErr.Code.HTTPStatus(), Response{
		Success: false,
		Code:    customErr.Code,
		Error:   customErr.Error(),
		Details: customErr.Details,
		TraceID: getTraceID(c),
	})
}

// BadRequest sends a 400 bad request error
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Code:    errors.InvalidParams,
		Error:   message,
		TraceID: getTraceID(c),
	})
}

// NotFound sends a 404 not found error
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = errors.NotFound.Message()
	}
	c.JSON(http.StatusNotFound, Response{
		Success: false,
		Code:    errors.NotFound,
		Error:   message,
		TraceID: getTraceID(c),
	})
}

// getTraceID extracts trace ID from context
func getTraceID(c *gin.Context) string {
	if traceID, exists := c.Get("trace_id"); exists {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}
