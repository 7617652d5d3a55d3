package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Query validation errors
// 12000-12999: Problem & Fixture errors
// 13000-13999: Sandbox & Execution errors
// 14000-14999: Progress tracking errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// ========== Query Validation Errors (11000-11999) ==========

	QueryRejected      ErrorCode = 11000
	QueryEmpty         ErrorCode = 11001
	QueryTooLong       ErrorCode = 11002
	MultipleStatements ErrorCode = 11003
	ForbiddenKeyword   ErrorCode = 11004
	SuspiciousPattern  ErrorCode = 11005
	NotSelectStatement ErrorCode = 11006

	// ========== Problem & Fixture Errors (12000-12999) ==========

	ProblemNotFound      ErrorCode = 12000
	ProblemNotActive     ErrorCode = 12001
	FixtureNotFound      ErrorCode = 12002
	FixtureLoadFailed    ErrorCode = 12003
	DialectNotSupported  ErrorCode = 12004
	ExpectedOutputAbsent ErrorCode = 12005

	// ========== Sandbox & Execution Errors (13000-13999) ==========

	// Sandbox preparation (13000-13099)
	SandboxPrepareFailed ErrorCode = 13000
	SandboxWipeFailed    ErrorCode = 13001
	SandboxSetupFailed   ErrorCode = 13002
	SandboxSeedFailed    ErrorCode = 13003
	SandboxBusy          ErrorCode = 13004
	SandboxConnectFailed ErrorCode = 13005

	// Query execution (13100-13199)
	QueryExecutionFailed ErrorCode = 13100
	QueryTimeout         ErrorCode = 13101

	// ========== Progress Tracking Errors (14000-14999) ==========

	ProgressNotFound     ErrorCode = 14000
	ProgressRecordFailed ErrorCode = 14001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:  "Database operation failed",
	RecordNotFound: "Record not found in database",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	QueryRejected:      "Query not allowed",
	QueryEmpty:         "Query must be a non-empty string",
	QueryTooLong:       "Query too long (maximum 5000 characters)",
	MultipleStatements: "Multiple SQL statements not allowed",
	ForbiddenKeyword:   "Query contains forbidden keywords",
	SuspiciousPattern:  "Query contains suspicious patterns",
	NotSelectStatement: "Only SELECT queries are allowed in practice mode",

	// Problem & Fixture
	ProblemNotFound:      "Problem not found",
	ProblemNotActive:     "Problem is not active",
	FixtureNotFound:      "No fixture stored for this problem and dialect",
	FixtureLoadFailed:    "Failed to load problem fixture",
	DialectNotSupported:  "Unsupported database dialect",
	ExpectedOutputAbsent: "No expected output stored for this problem",

	// Sandbox & Execution
	SandboxPrepareFailed: "Failed to prepare the sandbox environment",
	SandboxWipeFailed:    "Failed to reset the sandbox schema",
	SandboxSetupFailed:   "Failed to apply the problem setup",
	SandboxSeedFailed:    "Failed to apply the problem seed data",
	SandboxBusy:          "Sandbox is busy, please try again",
	SandboxConnectFailed: "Failed to connect to the sandbox database",
	QueryExecutionFailed: "Query failed to execute",
	QueryTimeout:         "Query execution timed out",

	// Progress
	ProgressNotFound:     "No progress recorded for this problem",
	ProgressRecordFailed: "Failed to record progress",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c >= 11000 && c < 12000: // Validation rejections
		return 400
	case c == InvalidParams:
		return 400
	case c == NotFound, c == ProblemNotFound, c == FixtureNotFound, c == ProgressNotFound, c == RecordNotFound:
		return 404
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable, c == SandboxBusy:
		return 503
	default:
		return 500
	}
}
