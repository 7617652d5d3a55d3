// Package validator performs the lexical safety check on raw SQL text.
// It is a denylist, not a grammar: queries are matched against forbidden
// keywords and known injection shapes after comments are stripped. It is the
// first layer of defense, not a security boundary on its own.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"sqldrill/internal/judge/model"
)

// MaxQueryLength caps submissions to guard against oversized payloads.
const MaxQueryLength = 5000

// dangerousKeywords are rejected on any whole-word, case-insensitive match.
var dangerousKeywords = []string{
	// Data definition
	"DROP", "CREATE", "ALTER", "TRUNCATE", "RENAME",

	// Permissions
	"GRANT", "REVOKE", "DENY",

	// Database administration
	"SHOW", "DESCRIBE", "EXPLAIN", "ANALYZE",

	// Transaction control
	"COMMIT", "ROLLBACK", "SAVEPOINT",

	// Session and meta commands
	"USE", "SET", "RESET", "FLUSH", "KILL", "SHUTDOWN",

	// File operations
	"LOAD", "OUTFILE", "INFILE", "IMPORT", "EXPORT",

	// User and security functions
	"USER", "PASSWORD", "IDENTIFIED",

	// Stored routines
	"PROCEDURE", "FUNCTION", "TRIGGER", "EVENT",

	// Cursors and handlers
	"DECLARE", "CURSOR", "HANDLER", "CONDITION",

	// Timing attacks and engine fingerprinting
	"SLEEP", "BENCHMARK", "RAND", "CONNECTION_ID",
	"DATABASE", "VERSION", "SCHEMA", "INFORMATION_SCHEMA",
}

var keywordPatterns = buildKeywordPatterns()

func buildKeywordPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(dangerousKeywords))
	for _, kw := range dangerousKeywords {
		patterns[kw] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return patterns
}

var (
	lineCommentPattern  = regexp.MustCompile(`--[^\n]*`)
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// suspiciousPatterns are injection shapes that survive the keyword check.
var suspiciousPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"quote-breakout UNION SELECT", regexp.MustCompile(`(?i)'\s*union\s+select`)},
	{"quote-breakout OR condition", regexp.MustCompile(`(?i)'\s*or\s*'`)},
	{"quote-breakout AND condition", regexp.MustCompile(`(?i)'\s*and\s*'`)},
	{"stacked mutation after quote", regexp.MustCompile(`(?i)'\s*;\s*(drop|delete|insert|update)`)},
	{"hex literal probing", regexp.MustCompile(`(?i)0x[0-9a-f]+`)},
	{"file read function", regexp.MustCompile(`(?i)\bload_file\s*\(`)},
	{"file write clause", regexp.MustCompile(`(?i)\binto\s+(outfile|dumpfile)\b`)},
	{"timing function", regexp.MustCompile(`(?i)\b(sleep|benchmark)\s*\(`)},
	{"delayed execution", regexp.MustCompile(`(?i)\bwaitfor\s+delay\b`)},
}

// Validate runs every lexical safety check against the raw query and
// collects all violated rules, not just the first, so the caller can present
// a complete explanation.
func Validate(sql string) model.ValidationResult {
	result := model.ValidationResult{Accepted: true}

	if strings.TrimSpace(sql) == "" {
		result.Accepted = false
		result.Reasons = append(result.Reasons, "Query must be a non-empty string")
		return result
	}

	// Comments go first so keywords hidden inside them cannot evade the
	// checks below, and cannot reach the engine either.
	cleaned := StripComments(sql)
	result.NormalizedSQL = cleaned

	if len(cleaned) > MaxQueryLength {
		result.Accepted = false
		result.Reasons = append(result.Reasons, fmt.Sprintf("Query too long (maximum %d characters)", MaxQueryLength))
	}

	if hasMultipleStatements(cleaned) {
		result.Accepted = false
		result.Reasons = append(result.Reasons, "Multiple SQL statements not allowed")
	}

	if found := findDangerousKeywords(cleaned); len(found) > 0 {
		result.Accepted = false
		result.Reasons = append(result.Reasons, "Dangerous keywords not allowed: "+strings.Join(found, ", "))
	}

	if found := findSuspiciousPatterns(cleaned); len(found) > 0 {
		result.Accepted = false
		result.Reasons = append(result.Reasons, "Suspicious patterns detected: "+strings.Join(found, ", "))
	}

	if !startsWithSelect(cleaned) {
		result.Accepted = false
		result.Reasons = append(result.Reasons, "Only SELECT queries are allowed in practice mode")
	}

	return result
}

// StripComments removes line (--) and block (/* */) comments.
func StripComments(sql string) string {
	cleaned := lineCommentPattern.ReplaceAllString(sql, "")
	cleaned = blockCommentPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// hasMultipleStatements rejects stacked queries: more than one non-empty
// semicolon-delimited statement.
func hasMultipleStatements(sql string) bool {
	count := 0
	for _, stmt := range strings.Split(sql, ";") {
		if strings.TrimSpace(stmt) != "" {
			count++
		}
	}
	return count > 1
}

// findDangerousKeywords returns every denylisted keyword present as a whole
// word. Word boundaries avoid false positives on identifiers that merely
// contain a banned substring.
func findDangerousKeywords(sql string) []string {
	var found []string
	for _, kw := range dangerousKeywords {
		if keywordPatterns[kw].MatchString(sql) {
			found = append(found, kw)
		}
	}
	return found
}

func findSuspiciousPatterns(sql string) []string {
	var found []string
	for _, p := range suspiciousPatterns {
		if p.pattern.MatchString(sql) {
			found = append(found, p.name)
		}
	}
	return found
}

// startsWithSelect accepts plain SELECT statements and common table
// expressions.
func startsWithSelect(sql string) bool {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	return strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")
}
