// Package feedback turns raw engine errors into learner-facing guidance.
// Classification is regex-based on the error message text, so it works the
// same for both supported engines without driver-specific error codes.
package feedback

import (
	"fmt"
	"regexp"
	"strings"
)

// Error kinds produced by Classify. They are part of the response contract.
const (
	KindSyntaxError      = "syntax_error"
	KindGroupByError     = "group_by_error"
	KindTableNotFound    = "table_not_found"
	KindColumnNotFound   = "column_not_found"
	KindIncompleteQuery  = "incomplete_query"
	KindAggregateInWhere = "aggregate_in_where"
	KindAmbiguousColumn  = "ambiguous_column"
	KindDivisionByZero   = "division_by_zero"
	KindTimeout          = "timeout"
	KindGeneralError     = "general_error"
)

// Feedback is the educational payload attached to failed submissions.
type Feedback struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Explanation string   `json:"explanation"`
	Suggestions []string `json:"suggestions,omitempty"`
	Example     string   `json:"example,omitempty"`
	LearnMore   string   `json:"learnMore,omitempty"`
}

type errorPattern struct {
	kind    string
	pattern *regexp.Regexp
	build   func(match []string) Feedback
}

var errorPatterns = []errorPattern{
	{
		kind:    KindTimeout,
		pattern: regexp.MustCompile(`(?i)(statement timeout|canceling statement due to statement timeout|query execution was interrupted|max_execution_time exceeded|context deadline exceeded)`),
		build: func(match []string) Feedback {
			return Feedback{
				Type:        KindTimeout,
				Title:       "Query Timed Out",
				Explanation: "Your query exceeded the time limit and was stopped.",
				Suggestions: []string{
					"Add WHERE conditions to reduce the rows being scanned",
					"Check JOINs for missing ON conditions that multiply rows",
					"Avoid functions that intentionally delay execution",
				},
				Example:     "SELECT name FROM users WHERE id = 42",
				LearnMore:   "Practice queries run under a strict time budget to keep the sandbox responsive.",
			}
		},
	},
	{
		kind:    KindGroupByError,
		pattern: regexp.MustCompile(`(?i)column "(.+)" must appear in the GROUP BY clause`),
		build: func(match []string) Feedback {
			return Feedback{
				Type:        KindGroupByError,
				Title:       "GROUP BY Rule Violation",
				Explanation: fmt.Sprintf("When using GROUP BY, every column in SELECT (except aggregates) must be in the GROUP BY clause. Column %q is missing.", match[1]),
				Suggestions: []string{
					fmt.Sprintf("Add %q to your GROUP BY clause", match[1]),
					"Only aggregate functions (COUNT, SUM, etc.) can be used without GROUP BY",
					"Consider if you really need to group by this column",
				},
				Example:   "SELECT department, COUNT(*) FROM employees GROUP BY department",
				LearnMore: "GROUP BY determines how rows are combined for aggregate calculations.",
			}
		},
	},
	{
		kind:    KindTableNotFound,
		pattern: regexp.MustCompile(`(?i)(?:relation "(.+)" does not exist|table '(?:\w+\.)?(.+)' doesn't exist)`),
		build: func(match []string) Feedback {
			name := match[1]
			if name == "" {
				name = match[2]
			}
			return Feedback{
				Type:        KindTableNotFound,
				Title:       "Table Not Found",
				Explanation: fmt.Sprintf("The table %q doesn't exist in the current database or isn't accessible.", name),
				Suggestions: []string{
					"Check the spelling of the table name",
					"Tables are case-sensitive in some databases",
					"Make sure the table exists in the current schema",
					"Review the problem description for the correct table names",
				},
				Example:   "Common tables might be: users, orders, products, etc.",
				LearnMore: "Table names must match exactly as they exist in the database.",
			}
		},
	},
	{
		kind:    KindColumnNotFound,
		pattern: regexp.MustCompile(`(?i)(?:column "(.+)" does not exist|unknown column '(.+)' in)`),
		build: func(match []string) Feedback {
			name := match[1]
			if name == "" {
				name = match[2]
			}
			return Feedback{
				Type:        KindColumnNotFound,
				Title:       "Column Not Found",
				Explanation: fmt.Sprintf("The column %q doesn't exist in the tables you're querying.", name),
				Suggestions: []string{
					"Check the spelling of the column name",
					"Verify the column exists in the table you're selecting from",
					"Use table.column format if there's ambiguity",
					"Review the table schema in the problem description",
				},
				Example:   "SELECT users.name, orders.total FROM users JOIN orders...",
				LearnMore: "Column names must match exactly as defined in the table schema.",
			}
		},
	},
	{
		kind:    KindIncompleteQuery,
		pattern: regexp.MustCompile(`(?i)syntax error at end of input`),
		build: func(match []string) Feedback {
			return Feedback{
				Type:        KindIncompleteQuery,
				Title:       "Incomplete Query",
				Explanation: "Your SQL query appears to be incomplete. The database expected more content.",
				Suggestions: []string{
					"Make sure all clauses are complete (SELECT, FROM, WHERE, etc.)",
					"Verify that all parentheses and quotes are properly closed",
				},
				Example:   "Complete query: SELECT * FROM table_name WHERE condition",
				LearnMore: "SQL queries need to be syntactically complete before execution.",
			}
		},
	},
	{
		kind:    KindSyntaxError,
		pattern: regexp.MustCompile(`(?i)syntax error at or near "(.+)"`),
		build: func(match []string) Feedback {
			return Feedback{
				Type:        KindSyntaxError,
				Title:       "Syntax Error Found",
				Explanation: fmt.Sprintf("There's a syntax issue near %q. This usually means a missing comma, parenthesis, or keyword.", match[1]),
				Suggestions: []string{
					"Check for missing commas between column names",
					"Ensure all parentheses are properly closed",
					"Verify that SQL keywords are spelled correctly",
				},
				Example:   "Example: SELECT name, age FROM users (note the comma between columns)",
				LearnMore: "SQL syntax requires precise punctuation and keyword placement.",
			}
		},
	},
	{
		kind:    KindAggregateInWhere,
		pattern: regexp.MustCompile(`(?i)aggregate functions are not allowed in WHERE`),
		build: func(match []string) Feedback {
			return Feedback{
				Type:        KindAggregateInWhere,
				Title:       "Aggregate Function Misplacement",
				Explanation: "Aggregate functions (COUNT, SUM, AVG, etc.) cannot be used in WHERE clauses.",
				Suggestions: []string{
					"Use HAVING clause instead of WHERE for aggregate conditions",
					"Move aggregate functions to SELECT or HAVING clauses",
					"Filter individual rows with WHERE, then aggregate with GROUP BY and HAVING",
				},
				Example:   "SELECT department, COUNT(*) FROM employees GROUP BY department HAVING COUNT(*) > 5",
				LearnMore: "WHERE filters individual rows; HAVING filters grouped results.",
			}
		},
	},
	{
		kind:    KindAmbiguousColumn,
		pattern: regexp.MustCompile(`(?i)(?:ambiguous column name "(.+)"|column reference "(.+)" is ambiguous|column '(.+)' in \w+ \w+ is ambiguous)`),
		build: func(match []string) Feedback {
			name := firstNonEmpty(match[1:])
			return Feedback{
				Type:        KindAmbiguousColumn,
				Title:       "Ambiguous Column Reference",
				Explanation: fmt.Sprintf("Column %q exists in multiple tables, making the reference unclear.", name),
				Suggestions: []string{
					fmt.Sprintf("Use table prefixes: table1.%s or table2.%s", name, name),
					"Give tables aliases for shorter references: SELECT u.name FROM users u",
					"Be specific about which table's column you want",
				},
				Example:   "SELECT users.id, orders.id FROM users JOIN orders ON users.id = orders.user_id",
				LearnMore: "Always specify the table when column names might be ambiguous.",
			}
		},
	},
	{
		kind:    KindDivisionByZero,
		pattern: regexp.MustCompile(`(?i)division by zero`),
		build: func(match []string) Feedback {
			return Feedback{
				Type:        KindDivisionByZero,
				Title:       "Division by Zero Error",
				Explanation: "Your calculation attempted to divide by zero, which is undefined.",
				Suggestions: []string{
					"Add a WHERE clause to exclude rows where the divisor is zero",
					"Use CASE statement to handle zero values",
					"Use NULLIF function: dividend / NULLIF(divisor, 0)",
				},
				Example:   "SELECT revenue / NULLIF(cost, 0) AS profit_margin FROM sales",
				LearnMore: "Always handle edge cases like zero or null values in calculations.",
			}
		},
	},
}

// Classify maps an engine error message to a stable error kind.
func Classify(errMsg string) string {
	for _, p := range errorPatterns {
		if p.pattern.MatchString(errMsg) {
			return p.kind
		}
	}
	return KindGeneralError
}

// ForError builds educational feedback for a runtime SQL error. The user's
// query is only consulted for the generic fallback's debugging tips.
func ForError(errMsg, userQuery string) Feedback {
	for _, p := range errorPatterns {
		if match := p.pattern.FindStringSubmatch(errMsg); match != nil {
			return p.build(match)
		}
	}
	return genericFeedback(userQuery)
}

// ForRejection builds feedback for a query that failed the lexical check.
func ForRejection(reasons []string) Feedback {
	return Feedback{
		Type:        "validation_error",
		Title:       "Query Not Allowed",
		Explanation: "Your query was blocked before execution: " + strings.Join(reasons, "; "),
		Suggestions: []string{
			"Practice mode only runs single SELECT statements",
			"Remove any data-modifying or administrative commands",
		},
		Example:   "SELECT name, salary FROM employees WHERE salary > 50000",
		LearnMore: "The sandbox restricts queries so every learner starts from the same data.",
	}
}

func genericFeedback(userQuery string) Feedback {
	fb := Feedback{
		Type:        KindGeneralError,
		Title:       "SQL Execution Error",
		Explanation: "Your query encountered an error. Let's figure out what went wrong!",
		Suggestions: []string{
			"Check your SQL syntax carefully",
			"Verify table and column names are spelled correctly",
			"Try breaking down complex queries into smaller parts",
		},
		Example:   "Basic query structure: SELECT columns FROM table WHERE condition",
		LearnMore: "SQL errors are learning opportunities.",
	}
	fb.Suggestions = append(fb.Suggestions, debuggingTips(userQuery)...)
	return fb
}

// debuggingTips inspects the query shape for common beginner mistakes.
func debuggingTips(userQuery string) []string {
	if userQuery == "" {
		return nil
	}
	upper := strings.ToUpper(userQuery)

	var tips []string
	if strings.Contains(upper, "SELECT *") {
		tips = append(tips, "Consider selecting specific columns instead of SELECT * for better practice")
	}
	if strings.Contains(upper, "GROUP BY") && !strings.Contains(upper, "HAVING") {
		tips = append(tips, "If you need to filter grouped results, use HAVING instead of WHERE")
	}
	if strings.Contains(upper, "JOIN") && !strings.Contains(upper, " ON ") {
		tips = append(tips, "Make sure your JOINs have ON conditions to specify how tables relate")
	}
	return tips
}

func firstNonEmpty(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}
