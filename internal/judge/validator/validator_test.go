package validator_test

import (
	"strings"
	"testing"

	"sqldrill/internal/judge/validator"
)

func TestValidateAcceptsPlainSelect(t *testing.T) {
	t.Parallel()
	queries := []string{
		"SELECT name, salary FROM employees ORDER BY salary DESC LIMIT 3",
		"select count(*) from orders where total > 100",
		"WITH top AS (SELECT id FROM users) SELECT * FROM top",
		"SELECT 1;",
	}
	for _, q := range queries {
		result := validator.Validate(q)
		if !result.Accepted {
			t.Fatalf("expected %q accepted, got reasons %v", q, result.Reasons)
		}
	}
}

func TestValidateRejectsEmptyQuery(t *testing.T) {
	t.Parallel()
	for _, q := range []string{"", "   ", "\n\t"} {
		result := validator.Validate(q)
		if result.Accepted {
			t.Fatalf("expected empty query rejected")
		}
	}
}

func TestValidateRejectsOversizedQuery(t *testing.T) {
	t.Parallel()
	q := "SELECT '" + strings.Repeat("a", validator.MaxQueryLength) + "'"
	result := validator.Validate(q)
	if result.Accepted {
		t.Fatalf("expected oversized query rejected")
	}
	assertReasonContains(t, result.Reasons, "Query too long")
}

func TestValidateRejectsDangerousKeywordsAnyCase(t *testing.T) {
	t.Parallel()
	queries := []string{
		"DROP TABLE users",
		"dRoP tAbLe users",
		"SELECT * FROM users; TRUNCATE TABLE users",
		"GRANT ALL ON db.* TO 'x'",
		"SELECT * FROM users WHERE id = (SELECT SLEEP(10))",
	}
	for _, q := range queries {
		result := validator.Validate(q)
		if result.Accepted {
			t.Fatalf("expected %q rejected", q)
		}
		assertReasonContains(t, result.Reasons, "Dangerous keywords not allowed")
	}
}

func TestValidateRejectsFingerprintingFunctions(t *testing.T) {
	t.Parallel()
	queries := []string{
		"SELECT DATABASE()",
		"SELECT VERSION()",
		"SELECT USER()",
		"SELECT RAND()",
		"SELECT CONNECTION_ID()",
		"SELECT schema()",
	}
	for _, q := range queries {
		result := validator.Validate(q)
		if result.Accepted {
			t.Fatalf("expected %q rejected", q)
		}
		assertReasonContains(t, result.Reasons, "Dangerous keywords not allowed")
	}
}

func TestValidateKeywordSplitByCommentStillDetected(t *testing.T) {
	t.Parallel()
	result := validator.Validate("DROP/* hidden */ TABLE users")
	if result.Accepted {
		t.Fatalf("expected comment-split keyword rejected")
	}
	assertReasonContains(t, result.Reasons, "DROP")
}

func TestValidateKeywordInsideCommentIsStripped(t *testing.T) {
	t.Parallel()
	// The keyword is removed with the comment, so it can neither evade
	// detection nor execute.
	result := validator.Validate("SELECT 1 /* DROP TABLE users */")
	if !result.Accepted {
		t.Fatalf("expected commented keyword stripped, got reasons %v", result.Reasons)
	}
	if strings.Contains(result.NormalizedSQL, "DROP") {
		t.Fatalf("expected comment removed from normalized sql: %q", result.NormalizedSQL)
	}
}

func TestValidateWordBoundaryAvoidsFalsePositives(t *testing.T) {
	t.Parallel()
	queries := []string{
		"SELECT created_at FROM users",
		"SELECT username, dropped_count FROM stats",
		"SELECT showcase FROM exhibits",
	}
	for _, q := range queries {
		result := validator.Validate(q)
		if !result.Accepted {
			t.Fatalf("expected %q accepted, got reasons %v", q, result.Reasons)
		}
	}
}

func TestValidateRejectsMultipleStatements(t *testing.T) {
	t.Parallel()
	result := validator.Validate("SELECT 1; SELECT 2")
	if result.Accepted {
		t.Fatalf("expected stacked statements rejected")
	}
	assertReasonContains(t, result.Reasons, "Multiple SQL statements not allowed")
}

func TestValidateStackedDropCollectsAllReasons(t *testing.T) {
	t.Parallel()
	result := validator.Validate("SELECT * FROM users; DROP TABLE users;")
	if result.Accepted {
		t.Fatalf("expected stacked drop rejected")
	}
	assertReasonContains(t, result.Reasons, "Multiple SQL statements not allowed")
	assertReasonContains(t, result.Reasons, "DROP")
}

func TestValidateRejectsSuspiciousPatterns(t *testing.T) {
	t.Parallel()
	queries := []string{
		"SELECT * FROM users WHERE id = 0x41424344",
		"SELECT * FROM users WHERE name = '' OR ''=''",
		"SELECT * FROM t WHERE a = '' union select password from users",
	}
	for _, q := range queries {
		result := validator.Validate(q)
		if result.Accepted {
			t.Fatalf("expected %q rejected", q)
		}
		assertReasonContains(t, result.Reasons, "Suspicious patterns detected")
	}
}

func TestValidateRejectsNonSelectStatements(t *testing.T) {
	t.Parallel()
	queries := []string{
		"DELETE FROM users WHERE id = 1",
		"UPDATE users SET name = 'x'",
		"INSERT INTO users VALUES (1)",
	}
	for _, q := range queries {
		result := validator.Validate(q)
		if result.Accepted {
			t.Fatalf("expected %q rejected", q)
		}
		assertReasonContains(t, result.Reasons, "Only SELECT queries are allowed")
	}
}

func TestValidateStripsLineComments(t *testing.T) {
	t.Parallel()
	result := validator.Validate("SELECT 1 -- trailing comment\n")
	if !result.Accepted {
		t.Fatalf("expected accepted, got reasons %v", result.Reasons)
	}
	if strings.Contains(result.NormalizedSQL, "--") {
		t.Fatalf("expected line comment removed: %q", result.NormalizedSQL)
	}
}

func assertReasonContains(t *testing.T, reasons []string, want string) {
	t.Helper()
	for _, r := range reasons {
		if strings.Contains(r, want) {
			return
		}
	}
	t.Fatalf("expected a reason containing %q, got %v", want, reasons)
}
