// Package comparator grades execution results against stored expected output.
// Comparison is positional and string-normalized: row order matters, column
// order inside a row does not, and values are compared by their string form
// so that expected output stored as JSON matches values of any driver type.
package comparator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sqldrill/internal/judge/model"
)

// CorrectMessage is the feedback attached to a matching result.
const CorrectMessage = "Correct! Your query produced the expected output."

// Compare grades actual rows against the fixture's expected output. A nil or
// empty expected set means the problem cannot be graded; the verdict is then
// advisory and never counts as a solve.
func Compare(actual []map[string]interface{}, expected []map[string]interface{}, sql string) model.Verdict {
	if len(expected) == 0 {
		return model.UnvalidatedVerdict(advise(actual, sql))
	}

	if len(actual) != len(expected) {
		return model.IncorrectVerdict(fmt.Sprintf("Expected %d rows, but got %d rows.", len(expected), len(actual)))
	}

	for i := range expected {
		if !rowsEqual(actual[i], expected[i]) {
			return model.IncorrectVerdict(fmt.Sprintf("Row %d doesn't match expected output.", i+1))
		}
	}

	return model.CorrectVerdict()
}

// advise builds the hint for problems without expected output.
func advise(actual []map[string]interface{}, sql string) string {
	if len(actual) == 0 {
		return "Query executed successfully but returned no results. Check if this is expected."
	}
	if strings.Contains(strings.ToLower(sql), "select *") {
		return fmt.Sprintf("Query executed successfully and returned %d rows. Note: If this problem requires aggregation or specific columns, consider using GROUP BY, COUNT, AVG, etc. instead of SELECT *.", len(actual))
	}
	return fmt.Sprintf("Query executed successfully and returned %d rows. (Automatic validation not available for this problem yet)", len(actual))
}

// rowsEqual compares two rows by key set and normalized values, independent
// of key order.
func rowsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for key, av := range a {
		bv, ok := b[key]
		if !ok {
			return false
		}
		an, aNull := normalizeValue(av)
		bn, bNull := normalizeValue(bv)
		if aNull != bNull || an != bn {
			return false
		}
	}
	return true
}

// normalizeValue renders a cell as its canonical string form. NULL is kept
// distinct from any string, including "null" and "".
func normalizeValue(v interface{}) (s string, isNull bool) {
	if v == nil {
		return "", true
	}
	switch val := v.(type) {
	case string:
		return val, false
	case []byte:
		return string(val), false
	case int64:
		return strconv.FormatInt(val, 10), false
	case int:
		return strconv.Itoa(val), false
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), false
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), false
	case bool:
		return strconv.FormatBool(val), false
	case time.Time:
		return val.Format(time.RFC3339), false
	default:
		return fmt.Sprint(val), false
	}
}
