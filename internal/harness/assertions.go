package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/rmatrack/internal/rma"
	"github.com/roach88/rmatrack/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, actual %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRecordCount:
			err = assertRecordCount(result.Records, a)
		case AssertRecordField:
			err = assertRecordField(result, a)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func assertRecordCount(records []rma.Record, a Assertion) error {
	matched := records
	if a.Status != "" {
		status, err := rma.ParseStatus(a.Status)
		if err != nil {
			return err
		}
		matched = store.FindByStatus(records, status)
	}
	if len(matched) != a.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d records%s", a.Count, statusSuffix(a.Status)),
			Actual:   fmt.Sprintf("%d records", len(matched)),
		}
	}
	return nil
}

// assertRecordField compares a field, addressed by its JSON name, using its
// JSON rendering. Absent optional fields read as "".
func assertRecordField(result *Result, a Assertion) error {
	id := a.Record
	if strings.HasPrefix(id, "#") {
		var n int
		if _, err := fmt.Sscanf(id, "#%d", &n); err != nil || n < 0 || n >= len(result.Created) {
			return fmt.Errorf("record reference %q does not resolve", a.Record)
		}
		id = result.Created[n]
	}

	_, rec, ok := store.FindByID(result.Records, id)
	if !ok {
		return &AssertionError{Type: AssertRecordField, Expected: "record " + id, Actual: "record not found"}
	}

	fields, err := recordFields(rec)
	if err != nil {
		return err
	}
	got := fields[a.Field]
	if got != a.Value {
		return &AssertionError{
			Type:     AssertRecordField,
			Expected: fmt.Sprintf("%s.%s = %q", id, a.Field, a.Value),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

func assertTraceContains(trace []string, a Assertion) error {
	for _, line := range trace {
		if strings.Contains(line, a.Value) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("a trace line containing %q", a.Value),
		Actual:   "not found in trace",
	}
}

func recordFields(rec rma.Record) (map[string]string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = fmt.Sprint(v)
	}
	return fields, nil
}

func statusSuffix(status string) string {
	if status == "" {
		return ""
	}
	return " with status " + status
}
