package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmatrack/internal/rma"
	"github.com/roach88/rmatrack/internal/testutil"
)

func assertionResult() *Result {
	at := time.Date(2024, time.March, 14, 9, 30, 0, 0, time.Local)
	r := NewResult("fixture")
	r.Records = []rma.Record{
		testutil.SubmittedRecord("RMA-2403AAA", at),
		testutil.InspectedRecord("RMA-2403AAB", at),
	}
	r.Created = []string{"RMA-2403AAA", "RMA-2403AAB"}
	r.AddTrace("step 1: submit as=creator@example.com -> ok RMA-2403AAA status=Submitted version=1")
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	failures := EvaluateAssertions(assertionResult(), []Assertion{
		{Type: AssertRecordCount, Count: 2},
		{Type: AssertRecordCount, Status: "inspected", Count: 1},
		{Type: AssertRecordField, Record: "#1", Field: "inspection_outcome", Value: "Repaired"},
		{Type: AssertRecordField, Record: "RMA-2403AAA", Field: "customer", Value: "Acme"},
		{Type: AssertRecordField, Record: "#0", Field: "inspected_by", Value: ""},
		{Type: AssertRecordField, Record: "#1", Field: "version", Value: "2"},
		{Type: AssertRecordField, Record: "#0", Field: "hazardous_location", Value: "false"},
		{Type: AssertTraceContains, Value: "status=Submitted"},
	})
	assert.Empty(t, failures)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	failures := EvaluateAssertions(assertionResult(), []Assertion{
		{Type: AssertRecordCount, Count: 3},
		{Type: AssertRecordCount, Status: "Completed", Count: 1},
		{Type: AssertRecordField, Record: "#0", Field: "customer", Value: "Globex"},
		{Type: AssertRecordField, Record: "#5", Field: "customer", Value: "Acme"},
		{Type: AssertRecordField, Record: "RMA-2403ZZZ", Field: "customer", Value: "Acme"},
		{Type: AssertTraceContains, Value: "error CONFLICT"},
		{Type: AssertRecordCount, Status: "Reopened", Count: 0},
	})

	require.Len(t, failures, 7)
	assert.Contains(t, failures[0], "expected 3 records, actual 2 records")
	assert.Contains(t, failures[1], "1 records with status Completed")
	assert.Contains(t, failures[2], `RMA-2403AAA.customer = "Globex"`)
	assert.Contains(t, failures[3], `record reference "#5" does not resolve`)
	assert.Contains(t, failures[4], "record not found")
	assert.Contains(t, failures[5], `a trace line containing "error CONFLICT"`)
	assert.Contains(t, failures[6], "assertions[6]")
}
