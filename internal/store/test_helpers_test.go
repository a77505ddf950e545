package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rmatrack/internal/rma"
	"github.com/roach88/rmatrack/internal/testutil"
)

var fixtureTime = time.Date(2026, 10, 14, 9, 30, 45, 0, time.Local)

// fixtureTable returns one record in each status.
func fixtureTable() []rma.Record {
	submitted := testutil.SubmittedRecord("RMA-2610AAA", fixtureTime)
	submitted.Notes = "customer says \"urgent\", ships Monday\nsecond line"
	submitted.HazardousLocation = true

	inspected := testutil.InspectedRecord("RMA-2610AAB", fixtureTime)
	inspected.InspectionDocumentPath = "uploaded_docs/RMA-2610AAB_insp_report.pdf"
	inspected.CAPARequired = true
	inspected.CAPAID = "CAPA-42"

	completed := testutil.InspectedRecord("RMA-2610AAC", fixtureTime)
	completed.Status = rma.StatusCompleted
	completed.ReviewedBy = "qa@example.com"
	completed.QACertified = true
	completed.Version = 3

	return []rma.Record{submitted, inspected, completed}
}

// requireSameRows compares records by their persisted cell text, which is
// what the table actually stores (time zone pointers aside).
func requireSameRows(t *testing.T, want, got []rma.Record) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, err := marshalRow(want[i])
		require.NoError(t, err)
		g, err := marshalRow(got[i])
		require.NoError(t, err)
		require.Equal(t, w, g, "record %d (%s)", i, want[i].ID)
	}
}
