package testutil

import (
	"time"

	"github.com/roach88/rmatrack/internal/rma"
)

// SubmittedRecord returns a freshly submitted record fixture.
func SubmittedRecord(id string, at time.Time) rma.Record {
	return rma.Record{
		ID:          id,
		CreatedAt:   at.Truncate(time.Minute),
		Customer:    "Acme",
		Product:     "Pump-7",
		PONumber:    "PO-100",
		SONumber:    "SO-200",
		ReasonCodes: "leak",
		Status:      rma.StatusSubmitted,
		CreatedBy:   "creator@example.com",
		ChangeLog: []rma.ChangeLogEntry{
			{At: at.Truncate(time.Second), By: "creator@example.com", Action: rma.ActionSubmitted},
		},
		Version: 1,
	}
}

// InspectedRecord returns a record fixture that has passed inspection.
func InspectedRecord(id string, at time.Time) rma.Record {
	r := SubmittedRecord(id, at)
	r.Status = rma.StatusInspected
	r.InspectedBy = "inspector@example.com"
	r.DateReceived = time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.Local)
	r.CauseNote = "cracked seal"
	r.InspectionOutcome = rma.OutcomeRepaired
	r.ChangeLog = append(r.ChangeLog, rma.ChangeLogEntry{
		At: at.Truncate(time.Second), By: "inspector@example.com", Action: rma.ActionInspected, Detail: string(rma.OutcomeRepaired),
	})
	r.Version = 2
	return r
}
