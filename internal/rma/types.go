package rma

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a record.
type Status string

const (
	StatusSubmitted Status = "Submitted"
	StatusInspected Status = "Inspected"
	StatusCompleted Status = "Completed"
)

// ValidStatuses lists statuses in lifecycle order.
var ValidStatuses = []Status{StatusSubmitted, StatusInspected, StatusCompleted}

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range ValidStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q: must be one of %v", s, ValidStatuses)
}

// Outcome is the disposition chosen during inspection.
// The zero value means no outcome was selected.
type Outcome string

const (
	OutcomeUnset       Outcome = ""
	OutcomeDisposition Outcome = "Disposition"
	OutcomeRepaired    Outcome = "Repaired"
	OutcomeReplaced    Outcome = "Replaced"
	OutcomeRejected    Outcome = "Rejected"
)

// ValidOutcomes lists the selectable outcomes, excluding unset.
var ValidOutcomes = []Outcome{OutcomeDisposition, OutcomeRepaired, OutcomeReplaced, OutcomeRejected}

// ParseOutcome accepts an outcome name case-insensitively. An empty string
// parses to OutcomeUnset.
func ParseOutcome(s string) (Outcome, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OutcomeUnset, nil
	}
	for _, o := range ValidOutcomes {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown outcome %q: must be one of %v", s, ValidOutcomes)
}

// Role is a stage-owning role.
type Role string

const (
	RoleCreator   Role = "Creator"
	RoleInspector Role = "Inspector"
	RoleReviewer  Role = "Reviewer"
)

// RolePriority is the order in which memberships are checked when an
// identity belongs to more than one role set.
var RolePriority = []Role{RoleCreator, RoleInspector, RoleReviewer}

// StageLabel is the human name of the stage a role owns.
func (r Role) StageLabel() string {
	switch r {
	case RoleCreator:
		return "Request for Return"
	case RoleInspector:
		return "Inspection and Disposition"
	case RoleReviewer:
		return "Final Review"
	}
	return string(r)
}

// Record is one RMA row.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Submission
	Customer             string `json:"customer"`
	Product              string `json:"product"`
	SerialNumber         string `json:"serial_number,omitempty"`
	PONumber             string `json:"po_number,omitempty"`
	SONumber             string `json:"so_number,omitempty"`
	HazardousLocation    bool   `json:"hazardous_location"`
	ReasonCodes          string `json:"reason_codes"`
	Notes                string `json:"notes,omitempty"`
	AttachedDocumentPath string `json:"attached_document_path,omitempty"`

	Status Status `json:"status"`

	// Provenance
	CreatedBy   string `json:"created_by"`
	InspectedBy string `json:"inspected_by,omitempty"`
	ReviewedBy  string `json:"reviewed_by,omitempty"`

	// Inspection
	DateReceived           time.Time `json:"date_received"`
	InspectionDocumentPath string    `json:"inspection_document_path,omitempty"`
	CauseNote              string    `json:"cause_note,omitempty"`
	InspectionOutcome      Outcome   `json:"inspection_outcome,omitempty"`
	CAPARequired           bool      `json:"capa_required"`
	CAPAID                 string    `json:"capa_id,omitempty"`

	// Review
	QACertified bool `json:"qa_certified"`

	ChangeLog []ChangeLogEntry `json:"change_log"`
	Version   int64            `json:"version"`
}

// Label is the one-line description used in selection lists.
func (r Record) Label() string {
	return fmt.Sprintf("%s – %s – %s", r.ID, r.Customer, r.Product)
}

// Clone returns a copy that shares no slices with r.
func (r Record) Clone() Record {
	c := r
	if r.ChangeLog != nil {
		c.ChangeLog = append([]ChangeLogEntry(nil), r.ChangeLog...)
	}
	return c
}

// ChangeLogEntry records one successful transition.
type ChangeLogEntry struct {
	At     time.Time `json:"at"`
	By     string    `json:"by"`
	Action string    `json:"action"`
	Detail string    `json:"detail,omitempty"`
}

// Change log actions.
const (
	ActionSubmitted = "submitted"
	ActionInspected = "inspected"
	ActionReviewed  = "reviewed"
	ActionCompleted = "completed"
)
