package harness

import (
	"strings"

	"github.com/roach88/rmatrack/internal/rma"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one line per step followed by the final table.
	Trace []string `json:"trace"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Records is the final table as read back from disk.
	Records []rma.Record `json:"records"`

	// Created lists ids of records created by the scenario, in order.
	Created []string `json:"created"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:    name,
		Pass:    true,
		Trace:   []string{},
		Errors:  []string{},
		Records: []rma.Record{},
		Created: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a trace line.
func (r *Result) AddTrace(line string) {
	r.Trace = append(r.Trace, line)
}

// Render returns the trace as newline-terminated text.
func (r *Result) Render() string {
	if len(r.Trace) == 0 {
		return ""
	}
	return strings.Join(r.Trace, "\n") + "\n"
}
