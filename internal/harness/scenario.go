package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rmatrack/internal/access"
)

// Step operations.
const (
	OpSubmit  = "submit"
	OpInspect = "inspect"
	OpReview  = "review"
)

// NowLayout is the layout of a scenario's now field, in local time.
const NowLayout = "2006-01-02 15:04"

// Scenario is one lifecycle walk-through.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario shows.
	Description string `yaml:"description"`

	// Now is the starting clock, "YYYY-MM-DD HH:MM" local time.
	// Defaults to 2024-01-02 09:00.
	Now string `yaml:"now,omitempty"`

	// IDs are handed out to submissions in order. When empty, ids are
	// RMA-<yymm>001, RMA-<yymm>002, ...
	IDs []string `yaml:"ids,omitempty"`

	// Roles is the membership used for every step.
	Roles access.Roles `yaml:"roles"`

	// RequireOutcome overrides the inspection outcome policy (default true).
	RequireOutcome *bool `yaml:"require_outcome,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked against the final table and trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one lifecycle operation.
type Step struct {
	// As is the identity performing the step.
	As string `yaml:"as"`

	// Op is submit, inspect or review.
	Op string `yaml:"op"`

	// Record is a literal id or "#N". Required for inspect and review.
	Record string `yaml:"record,omitempty"`

	// Advance moves the clock forward before the step runs (e.g. "90m").
	Advance string `yaml:"advance,omitempty"`

	// Args are decoded strictly into the operation's argument type.
	Args yaml.Node `yaml:"args,omitempty"`

	// Expect is the required outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect names the status a step must leave the record in, or the error
// code it must fail with.
type Expect struct {
	Status string `yaml:"status,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// Assertion checks the final table or trace.
type Assertion struct {
	// Type is record_count, record_field or trace_contains.
	Type string `yaml:"type"`

	// Record is a literal id or "#N" (record_field).
	Record string `yaml:"record,omitempty"`

	// Field is a record field by JSON name (record_field).
	Field string `yaml:"field,omitempty"`

	// Value is the expected field value (record_field) or trace text
	// (trace_contains).
	Value string `yaml:"value,omitempty"`

	// Status restricts record_count to one status.
	Status string `yaml:"status,omitempty"`

	// Count is the expected number of records (record_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordCount   = "record_count"
	AssertRecordField   = "record_field"
	AssertTraceContains = "trace_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// start returns the scenario's starting instant.
func (s *Scenario) start() (time.Time, error) {
	if s.Now == "" {
		return time.Date(2024, time.January, 2, 9, 0, 0, 0, time.Local), nil
	}
	return time.ParseInLocation(NowLayout, s.Now, time.Local)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := s.start(); err != nil {
		return fmt.Errorf("now: %w", err)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.As == "" {
			return fmt.Errorf("steps[%d]: as is required", i)
		}
		switch step.Op {
		case OpSubmit:
		case OpInspect, OpReview:
			if step.Record == "" {
				return fmt.Errorf("steps[%d]: record is required for %s", i, step.Op)
			}
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("steps[%d]: advance: %w", i, err)
			}
		}
		if step.Expect != nil && (step.Expect.Status == "") == (step.Expect.Error == "") {
			return fmt.Errorf("steps[%d].expect: exactly one of status or error is required", i)
		}
	}

	submits := 0
	for _, step := range s.Steps {
		if step.Op == OpSubmit {
			submits++
		}
	}
	if len(s.IDs) > 0 && len(s.IDs) < submits {
		return fmt.Errorf("ids: %d listed for %d submit steps", len(s.IDs), submits)
	}
	seen := make(map[string]int, len(s.IDs))
	for i, id := range s.IDs {
		if j, ok := seen[id]; ok {
			return fmt.Errorf("ids[%d]: %q duplicates ids[%d]", i, id, j)
		}
		seen[id] = i
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	case AssertRecordField:
		if a.Record == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: record and field are required for record_field", index)
		}
	case AssertTraceContains:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for trace_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
