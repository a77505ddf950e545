package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rmatrack/internal/access"
	"github.com/roach88/rmatrack/internal/blob"
	"github.com/roach88/rmatrack/internal/config"
	"github.com/roach88/rmatrack/internal/idgen"
	"github.com/roach88/rmatrack/internal/lifecycle"
	"github.com/roach88/rmatrack/internal/logging"
	"github.com/roach88/rmatrack/internal/rma"
	"github.com/roach88/rmatrack/internal/store"
	"github.com/roach88/rmatrack/internal/testutil"
)

// traceTimeLayout renders change-log instants without a zone offset so
// traces do not depend on the machine's time zone.
const traceTimeLayout = "2006-01-02T15:04:05"

// submitArgs are the args of a submit step.
type submitArgs struct {
	Customer          string `yaml:"customer"`
	Product           string `yaml:"product"`
	SerialNumber      string `yaml:"serial_number"`
	PONumber          string `yaml:"po_number"`
	SONumber          string `yaml:"so_number"`
	HazardousLocation bool   `yaml:"hazardous_location"`
	ReasonCodes       string `yaml:"reason_codes"`
	Notes             string `yaml:"notes"`
	Attachment        string `yaml:"attachment"`
}

// inspectArgs are the args of an inspect step.
type inspectArgs struct {
	DateReceived    string `yaml:"date_received"`
	CauseNote       string `yaml:"cause_note"`
	Outcome         string `yaml:"outcome"`
	CAPARequired    bool   `yaml:"capa_required"`
	CAPAID          string `yaml:"capa_id"`
	ExpectedVersion int64  `yaml:"expected_version"`
	Document        string `yaml:"document"`
}

// reviewArgs are the args of a review step.
type reviewArgs struct {
	QACertified     bool  `yaml:"qa_certified"`
	MarkComplete    bool  `yaml:"mark_complete"`
	ExpectedVersion int64 `yaml:"expected_version"`
}

// Harness runs one scenario against an isolated data directory.
type Harness struct {
	dir    string
	store  store.Store
	engine *lifecycle.Engine
	clock  *testutil.FixedClock
	logger *zap.Logger
}

// Option configures a run.
type Option func(*runOptions)

type runOptions struct {
	logger *zap.Logger
}

// WithLogger routes engine and store logs to l. Runs are silent by default.
func WithLogger(l *zap.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory that is removed
// afterwards. A step whose outcome differs from its expect clause fails the
// result but does not stop the run; an error is returned only when the
// harness itself cannot proceed.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", scenario.Name, err)
	}

	dir, err := os.MkdirTemp("", "rmatrack-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h, err := newHarness(dir, scenario, logging.OrNop(o.logger))
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	result := NewResult(scenario.Name)
	result.AddTrace("scenario: " + scenario.Name)

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	records, err := h.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload table: %w", err)
	}
	result.Records = records
	h.traceTable(records, result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(dir string, scenario *Scenario, logger *zap.Logger) (*Harness, error) {
	start, err := scenario.start()
	if err != nil {
		return nil, fmt.Errorf("invalid start time: %w", err)
	}
	clock := testutil.NewFixedClock(start)

	ids := scenario.IDs
	if len(ids) == 0 {
		ids = defaultIDs(start, len(scenario.Steps))
	}

	defaults := config.Default()
	st := store.NewCSVStore(filepath.Join(dir, defaults.Store.CSVPath),
		store.WithCSVClock(clock),
		store.WithCSVLogger(logger),
	)
	blobs := blob.New(filepath.Join(dir, defaults.Uploads.Dir), blob.PolicyVersion, defaults.Uploads.AllowedTypes)

	requireOutcome := true
	if scenario.RequireOutcome != nil {
		requireOutcome = *scenario.RequireOutcome
	}

	eng := lifecycle.New(st, access.NewResolver(scenario.Roles),
		lifecycle.WithClock(clock),
		lifecycle.WithIDGenerator(idgen.NewFixedGenerator(ids...)),
		lifecycle.WithBlobStore(blobs),
		lifecycle.WithLogger(logger),
		lifecycle.WithRequireOutcome(requireOutcome),
	)

	return &Harness{dir: dir, store: st, engine: eng, clock: clock, logger: logger}, nil
}

// defaultIDs returns n sequential ids for the month of start.
func defaultIDs(start time.Time, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%s%03d", idgen.Prefix, start.Format("0601"), i+1)
	}
	return ids
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
	}

	id, err := h.resolveRecord(step.Record, result)
	if err != nil {
		return err
	}

	var rec rma.Record
	var opErr error
	switch step.Op {
	case OpSubmit:
		var args submitArgs
		if err := decodeArgs(&step.Args, &args); err != nil {
			return err
		}
		rec, opErr = h.engine.Submit(ctx, step.As, lifecycle.SubmitRequest{
			Customer:          args.Customer,
			Product:           args.Product,
			SerialNumber:      args.SerialNumber,
			PONumber:          args.PONumber,
			SONumber:          args.SONumber,
			HazardousLocation: args.HazardousLocation,
			ReasonCodes:       args.ReasonCodes,
			Notes:             args.Notes,
			Attachment:        attachment(args.Attachment),
		})
		if opErr == nil {
			result.Created = append(result.Created, rec.ID)
		}

	case OpInspect:
		var args inspectArgs
		if err := decodeArgs(&step.Args, &args); err != nil {
			return err
		}
		received, err := rma.ParseTime(args.DateReceived, rma.DateReceivedLayout)
		if err != nil {
			return fmt.Errorf("date_received: %w", err)
		}
		rec, opErr = h.engine.Inspect(ctx, step.As, id, lifecycle.InspectRequest{
			DateReceived:    received,
			CauseNote:       args.CauseNote,
			Outcome:         outcome(args.Outcome),
			CAPARequired:    args.CAPARequired,
			CAPAID:          args.CAPAID,
			ExpectedVersion: args.ExpectedVersion,
			Document:        attachment(args.Document),
		})

	case OpReview:
		var args reviewArgs
		if err := decodeArgs(&step.Args, &args); err != nil {
			return err
		}
		rec, opErr = h.engine.Review(ctx, step.As, id, lifecycle.ReviewRequest{
			QACertified:     args.QACertified,
			MarkComplete:    args.MarkComplete,
			ExpectedVersion: args.ExpectedVersion,
		})
	}

	if opErr != nil && lifecycle.CodeOf(opErr) == "" {
		return opErr
	}

	line := fmt.Sprintf("step %d: %s as=%s", i+1, step.Op, step.As)
	if id != "" {
		line += " record=" + id
	}
	result.AddTrace(line + " -> " + outcomeText(rec, opErr))

	h.logger.Debug("scenario step completed",
		zap.Int("step", i+1),
		zap.String("op", step.Op),
		zap.String("code", string(lifecycle.CodeOf(opErr))),
	)

	if msg := checkExpect(i, step.Expect, rec, opErr); msg != "" {
		result.AddError(msg)
	}
	return nil
}

// resolveRecord maps "#N" to the N-th created id. Other values are literal.
func (h *Harness) resolveRecord(ref string, result *Result) (string, error) {
	if !strings.HasPrefix(ref, "#") {
		return ref, nil
	}
	var n int
	if _, err := fmt.Sscanf(ref, "#%d", &n); err != nil {
		return "", fmt.Errorf("invalid record reference %q", ref)
	}
	if n < 0 || n >= len(result.Created) {
		return "", fmt.Errorf("record reference %q: only %d records created so far", ref, len(result.Created))
	}
	return result.Created[n], nil
}

func outcomeText(rec rma.Record, err error) string {
	if err == nil {
		return fmt.Sprintf("ok %s status=%s version=%d", rec.ID, rec.Status, rec.Version)
	}
	var le *lifecycle.Error
	text := "error " + string(lifecycle.CodeOf(err))
	if errors.As(err, &le) && len(le.Fields) > 0 {
		text += " fields=" + strings.Join(le.Fields, ",")
	}
	return text
}

func checkExpect(i int, expect *Expect, rec rma.Record, err error) string {
	switch {
	case expect == nil || expect.Status != "":
		if err != nil {
			return fmt.Sprintf("step %d: expected success, got %v", i+1, err)
		}
		if expect != nil && !strings.EqualFold(expect.Status, string(rec.Status)) {
			return fmt.Sprintf("step %d: expected status %s, got %s", i+1, expect.Status, rec.Status)
		}
	default:
		code := string(lifecycle.CodeOf(err))
		if !strings.EqualFold(expect.Error, code) {
			if err == nil {
				return fmt.Sprintf("step %d: expected error %s, got success", i+1, expect.Error)
			}
			return fmt.Sprintf("step %d: expected error %s, got %s", i+1, expect.Error, code)
		}
	}
	return ""
}

// traceTable appends the final table to the trace.
func (h *Harness) traceTable(records []rma.Record, result *Result) {
	result.AddTrace(fmt.Sprintf("table: %d records", len(records)))
	for _, r := range records {
		result.AddTrace(fmt.Sprintf("  %s status=%s customer=%s product=%s created_by=%s inspected_by=%s reviewed_by=%s outcome=%s qa_certified=%s capa_required=%s version=%d",
			r.ID, r.Status, r.Customer, r.Product,
			dash(r.CreatedBy), dash(r.InspectedBy), dash(r.ReviewedBy),
			dash(string(r.InspectionOutcome)),
			rma.FormatYesNo(r.QACertified), rma.FormatYesNo(r.CAPARequired), r.Version,
		))
		for _, doc := range []string{r.AttachedDocumentPath, r.InspectionDocumentPath} {
			if doc != "" {
				result.AddTrace("    document " + h.relative(doc))
			}
		}
		for _, e := range r.ChangeLog {
			line := fmt.Sprintf("    %s %s by %s", e.At.Format(traceTimeLayout), e.Action, e.By)
			if e.Detail != "" {
				line += " (" + e.Detail + ")"
			}
			result.AddTrace(line)
		}
	}
}

func (h *Harness) relative(path string) string {
	rel, err := filepath.Rel(h.dir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// outcome accepts any casing of a known outcome and passes unknown values
// through for the engine to reject.
func outcome(s string) rma.Outcome {
	if o, err := rma.ParseOutcome(s); err == nil {
		return o
	}
	return rma.Outcome(s)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// attachment builds a placeholder upload; scenarios name files but carry no
// content.
func attachment(filename string) *lifecycle.Attachment {
	if filename == "" {
		return nil
	}
	return &lifecycle.Attachment{Filename: filename, Data: []byte("scenario attachment " + filename)}
}

// decodeArgs strictly decodes node into v. An absent node leaves v zero.
func decodeArgs(node *yaml.Node, v any) error {
	if node.Kind == 0 {
		return nil
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to re-encode args: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	return nil
}
