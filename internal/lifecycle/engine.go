package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roach88/rmatrack/internal/access"
	"github.com/roach88/rmatrack/internal/blob"
	"github.com/roach88/rmatrack/internal/idgen"
	"github.com/roach88/rmatrack/internal/logging"
	"github.com/roach88/rmatrack/internal/rma"
	"github.com/roach88/rmatrack/internal/store"
)

// maxIDAttempts bounds regeneration when a new id is already in the table.
const maxIDAttempts = 5

// Engine runs lifecycle transitions against a record store.
type Engine struct {
	mu sync.Mutex

	store          store.Store
	blobs          *blob.Store
	access         *access.Resolver
	ids            idgen.Generator
	clock          rma.Clock
	logger         *zap.Logger
	validate       *validator.Validate
	requireOutcome bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for timestamps.
func WithClock(c rma.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the record id generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// WithBlobStore enables attachments. Without one, requests carrying an
// attachment are rejected.
func WithBlobStore(b *blob.Store) Option {
	return func(e *Engine) { e.blobs = b }
}

// WithRequireOutcome sets whether inspection must select an outcome.
func WithRequireOutcome(require bool) Option {
	return func(e *Engine) { e.requireOutcome = require }
}

// New creates an engine. Defaults: system clock, random RMA ids, no-op
// logger, outcome required, no blob store.
func New(s store.Store, resolver *access.Resolver, opts ...Option) *Engine {
	e := &Engine{
		store:          s,
		access:         resolver,
		clock:          rma.SystemClock{},
		logger:         zap.NewNop(),
		validate:       newValidator(),
		requireOutcome: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ids == nil {
		e.ids = idgen.NewRMAGenerator(e.clock)
	}
	return e
}

// authorize resolves identity to its single role and checks it owns the
// stage of role. An identity listed in several sets acts only in the one it
// resolves to.
func (e *Engine) authorize(identity string, role rma.Role) (string, error) {
	resolved, err := e.access.ResolveRole(identity)
	if err != nil {
		e.logger.Warn("access denied", zap.String("identity", identity))
		return "", newAccessDenied(identity)
	}
	who := access.Normalize(identity)
	if resolved != role {
		e.logger.Debug("stage not owned by role",
			zap.String("identity", who),
			zap.String("role", string(resolved)),
			zap.String("stage", role.StageLabel()),
		)
		return "", newPermission(who, role.StageLabel())
	}
	return who, nil
}

// Submit creates a new record in status Submitted.
func (e *Engine) Submit(ctx context.Context, identity string, req SubmitRequest) (rma.Record, error) {
	who, err := e.authorize(identity, rma.RoleCreator)
	if err != nil {
		return rma.Record{}, err
	}

	req.trim()
	if err := e.validate.Struct(req); err != nil {
		return rma.Record{}, newValidation(who, invalidFields(err), "")
	}
	if err := e.checkAttachment(who, req.Attachment); err != nil {
		return rma.Record{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.load(ctx, who, "")
	if err != nil {
		return rma.Record{}, err
	}

	id, err := e.newID(records)
	if err != nil {
		return rma.Record{}, newPersistence(who, "", "could not allocate a record id", err)
	}

	now := e.clock.Now()
	rec := rma.Record{
		ID:                id,
		CreatedAt:         now.Truncate(time.Minute),
		Customer:          req.Customer,
		Product:           req.Product,
		SerialNumber:      req.SerialNumber,
		PONumber:          req.PONumber,
		SONumber:          req.SONumber,
		HazardousLocation: req.HazardousLocation,
		ReasonCodes:       req.ReasonCodes,
		Notes:             req.Notes,
		Status:            rma.StatusSubmitted,
		CreatedBy:         who,
		ChangeLog: []rma.ChangeLogEntry{
			{At: now.Truncate(time.Second), By: who, Action: rma.ActionSubmitted},
		},
		Version: 1,
	}

	if req.Attachment != nil {
		path, err := e.blobs.Store(id, blob.StageSubmission, req.Attachment.Filename, req.Attachment.Data)
		if err != nil {
			return rma.Record{}, newPersistence(who, id, "could not store attachment", err)
		}
		rec.AttachedDocumentPath = path
	}

	if err := e.save(ctx, who, id, append(records, rec)); err != nil {
		e.discardBlob(rec.AttachedDocumentPath, err)
		return rma.Record{}, err
	}

	e.logger.Info("rma submitted",
		zap.String("rma_id", id),
		zap.String("identity", who),
		zap.String("customer", rec.Customer),
		zap.String("product", rec.Product),
	)
	return rec, nil
}

// Inspect records the inspection of a Submitted record and moves it to
// Inspected.
func (e *Engine) Inspect(ctx context.Context, identity, id string, req InspectRequest) (rma.Record, error) {
	who, err := e.authorize(identity, rma.RoleInspector)
	if err != nil {
		return rma.Record{}, err
	}

	req.trim()
	if err := e.validate.Struct(req); err != nil {
		return rma.Record{}, newValidation(who, invalidFields(err), "")
	}
	if e.requireOutcome && req.Outcome == rma.OutcomeUnset {
		return rma.Record{}, newValidation(who, []string{"outcome"}, "select a disposition outcome")
	}
	if err := e.checkAttachment(who, req.Document); err != nil {
		return rma.Record{}, err
	}

	var written string
	rec, err := e.mutate(ctx, who, id, rma.StatusSubmitted, req.ExpectedVersion, func(rec *rma.Record, now time.Time) error {
		rec.DateReceived = req.DateReceived
		if rec.DateReceived.IsZero() {
			y, m, d := now.In(time.Local).Date()
			rec.DateReceived = time.Date(y, m, d, 0, 0, 0, 0, time.Local)
		}
		rec.CauseNote = req.CauseNote
		rec.InspectionOutcome = req.Outcome
		rec.CAPARequired = req.CAPARequired
		rec.CAPAID = req.CAPAID
		rec.InspectedBy = who
		rec.Status = rma.StatusInspected

		if req.Document != nil {
			path, err := e.blobs.Store(rec.ID, blob.StageInspection, req.Document.Filename, req.Document.Data)
			if err != nil {
				return newPersistence(who, rec.ID, "could not store inspection document", err)
			}
			rec.InspectionDocumentPath = path
			written = path
		}

		rec.ChangeLog = append(rec.ChangeLog, rma.ChangeLogEntry{
			At: now.Truncate(time.Second), By: who, Action: rma.ActionInspected, Detail: string(req.Outcome),
		})
		return nil
	})
	if err != nil {
		e.discardBlob(written, err)
		return rma.Record{}, err
	}
	return rec, nil
}

// Review records a QA review of an Inspected record. The record moves to
// Completed only when MarkComplete is set; otherwise it stays Inspected and
// may be reviewed again.
func (e *Engine) Review(ctx context.Context, identity, id string, req ReviewRequest) (rma.Record, error) {
	who, err := e.authorize(identity, rma.RoleReviewer)
	if err != nil {
		return rma.Record{}, err
	}

	return e.mutate(ctx, who, id, rma.StatusInspected, req.ExpectedVersion, func(rec *rma.Record, now time.Time) error {
		rec.ReviewedBy = who
		rec.QACertified = req.QACertified

		action := rma.ActionReviewed
		if req.MarkComplete {
			rec.Status = rma.StatusCompleted
			action = rma.ActionCompleted
		}
		rec.ChangeLog = append(rec.ChangeLog, rma.ChangeLogEntry{
			At: now.Truncate(time.Second), By: who, Action: action,
			Detail: "qa_certified=" + rma.FormatYesNo(req.QACertified),
		})
		return nil
	})
}

// mutate loads the table, applies fn to record id if it is in status want,
// bumps its version and saves.
func (e *Engine) mutate(ctx context.Context, who, id string, want rma.Status, expectedVersion int64, fn func(*rma.Record, time.Time) error) (rma.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.load(ctx, who, id)
	if err != nil {
		return rma.Record{}, err
	}

	i, current, ok := store.FindByID(records, id)
	if !ok {
		return rma.Record{}, newNotFound(who, id)
	}
	if current.Status != want {
		return rma.Record{}, newInvalidState(who, id, current.Status, want)
	}
	if expectedVersion != 0 && expectedVersion != current.Version {
		return rma.Record{}, newConflict(who, id, expectedVersion, current.Version)
	}

	updated := current.Clone()
	if err := fn(&updated, e.clock.Now()); err != nil {
		return rma.Record{}, err
	}
	updated.Version++

	next := make([]rma.Record, len(records))
	copy(next, records)
	next[i] = updated

	if err := e.save(ctx, who, id, next); err != nil {
		return rma.Record{}, err
	}

	e.logger.Info("rma transitioned",
		zap.String("rma_id", id),
		zap.String("identity", who),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
		zap.Int64("version", updated.Version),
	)
	return updated, nil
}

func (e *Engine) checkAttachment(who string, a *Attachment) error {
	if a == nil {
		return nil
	}
	if e.blobs == nil {
		return newValidation(who, []string{"attachment"}, "attachments are not enabled")
	}
	if err := e.blobs.Check(a.Filename); err != nil {
		return newValidation(who, []string{"attachment"}, err.Error())
	}
	return nil
}

func (e *Engine) load(ctx context.Context, who, id string) ([]rma.Record, error) {
	records, err := e.store.LoadAll(ctx)
	if err != nil {
		e.logger.Error("load record table failed", zap.Error(err))
		return nil, newPersistence(who, id, "could not load records", err)
	}
	return records, nil
}

func (e *Engine) save(ctx context.Context, who, id string, records []rma.Record) error {
	if err := e.store.SaveAll(ctx, records); err != nil {
		msg := "could not save records"
		if store.IsExportError(err) {
			msg = "records saved but the spreadsheet export failed"
		}
		e.logger.Error("save record table failed", zap.String("rma_id", id), zap.Error(err))
		return newPersistence(who, id, msg, err)
	}
	return nil
}

// discardBlob removes an attachment written for a transition whose save
// failed. After an export failure the saved table references it, so it stays.
func (e *Engine) discardBlob(path string, err error) {
	if path == "" || store.IsExportError(err) {
		return
	}
	if rmErr := e.blobs.Remove(path); rmErr != nil {
		e.logger.Warn("could not remove unsaved attachment", zap.String("path", path), zap.Error(rmErr))
	}
}

// newID generates an id not already present in records.
func (e *Engine) newID(records []rma.Record) (string, error) {
	taken := make(map[string]bool, len(records))
	for _, r := range records {
		taken[r.ID] = true
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := e.ids.Generate()
		if !taken[id] {
			return id, nil
		}
		e.logger.Debug("generated id already in use, retrying", zap.String("rma_id", id))
	}
	return "", fmt.Errorf("no unused id after %d attempts", maxIDAttempts)
}
