package lifecycle

import (
	"context"

	"github.com/roach88/rmatrack/internal/access"
	"github.com/roach88/rmatrack/internal/rma"
	"github.com/roach88/rmatrack/internal/store"
)

// Identity describes a resolved caller.
type Identity struct {
	Identity string     `json:"identity"`
	Primary  rma.Role   `json:"primary_role"`
	Roles    []rma.Role `json:"roles"`
}

// Whoami resolves identity to its primary role and every role it holds.
func (e *Engine) Whoami(identity string) (Identity, error) {
	primary, err := e.access.ResolveRole(identity)
	if err != nil {
		return Identity{}, newAccessDenied(identity)
	}
	who := access.Normalize(identity)
	return Identity{Identity: who, Primary: primary, Roles: e.access.Roles(who)}, nil
}

// Get returns one record. Any known identity may read any record.
func (e *Engine) Get(ctx context.Context, identity, id string) (rma.Record, error) {
	who, err := e.reader(identity)
	if err != nil {
		return rma.Record{}, err
	}
	records, err := e.load(ctx, who, id)
	if err != nil {
		return rma.Record{}, err
	}
	_, rec, ok := store.FindByID(records, id)
	if !ok {
		return rma.Record{}, newNotFound(who, id)
	}
	return rec, nil
}

// List returns records in insertion order, optionally filtered by status.
func (e *Engine) List(ctx context.Context, identity string, status *rma.Status) ([]rma.Record, error) {
	who, err := e.reader(identity)
	if err != nil {
		return nil, err
	}
	records, err := e.load(ctx, who, "")
	if err != nil {
		return nil, err
	}
	if status != nil {
		return store.FindByStatus(records, *status), nil
	}
	if records == nil {
		records = []rma.Record{}
	}
	return records, nil
}

// Worklist returns the records awaiting the caller's primary role: the
// Submitted queue for an Inspector, the Inspected queue for a Reviewer and
// the caller's own submissions for a Creator.
func (e *Engine) Worklist(ctx context.Context, identity string) (rma.Role, []rma.Record, error) {
	me, err := e.Whoami(identity)
	if err != nil {
		return "", nil, err
	}
	records, err := e.load(ctx, me.Identity, "")
	if err != nil {
		return "", nil, err
	}
	switch me.Primary {
	case rma.RoleInspector:
		return me.Primary, store.FindByStatus(records, rma.StatusSubmitted), nil
	case rma.RoleReviewer:
		return me.Primary, store.FindByStatus(records, rma.StatusInspected), nil
	default:
		return me.Primary, store.FindByCreator(records, me.Identity), nil
	}
}

func (e *Engine) reader(identity string) (string, error) {
	if _, err := e.access.ResolveRole(identity); err != nil {
		return "", newAccessDenied(identity)
	}
	return access.Normalize(identity), nil
}
