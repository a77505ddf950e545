package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rmatrack/internal/rma"
)

// Store loads and saves the whole record table.
type Store interface {
	// LoadAll returns every record in insertion order.
	LoadAll(ctx context.Context) ([]rma.Record, error)

	// SaveAll replaces the persisted table with records.
	SaveAll(ctx context.Context, records []rma.Record) error

	// Close releases backend resources.
	Close() error
}

// ExportError reports a failed secondary export. The primary table was
// already saved when it occurs.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// IsExportError reports whether err is, or wraps, an ExportError.
func IsExportError(err error) bool {
	var ee *ExportError
	return errors.As(err, &ee)
}

// FindByID returns the index and record with id, or -1 when absent.
func FindByID(records []rma.Record, id string) (int, rma.Record, bool) {
	for i, r := range records {
		if r.ID == id {
			return i, r, true
		}
	}
	return -1, rma.Record{}, false
}

// FindByStatus returns records with status, in table order.
// Returns an empty slice (not nil) when nothing matches.
func FindByStatus(records []rma.Record, status rma.Status) []rma.Record {
	out := []rma.Record{}
	for _, r := range records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// FindByCreator returns records created by identity, in table order.
func FindByCreator(records []rma.Record, identity string) []rma.Record {
	out := []rma.Record{}
	for _, r := range records {
		if r.CreatedBy == identity {
			out = append(out, r)
		}
	}
	return out
}
