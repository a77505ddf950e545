package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rmatrack/internal/access"
	"github.com/roach88/rmatrack/internal/blob"
	"github.com/roach88/rmatrack/internal/idgen"
	"github.com/roach88/rmatrack/internal/rma"
	"github.com/roach88/rmatrack/internal/testutil"
)

const (
	creator   = "creator@example.com"
	inspector = "inspector@example.com"
	reviewer  = "reviewer@example.com"
	dual      = "dual@example.com"
	everyone  = "everyone@example.com"
	stranger  = "stranger@example.com"
)

var testNow = time.Date(2024, time.March, 14, 9, 30, 15, 0, time.Local)

// memStore is an in-memory store with injectable failures.
type memStore struct {
	mu      sync.Mutex
	records []rma.Record
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) LoadAll(ctx context.Context) ([]rma.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]rma.Record, len(m.records))
	for i, r := range m.records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (m *memStore) SaveAll(ctx context.Context, records []rma.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records = make([]rma.Record, len(records))
	for i, r := range records {
		m.records[i] = r.Clone()
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) snapshot() []rma.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]rma.Record(nil), m.records...)
}

type fixture struct {
	engine *Engine
	store  *memStore
	clock  *testutil.FixedClock
	blobs  *blob.Store
}

func testRoles() access.Roles {
	return access.Roles{
		Creators:   []string{creator, everyone},
		Inspectors: []string{inspector, dual, everyone},
		Reviewers:  []string{reviewer, dual, everyone},
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: &memStore{},
		clock: testutil.NewFixedClock(testNow),
		blobs: blob.New(t.TempDir(), blob.PolicyOverwrite, []string{"pdf", "png"}),
	}
	base := []Option{
		WithClock(f.clock),
		WithIDGenerator(idgen.NewFixedGenerator("RMA-2403AAA", "RMA-2403AAB", "RMA-2403AAC", "RMA-2403AAD")),
		WithBlobStore(f.blobs),
	}
	f.engine = New(f.store, access.NewResolver(testRoles()), append(base, opts...)...)
	return f
}

func validSubmit() SubmitRequest {
	return SubmitRequest{Customer: "Acme", Product: "Pump-7", ReasonCodes: "leak"}
}

func (f *fixture) submit(t *testing.T) rma.Record {
	t.Helper()
	rec, err := f.engine.Submit(context.Background(), creator, validSubmit())
	require.NoError(t, err)
	return rec
}

func (f *fixture) inspect(t *testing.T, id string) rma.Record {
	t.Helper()
	rec, err := f.engine.Inspect(context.Background(), inspector, id, InspectRequest{Outcome: rma.OutcomeRepaired})
	require.NoError(t, err)
	return rec
}

var errDiskFull = errors.New("no space left on device")
