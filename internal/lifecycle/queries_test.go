package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmatrack/internal/rma"
)

// seed creates one record in each status, in that order.
func seed(t *testing.T, f *fixture) (submitted, inspected, completed rma.Record) {
	t.Helper()
	submitted = f.submit(t)
	inspected = f.submit(t)
	completed = f.submit(t)
	f.inspect(t, inspected.ID)
	f.inspect(t, completed.ID)
	_, err := f.engine.Review(context.Background(), reviewer, completed.ID, ReviewRequest{MarkComplete: true})
	require.NoError(t, err)
	return submitted, inspected, completed
}

func ids(records []rma.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestWhoami(t *testing.T) {
	f := newFixture(t)

	me, err := f.engine.Whoami(" DUAL@example.com")
	require.NoError(t, err)
	assert.Equal(t, dual, me.Identity)
	assert.Equal(t, rma.RoleInspector, me.Primary)
	assert.Equal(t, []rma.Role{rma.RoleInspector, rma.RoleReviewer}, me.Roles)

	_, err = f.engine.Whoami(stranger)
	assert.True(t, IsAccessDenied(err))
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)

	got, err := f.engine.Get(context.Background(), reviewer, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	_, err = f.engine.Get(context.Background(), reviewer, "RMA-0000XXX")
	assert.True(t, IsNotFound(err))

	_, err = f.engine.Get(context.Background(), stranger, sub.ID)
	assert.True(t, IsAccessDenied(err))
}

func TestList(t *testing.T) {
	f := newFixture(t)
	s, i, c := seed(t, f)

	all, err := f.engine.List(context.Background(), creator, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{s.ID, i.ID, c.ID}, ids(all))

	want := rma.StatusInspected
	filtered, err := f.engine.List(context.Background(), creator, &want)
	require.NoError(t, err)
	assert.Equal(t, []string{i.ID}, ids(filtered))
}

func TestList_EmptyTable(t *testing.T) {
	f := newFixture(t)

	all, err := f.engine.List(context.Background(), creator, nil)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestWorklist(t *testing.T) {
	f := newFixture(t)
	s, i, c := seed(t, f)

	tests := []struct {
		identity string
		role     rma.Role
		want     []string
	}{
		{creator, rma.RoleCreator, []string{s.ID, i.ID, c.ID}},
		{inspector, rma.RoleInspector, []string{s.ID}},
		{reviewer, rma.RoleReviewer, []string{i.ID}},
		{dual, rma.RoleInspector, []string{s.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			role, records, err := f.engine.Worklist(context.Background(), tt.identity)
			require.NoError(t, err)
			assert.Equal(t, tt.role, role)
			assert.Equal(t, tt.want, ids(records))
		})
	}
}

func TestWorklist_CreatorAlsoInspectorSeesOwnSubmissions(t *testing.T) {
	f := newFixture(t)
	others := f.submit(t)
	mine, err := f.engine.Submit(context.Background(), everyone, validSubmit())
	require.NoError(t, err)

	role, records, err := f.engine.Worklist(context.Background(), everyone)
	require.NoError(t, err)

	assert.Equal(t, rma.RoleCreator, role)
	assert.Equal(t, []string{mine.ID}, ids(records))
	assert.NotContains(t, ids(records), others.ID)
}
