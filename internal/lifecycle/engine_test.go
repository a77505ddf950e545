package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmatrack/internal/access"
	"github.com/roach88/rmatrack/internal/idgen"
	"github.com/roach88/rmatrack/internal/rma"
	"github.com/roach88/rmatrack/internal/store"
)

func TestSubmit_CreatesSubmittedRecord(t *testing.T) {
	f := newFixture(t)

	rec, err := f.engine.Submit(context.Background(), "  Creator@Example.com ", SubmitRequest{
		Customer:          " Acme ",
		Product:           "Pump-7",
		SerialNumber:      "SN-1",
		HazardousLocation: true,
		ReasonCodes:       "leak",
	})
	require.NoError(t, err)

	assert.Equal(t, "RMA-2403AAA", rec.ID)
	assert.Equal(t, rma.StatusSubmitted, rec.Status)
	assert.Equal(t, "Acme", rec.Customer)
	assert.Equal(t, creator, rec.CreatedBy)
	assert.True(t, rec.HazardousLocation)
	assert.Empty(t, rec.InspectedBy)
	assert.Empty(t, rec.ReviewedBy)
	assert.Equal(t, int64(1), rec.Version)
	assert.True(t, rec.CreatedAt.Equal(testNow.Truncate(time.Minute)))
	require.Len(t, rec.ChangeLog, 1)
	assert.Equal(t, rma.ActionSubmitted, rec.ChangeLog[0].Action)

	stored := f.store.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, rec.ID, stored[0].ID)
}

func TestSubmit_AppendsInInsertionOrder(t *testing.T) {
	f := newFixture(t)
	a := f.submit(t)
	b := f.submit(t)

	stored := f.store.snapshot()
	require.Len(t, stored, 2)
	assert.Equal(t, a.ID, stored[0].ID)
	assert.Equal(t, b.ID, stored[1].ID)
}

func TestSubmit_MissingRequiredFields(t *testing.T) {
	f := newFixture(t)

	req := validSubmit()
	req.Product = "   "
	req.ReasonCodes = ""
	_, err := f.engine.Submit(context.Background(), creator, req)

	require.Error(t, err)
	assert.True(t, IsValidation(err))
	var le *Error
	require.ErrorAs(t, err, &le)
	assert.ElementsMatch(t, []string{"product", "reason_codes"}, le.Fields)
	assert.Empty(t, f.store.snapshot())
	assert.Zero(t, f.store.saves)
}

func TestSubmit_UnknownIdentityDenied(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Submit(context.Background(), stranger, validSubmit())

	assert.True(t, IsAccessDenied(err))
	assert.Zero(t, f.store.saves)
}

func TestSubmit_WrongRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Submit(context.Background(), inspector, validSubmit())

	assert.True(t, IsPermission(err))
	assert.Zero(t, f.store.saves)
}

func TestSubmit_StoresAttachment(t *testing.T) {
	f := newFixture(t)

	req := validSubmit()
	req.Attachment = &Attachment{Filename: "photo.png", Data: []byte("png")}
	rec, err := f.engine.Submit(context.Background(), creator, req)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.blobs.Dir(), "RMA-2403AAA_photo.png"), rec.AttachedDocumentPath)
	data, err := os.ReadFile(rec.AttachedDocumentPath)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestSubmit_FailedSaveRemovesAttachment(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = errDiskFull

	req := validSubmit()
	req.Attachment = &Attachment{Filename: "photo.png", Data: []byte("png")}
	_, err := f.engine.Submit(context.Background(), creator, req)

	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	entries, err := os.ReadDir(f.blobs.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmit_ExportFailureKeepsAttachment(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = &store.ExportError{Path: "rma_log.xlsx", Err: errDiskFull}

	req := validSubmit()
	req.Attachment = &Attachment{Filename: "photo.png", Data: []byte("png")}
	_, err := f.engine.Submit(context.Background(), creator, req)

	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.FileExists(t, filepath.Join(f.blobs.Dir(), "RMA-2403AAA_photo.png"))
}

func TestSubmit_RejectsDisallowedAttachment(t *testing.T) {
	f := newFixture(t)

	req := validSubmit()
	req.Attachment = &Attachment{Filename: "run.exe", Data: []byte("x")}
	_, err := f.engine.Submit(context.Background(), creator, req)

	assert.True(t, IsValidation(err))
	assert.Zero(t, f.store.saves)
}

func TestSubmit_RetriesCollidingID(t *testing.T) {
	f := newFixture(t, WithIDGenerator(idgen.NewFixedGenerator("RMA-2403AAA", "RMA-2403AAA", "RMA-2403AAB")))

	first := f.submit(t)
	second := f.submit(t)

	assert.Equal(t, "RMA-2403AAA", first.ID)
	assert.Equal(t, "RMA-2403AAB", second.ID)
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = errDiskFull

	_, err := f.engine.Submit(context.Background(), creator, validSubmit())

	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, errDiskFull)
}

func TestSubmit_LoadFailure(t *testing.T) {
	f := newFixture(t)
	f.store.loadErr = errDiskFull

	_, err := f.engine.Submit(context.Background(), creator, validSubmit())

	assert.True(t, IsPersistence(err))
}

func TestInspect_MovesToInspected(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)
	f.clock.Advance(24 * time.Hour)

	rec, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{
		CauseNote:    " cracked seal ",
		Outcome:      rma.OutcomeRepaired,
		CAPARequired: true,
		CAPAID:       "CAPA-9",
	})
	require.NoError(t, err)

	assert.Equal(t, rma.StatusInspected, rec.Status)
	assert.Equal(t, inspector, rec.InspectedBy)
	assert.Equal(t, "cracked seal", rec.CauseNote)
	assert.Equal(t, rma.OutcomeRepaired, rec.InspectionOutcome)
	assert.True(t, rec.CAPARequired)
	assert.Equal(t, "CAPA-9", rec.CAPAID)
	assert.Equal(t, "2024-03-15", rma.FormatTime(rec.DateReceived, rma.DateReceivedLayout))
	assert.Equal(t, int64(2), rec.Version)
	require.Len(t, rec.ChangeLog, 2)
	assert.Equal(t, rma.ActionInspected, rec.ChangeLog[1].Action)
	assert.Equal(t, "Repaired", rec.ChangeLog[1].Detail)

	assert.Equal(t, creator, rec.CreatedBy)
	assert.Equal(t, sub.Customer, rec.Customer)
}

func TestInspect_ExplicitDateReceived(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)

	received := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)
	rec, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{
		DateReceived: received,
		Outcome:      rma.OutcomeRejected,
	})
	require.NoError(t, err)
	assert.True(t, rec.DateReceived.Equal(received))
}

func TestInspect_StoresDocument(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)

	rec, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{
		Outcome:  rma.OutcomeReplaced,
		Document: &Attachment{Filename: "report.pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.blobs.Dir(), sub.ID+"_insp_report.pdf"), rec.InspectionDocumentPath)
}

func TestInspect_FailedSaveRemovesDocument(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)
	f.store.saveErr = errDiskFull

	_, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{
		Outcome:  rma.OutcomeReplaced,
		Document: &Attachment{Filename: "report.pdf", Data: []byte("%PDF")},
	})

	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.NoFileExists(t, filepath.Join(f.blobs.Dir(), sub.ID+"_insp_report.pdf"))
	assert.Empty(t, f.store.snapshot()[0].InspectionDocumentPath)
}

func TestInspect_RequiresOutcome(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)

	_, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{})
	assert.True(t, IsValidation(err))

	stored := f.store.snapshot()
	assert.Equal(t, rma.StatusSubmitted, stored[0].Status)
}

func TestInspect_OutcomeOptionalWhenConfigured(t *testing.T) {
	f := newFixture(t, WithRequireOutcome(false))
	sub := f.submit(t)

	rec, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{})
	require.NoError(t, err)
	assert.Equal(t, rma.OutcomeUnset, rec.InspectionOutcome)
	assert.Equal(t, rma.StatusInspected, rec.Status)
}

func TestInspect_UnknownOutcome(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)

	_, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{Outcome: "Scrapped"})
	require.True(t, IsValidation(err))
}

func TestInspect_NotFound(t *testing.T) {
	f := newFixture(t)
	f.submit(t)

	_, err := f.engine.Inspect(context.Background(), inspector, "RMA-2403ZZZ", InspectRequest{Outcome: rma.OutcomeRepaired})

	assert.True(t, IsNotFound(err))
	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "RMA-2403ZZZ", le.RecordID)
}

func TestInspect_WrongStatus(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)
	f.inspect(t, sub.ID)

	_, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{Outcome: rma.OutcomeRepaired})

	assert.True(t, IsInvalidState(err))
}

func TestInspect_CreatorNotPermitted(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)
	saves := f.store.saves

	_, err := f.engine.Inspect(context.Background(), creator, sub.ID, InspectRequest{Outcome: rma.OutcomeRepaired})

	assert.True(t, IsPermission(err))
	assert.Equal(t, saves, f.store.saves)
}

func TestInspect_DualMemberActsAsInspectorOnly(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)

	rec, err := f.engine.Inspect(context.Background(), dual, sub.ID, InspectRequest{Outcome: rma.OutcomeDisposition})
	require.NoError(t, err)
	assert.Equal(t, dual, rec.InspectedBy)

	_, err = f.engine.Review(context.Background(), dual, sub.ID, ReviewRequest{MarkComplete: true})
	assert.True(t, IsPermission(err))
	assert.Equal(t, rma.StatusInspected, f.store.snapshot()[0].Status)
}

func TestStages_MemberOfEverySetActsAsCreator(t *testing.T) {
	f := newFixture(t)

	rec, err := f.engine.Submit(context.Background(), everyone, validSubmit())
	require.NoError(t, err)
	assert.Equal(t, everyone, rec.CreatedBy)

	_, err = f.engine.Inspect(context.Background(), everyone, rec.ID, InspectRequest{Outcome: rma.OutcomeRepaired})
	require.Error(t, err)
	assert.True(t, IsPermission(err))

	f.inspect(t, rec.ID)
	saves := f.store.saves

	_, err = f.engine.Review(context.Background(), everyone, rec.ID, ReviewRequest{QACertified: true, MarkComplete: true})
	require.Error(t, err)
	assert.True(t, IsPermission(err))
	assert.Equal(t, saves, f.store.saves)

	got := f.store.snapshot()[0]
	assert.Equal(t, rma.StatusInspected, got.Status)
	assert.Empty(t, got.ReviewedBy)
}

func TestInspect_VersionConflict(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)

	_, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{
		Outcome:         rma.OutcomeRepaired,
		ExpectedVersion: 7,
	})
	assert.True(t, IsConflict(err))

	_, err = f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{
		Outcome:         rma.OutcomeRepaired,
		ExpectedVersion: 1,
	})
	assert.NoError(t, err)
}

func TestInspect_PersistenceFailureLeavesTable(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)
	f.store.saveErr = errDiskFull

	_, err := f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{Outcome: rma.OutcomeRepaired})

	assert.True(t, IsPersistence(err))
	assert.Equal(t, rma.StatusSubmitted, f.store.snapshot()[0].Status)
}

func TestReview_WithoutCompletionStaysInspected(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)
	f.inspect(t, sub.ID)

	rec, err := f.engine.Review(context.Background(), reviewer, sub.ID, ReviewRequest{QACertified: true})
	require.NoError(t, err)

	assert.Equal(t, rma.StatusInspected, rec.Status)
	assert.Equal(t, reviewer, rec.ReviewedBy)
	assert.True(t, rec.QACertified)
	assert.Equal(t, int64(3), rec.Version)
	assert.Equal(t, rma.ActionReviewed, rec.ChangeLog[len(rec.ChangeLog)-1].Action)

	again, err := f.engine.Review(context.Background(), reviewer, sub.ID, ReviewRequest{QACertified: false, MarkComplete: true})
	require.NoError(t, err)
	assert.Equal(t, rma.StatusCompleted, again.Status)
	assert.False(t, again.QACertified)
	assert.Equal(t, rma.ActionCompleted, again.ChangeLog[len(again.ChangeLog)-1].Action)
}

func TestReview_CompletedIsTerminal(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)
	f.inspect(t, sub.ID)

	_, err := f.engine.Review(context.Background(), reviewer, sub.ID, ReviewRequest{MarkComplete: true})
	require.NoError(t, err)

	_, err = f.engine.Review(context.Background(), reviewer, sub.ID, ReviewRequest{MarkComplete: true})
	assert.True(t, IsInvalidState(err))
	_, err = f.engine.Inspect(context.Background(), inspector, sub.ID, InspectRequest{Outcome: rma.OutcomeRepaired})
	assert.True(t, IsInvalidState(err))
}

func TestReview_RequiresInspected(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)

	_, err := f.engine.Review(context.Background(), reviewer, sub.ID, ReviewRequest{MarkComplete: true})

	assert.True(t, IsInvalidState(err))
}

func TestReview_InspectorNotPermitted(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)
	f.inspect(t, sub.ID)

	_, err := f.engine.Review(context.Background(), inspector, sub.ID, ReviewRequest{MarkComplete: true})

	assert.True(t, IsPermission(err))
}

func TestReview_UnknownIdentityDenied(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t)
	f.inspect(t, sub.ID)
	saves := f.store.saves

	_, err := f.engine.Review(context.Background(), stranger, sub.ID, ReviewRequest{MarkComplete: true})

	assert.True(t, IsAccessDenied(err))
	assert.Equal(t, saves, f.store.saves)
}

func TestLifecycle_CSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := store.NewCSVStore(filepath.Join(dir, "rma_log.csv"))
	e := New(s, access.NewResolver(testRoles()),
		WithIDGenerator(idgen.NewFixedGenerator("RMA-2403AAA")),
	)
	ctx := context.Background()

	sub, err := e.Submit(ctx, creator, validSubmit())
	require.NoError(t, err)
	_, err = e.Inspect(ctx, inspector, sub.ID, InspectRequest{Outcome: rma.OutcomeRepaired, CauseNote: "cracked seal"})
	require.NoError(t, err)
	_, err = e.Review(ctx, reviewer, sub.ID, ReviewRequest{QACertified: true, MarkComplete: true})
	require.NoError(t, err)

	reopened := New(store.NewCSVStore(filepath.Join(dir, "rma_log.csv")), access.NewResolver(testRoles()))
	got, err := reopened.Get(ctx, reviewer, sub.ID)
	require.NoError(t, err)

	assert.Equal(t, rma.StatusCompleted, got.Status)
	assert.Equal(t, creator, got.CreatedBy)
	assert.Equal(t, inspector, got.InspectedBy)
	assert.Equal(t, reviewer, got.ReviewedBy)
	assert.True(t, got.QACertified)
	assert.Equal(t, "cracked seal", got.CauseNote)
	assert.Equal(t, int64(3), got.Version)
	assert.Len(t, got.ChangeLog, 3)
}
