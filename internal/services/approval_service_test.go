package services_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/services"
)

func seedReviewEntries(t *testing.T, repo *fakeTimesheetRepo) {
	t.Helper()
	repo.seed(
		models.TimesheetEntry{
			ID: "1", Date: entryDate(t, "10/06/2024"), User: "alice@example.com",
			Activity: models.ActivityTask, Issue: "wired up the importer", Hours: 4,
			ApprovalStatus: models.StatusPending, ProjectName: "Atlas",
		},
		models.TimesheetEntry{
			ID: "2", Date: entryDate(t, "10/06/2024"), User: "bob@example.com",
			Activity: models.ActivityTask, Issue: "reviewed the importer", Hours: 3,
			ApprovalStatus: models.StatusPending, ProjectName: "Atlas",
		},
		models.TimesheetEntry{
			ID: "3", Date: entryDate(t, "07/06/2024"), User: "alice@example.com",
			Activity: models.ActivityLeave, Issue: "half day of leave taken", Hours: 4,
			ApprovalStatus: models.StatusApproved, ProjectName: "Atlas",
		},
	)
}

func TestStageRejectsImmutableEntry(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)
	svc := services.NewApprovalService(repo)
	session := svc.SessionFor("manager-1")

	err := svc.Stage(session, "3", models.StatusRejected)
	if !errors.Is(err, services.ErrImmutableEntry) {
		t.Fatalf("err = %v, want ErrImmutableEntry", err)
	}
	if session.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0 after refused stage", session.PendingCount())
	}
}

func TestStageBulkReportsRefusedEntries(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)
	svc := services.NewApprovalService(repo)
	session := svc.SessionFor("manager-1")

	staged, err := svc.StageBulk(session, []string{"1", "2", "3"}, models.StatusApproved)
	if staged != 2 {
		t.Errorf("staged = %d, want 2", staged)
	}
	if !errors.Is(err, services.ErrImmutableEntry) {
		t.Errorf("err = %v, want ErrImmutableEntry naming entry 3", err)
	}
	if session.PendingCount() != 2 {
		t.Errorf("pending count = %d, want 2", session.PendingCount())
	}
}

func TestCommitAppliesStagedChanges(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)
	svc := services.NewApprovalService(repo)
	session := svc.SessionFor("manager-1")

	if err := svc.Stage(session, "1", models.StatusApproved); err != nil {
		t.Fatal(err)
	}
	if err := svc.Stage(session, "2", models.StatusRejected); err != nil {
		t.Fatal(err)
	}

	pending, err := svc.GatherPending(session)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending changes = %d, want 2", len(pending))
	}

	applied, err := svc.Commit(session, "looks good")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}

	e1, _ := repo.GetByID("1")
	if e1.ApprovalStatus != models.StatusApproved {
		t.Errorf("entry 1 status = %q, want Approved", e1.ApprovalStatus)
	}
	if e1.Comment != "looks good" {
		t.Errorf("entry 1 comment = %q, want %q", e1.Comment, "looks good")
	}
	e2, _ := repo.GetByID("2")
	if e2.ApprovalStatus != models.StatusRejected {
		t.Errorf("entry 2 status = %q, want Rejected", e2.ApprovalStatus)
	}

	if session.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0 after commit", session.PendingCount())
	}
	if len(session.SelectedIDs()) != 0 {
		t.Errorf("selection = %v, want empty after commit", session.SelectedIDs())
	}
}

func TestCommitAppendsToExistingComment(t *testing.T) {
	repo := newFakeTimesheetRepo()
	repo.seed(models.TimesheetEntry{
		ID: "1", Date: entryDate(t, "10/06/2024"), User: "alice@example.com",
		Activity: models.ActivityTask, Issue: "wired up the importer", Hours: 4,
		Comment: "resubmitted after fix", ApprovalStatus: models.StatusPending, ProjectName: "Atlas",
	})
	svc := services.NewApprovalService(repo)
	session := svc.SessionFor("manager-1")

	if err := svc.Stage(session, "1", models.StatusApproved); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Commit(session, "approved"); err != nil {
		t.Fatal(err)
	}

	e, _ := repo.GetByID("1")
	want := "resubmitted after fix | approved"
	if e.Comment != want {
		t.Errorf("comment = %q, want %q", e.Comment, want)
	}
}

func TestCommitSecondRunIsNoOp(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)
	svc := services.NewApprovalService(repo)
	session := svc.SessionFor("manager-1")

	if err := svc.Stage(session, "1", models.StatusApproved); err != nil {
		t.Fatal(err)
	}
	if applied, err := svc.Commit(session, ""); err != nil || applied != 1 {
		t.Fatalf("first commit: applied = %d, err = %v", applied, err)
	}
	if applied, err := svc.Commit(session, ""); err != nil || applied != 0 {
		t.Errorf("second commit: applied = %d, err = %v, want 0, nil", applied, err)
	}
}

func TestGatherPendingFiltersNoOps(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)
	svc := services.NewApprovalService(repo)
	session := svc.SessionFor("manager-1")

	if err := svc.Stage(session, "1", models.StatusApproved); err != nil {
		t.Fatal(err)
	}
	// The change becomes a no-op when another reviewer applies it first.
	if err := repo.UpdateStatus("1", models.StatusApproved, ""); err != nil {
		t.Fatal(err)
	}

	pending, err := svc.GatherPending(session)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending changes = %d, want 0", len(pending))
	}
	// The stage itself survives until commit clears it.
	if session.PendingCount() != 1 {
		t.Errorf("pending count = %d, want 1", session.PendingCount())
	}

	applied, err := svc.Commit(session, "")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if applied != 0 {
		t.Errorf("applied = %d, want 0 for a no-op change", applied)
	}
}

func TestCommitNeverFlipsFinalizedEntry(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)
	svc := services.NewApprovalService(repo)

	first := svc.SessionFor("manager-1")
	second := svc.SessionFor("manager-2")

	// Both reviewers stage the same Pending entry with opposite decisions.
	if err := svc.Stage(first, "1", models.StatusRejected); err != nil {
		t.Fatal(err)
	}
	if err := svc.Stage(second, "1", models.StatusApproved); err != nil {
		t.Fatal(err)
	}
	if applied, err := svc.Commit(second, ""); err != nil || applied != 1 {
		t.Fatalf("second reviewer's commit: applied = %d, err = %v", applied, err)
	}

	// The first reviewer's stage is now stale: the entry is Approved and
	// must not transition again.
	pending, err := svc.GatherPending(first)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending changes = %d, want 0 for a finalized entry", len(pending))
	}

	applied, err := svc.Commit(first, "overruled")
	if applied != 0 {
		t.Errorf("applied = %d, want 0", applied)
	}
	var partial *services.PartialCommitError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want PartialCommitError", err)
	}
	if !errors.Is(err, services.ErrImmutableEntry) {
		t.Errorf("err = %v, want to wrap ErrImmutableEntry", err)
	}

	e, _ := repo.GetByID("1")
	if e.ApprovalStatus != models.StatusApproved {
		t.Errorf("entry 1 status = %q, want Approved to stick", e.ApprovalStatus)
	}
	// The stale stage is dropped rather than left for endless retries.
	if first.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0 after the stale stage is dropped", first.PendingCount())
	}
}

func TestCommitPartialFailureKeepsFailedStaged(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)
	repo.failUpdateStatus["2"] = fmt.Errorf("deadlock found")
	svc := services.NewApprovalService(repo)
	session := svc.SessionFor("manager-1")

	if err := svc.Stage(session, "1", models.StatusApproved); err != nil {
		t.Fatal(err)
	}
	if err := svc.Stage(session, "2", models.StatusApproved); err != nil {
		t.Fatal(err)
	}

	applied, err := svc.Commit(session, "")
	if applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}
	var partial *services.PartialCommitError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want PartialCommitError", err)
	}
	if partial.Applied != 1 || partial.Failed != 1 {
		t.Errorf("Applied/Failed = %d/%d, want 1/1", partial.Applied, partial.Failed)
	}
	if session.PendingCount() != 1 {
		t.Errorf("pending count = %d, want 1 (failed change stays staged)", session.PendingCount())
	}

	// Retry succeeds once the store recovers.
	delete(repo.failUpdateStatus, "2")
	applied, err = svc.Commit(session, "")
	if err != nil || applied != 1 {
		t.Fatalf("retry commit: applied = %d, err = %v", applied, err)
	}
	if session.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0 after retry", session.PendingCount())
	}
}

func TestCommitRejectsConcurrentCommit(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)

	// Hold the first commit open inside the store status update.
	var once sync.Once
	entered := make(chan struct{})
	release := make(chan struct{})
	repo.updateStatusHook = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	svc := services.NewApprovalService(repo)
	session := svc.SessionFor("manager-1")
	if err := svc.Stage(session, "1", models.StatusApproved); err != nil {
		t.Fatal(err)
	}

	type result struct {
		applied int
		err     error
	}
	done := make(chan result, 1)
	go func() {
		applied, err := svc.Commit(session, "")
		done <- result{applied, err}
	}()
	<-entered

	// A second commit on the same session while one is running is
	// rejected, not queued.
	if _, err := svc.Commit(session, ""); !errors.Is(err, services.ErrSubmitInFlight) {
		t.Errorf("concurrent commit: err = %v, want ErrSubmitInFlight", err)
	}

	close(release)
	r := <-done
	if r.err != nil || r.applied != 1 {
		t.Fatalf("first commit: applied = %d, err = %v", r.applied, r.err)
	}

	// The guard is released once the first commit finishes.
	if applied, err := svc.Commit(session, ""); err != nil || applied != 0 {
		t.Errorf("commit after completion: applied = %d, err = %v", applied, err)
	}
}

func TestSelectionLifecycle(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)
	svc := services.NewApprovalService(repo)
	session := svc.SessionFor("manager-1")

	session.SelectAllVisible([]string{"1", "2"})
	if got := session.SelectedIDs(); len(got) != 2 {
		t.Errorf("selected = %v, want two ids", got)
	}
	session.Select("1", false)
	if got := session.SelectedIDs(); len(got) != 1 || got[0] != "2" {
		t.Errorf("selected = %v, want [2]", got)
	}
	session.ClearSelection()
	if got := session.SelectedIDs(); len(got) != 0 {
		t.Errorf("selected = %v, want empty", got)
	}
}

func TestSessionsAreIsolatedPerReviewer(t *testing.T) {
	repo := newFakeTimesheetRepo()
	seedReviewEntries(t, repo)
	svc := services.NewApprovalService(repo)

	first := svc.SessionFor("manager-1")
	second := svc.SessionFor("manager-2")
	if first == second {
		t.Fatal("expected distinct sessions for distinct reviewers")
	}
	if again := svc.SessionFor("manager-1"); again != first {
		t.Error("expected the same session on repeat lookup")
	}

	if err := svc.Stage(first, "1", models.StatusApproved); err != nil {
		t.Fatal(err)
	}
	if second.PendingCount() != 0 {
		t.Error("staging in one session leaked into another")
	}

	svc.DropSession("manager-1")
	if fresh := svc.SessionFor("manager-1"); fresh == first {
		t.Error("expected a fresh session after drop")
	}
}
