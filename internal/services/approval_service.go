package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/repositories"
)

// commentSeparator joins a commit comment onto existing entry comment text.
const commentSeparator = " | "

// PendingChange pairs an entry with its proposed new status, for the
// confirmation view shown before commit.
type PendingChange struct {
	Entry     models.TimesheetEntry `json:"entry"`
	NewStatus string                `json:"newStatus"`
}

// ApprovalSession holds one reviewer's transient staging state: the set of
// selected entry ids and the map of proposed status changes. It is never
// persisted; commit and clear are the only exits. All methods are safe for
// concurrent use.
type ApprovalSession struct {
	mu         sync.Mutex
	selection  map[string]bool
	pending    map[string]string
	committing bool
}

// NewApprovalSession creates an empty session.
func NewApprovalSession() *ApprovalSession {
	return &ApprovalSession{
		selection: make(map[string]bool),
		pending:   make(map[string]string),
	}
}

// Select marks or unmarks one entry id as selected.
func (s *ApprovalSession) Select(id string, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if selected {
		s.selection[id] = true
	} else {
		delete(s.selection, id)
	}
}

// SelectAllVisible marks every given id as selected.
func (s *ApprovalSession) SelectAllVisible(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.selection[id] = true
	}
}

// ClearSelection empties the selection set. Called on explicit clear and
// whenever the visible filter changes: selection is scoped to one filter
// view, never carried across re-filtering.
func (s *ApprovalSession) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]bool)
}

// SelectedIDs returns the selected ids in stable order.
func (s *ApprovalSession) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PendingCount returns the number of staged changes, including ones that
// may have become no-ops since staging.
func (s *ApprovalSession) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *ApprovalSession) stage(id, newStatus string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Last write wins if the same id is staged twice.
	s.pending[id] = newStatus
	s.selection[id] = true
}

func (s *ApprovalSession) pendingSnapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(map[string]string, len(s.pending))
	for id, status := range s.pending {
		snap[id] = status
	}
	return snap
}

func (s *ApprovalSession) clearApplied(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.pending, id)
		delete(s.selection, id)
	}
}

func (s *ApprovalSession) beginCommit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return ErrSubmitInFlight
	}
	s.committing = true
	return nil
}

func (s *ApprovalSession) endCommit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
}

// ApprovalServiceInterface defines the staged approve/reject workflow.
type ApprovalServiceInterface interface {
	SessionFor(reviewerID string) *ApprovalSession
	DropSession(reviewerID string)
	Stage(session *ApprovalSession, entryID, newStatus string) error
	StageBulk(session *ApprovalSession, entryIDs []string, newStatus string) (int, error)
	GatherPending(session *ApprovalSession) ([]PendingChange, error)
	Commit(session *ApprovalSession, comment string) (int, error)
}

// ApprovalService implements the staged select/stage/commit workflow
// over the timesheet store. Each reviewer gets one in-memory session.
type ApprovalService struct {
	timesheetRepo TimesheetRepositoryInterface

	mu       sync.Mutex
	sessions map[string]*ApprovalSession
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(timesheetRepo TimesheetRepositoryInterface) *ApprovalService {
	return &ApprovalService{
		timesheetRepo: timesheetRepo,
		sessions:      make(map[string]*ApprovalSession),
	}
}

// SessionFor returns the reviewer's session, creating it on first use.
func (s *ApprovalService) SessionFor(reviewerID string) *ApprovalSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[reviewerID]
	if !ok {
		session = NewApprovalSession()
		s.sessions[reviewerID] = session
	}
	return session
}

// DropSession discards a reviewer's session entirely.
func (s *ApprovalService) DropSession(reviewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, reviewerID)
}

// Stage records a proposed status change for one entry. Entries that are
// already Approved or Rejected are immutable: staging them fails with
// ErrImmutableEntry and the pending map is left untouched.
func (s *ApprovalService) Stage(session *ApprovalSession, entryID, newStatus string) error {
	if !models.IsValidStatus(newStatus) {
		return fmt.Errorf("unknown status %q", newStatus)
	}
	entry, err := s.timesheetRepo.GetByID(entryID)
	if err != nil {
		return fmt.Errorf("loading entry %s: %w", entryID, err)
	}
	if !entry.Mutable() {
		return fmt.Errorf("entry %s: %w", entryID, ErrImmutableEntry)
	}
	session.stage(entryID, newStatus)
	return nil
}

// StageBulk stages a change for every given id. Immutable entries are
// reported, not silently skipped: the returned count is how many were
// staged, and the error (if any) names the entries that could not be.
func (s *ApprovalService) StageBulk(session *ApprovalSession, entryIDs []string, newStatus string) (int, error) {
	if !models.IsValidStatus(newStatus) {
		return 0, fmt.Errorf("unknown status %q", newStatus)
	}
	staged := 0
	var refused []string
	for _, id := range entryIDs {
		if err := s.Stage(session, id, newStatus); err != nil {
			if errors.Is(err, ErrImmutableEntry) {
				refused = append(refused, id)
				continue
			}
			return staged, err
		}
		staged++
	}
	if len(refused) > 0 {
		return staged, fmt.Errorf("entries %s: %w", strings.Join(refused, ", "), ErrImmutableEntry)
	}
	return staged, nil
}

// GatherPending returns the staged changes whose proposed status still
// differs from the entry's current status. No-op changes and changes to
// entries finalized since staging are filtered out so the confirmation view
// never shows a change that cannot be applied. Entries deleted since
// staging are dropped from the result but stay staged until commit.
func (s *ApprovalService) GatherPending(session *ApprovalSession) ([]PendingChange, error) {
	snapshot := session.pendingSnapshot()
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	changes := []PendingChange{}
	for _, id := range ids {
		entry, err := s.timesheetRepo.GetByID(id)
		if err != nil {
			if errors.Is(err, repositories.ErrEntryNotFound) {
				continue
			}
			return nil, fmt.Errorf("loading staged entry %s: %w", id, err)
		}
		if entry.ApprovalStatus != snapshot[id] && entry.Mutable() {
			changes = append(changes, PendingChange{Entry: *entry, NewStatus: snapshot[id]})
		}
	}
	return changes, nil
}

// Commit applies every staged change that still differs from the entry's
// current status at commit time, appending comment (when non-empty) to the
// entry's comment text. Applied ids are removed from the pending map and
// the selection set; failed ids stay staged so the commit can be retried.
// Returns the number of changes actually applied; when some store calls
// fail the error is a *PartialCommitError carrying the counts.
//
// Changes that became no-ops between staging and commit are not applied and
// not counted, so a second Commit with nothing new staged returns 0. Stages
// against entries another reviewer finalized in the meantime are never
// applied: a finalized entry does not transition again, so those stages are
// dropped and reported in the error.
func (s *ApprovalService) Commit(session *ApprovalSession, comment string) (int, error) {
	if err := session.beginCommit(); err != nil {
		return 0, err
	}
	defer session.endCommit()

	snapshot := session.pendingSnapshot()
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	comment = strings.TrimSpace(comment)
	applied := []string{}
	cleared := []string{}
	var failures []error

	for _, id := range ids {
		newStatus := snapshot[id]
		entry, err := s.timesheetRepo.GetByID(id)
		if err != nil {
			if errors.Is(err, repositories.ErrEntryNotFound) {
				// Deleted since staging: nothing to apply, drop the stage.
				cleared = append(cleared, id)
				continue
			}
			log.Printf("[Commit] loading entry %s failed: %v", id, err)
			failures = append(failures, fmt.Errorf("entry %s: %w", id, err))
			continue
		}
		// Re-check at commit time so a change that became a no-op (e.g. a
		// concurrent update already applied it) is not applied twice.
		if entry.ApprovalStatus == newStatus {
			continue
		}
		// The stage was taken while the entry was still Pending; another
		// reviewer may have finalized it since. A finalized entry never
		// transitions again, so the stale stage is dropped and reported
		// instead of applied.
		if !entry.Mutable() {
			cleared = append(cleared, id)
			failures = append(failures, fmt.Errorf("entry %s: %w", id, ErrImmutableEntry))
			continue
		}

		newComment := entry.Comment
		if comment != "" {
			if newComment != "" {
				newComment += commentSeparator
			}
			newComment += comment
		}

		if err := s.timesheetRepo.UpdateStatus(id, newStatus, newComment); err != nil {
			log.Printf("[Commit] updating entry %s failed: %v", id, err)
			failures = append(failures, fmt.Errorf("entry %s: %w", id, err))
			continue
		}
		applied = append(applied, id)
	}

	session.clearApplied(append(cleared, applied...))

	count := len(applied)
	if len(failures) > 0 {
		return count, &PartialCommitError{Applied: count, Failed: len(failures), Errs: failures}
	}
	log.Printf("[Commit] applied %d staged change(s)", count)
	return count, nil
}
