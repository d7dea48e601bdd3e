package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the workflow states callers branch on with errors.Is.
var (
	// ErrClosedWindow means the project's loggable date range has no days
	// left (window minimum is after the maximum).
	ErrClosedWindow = errors.New("no dates are currently open for logging time on this project")

	// ErrImmutableEntry means a mutation was attempted on an entry that has
	// already been approved or rejected.
	ErrImmutableEntry = errors.New("entry has already been approved or rejected and can no longer be changed")

	// ErrSubmitInFlight means a submission or commit was attempted while a
	// previous one on the same session had not finished.
	ErrSubmitInFlight = errors.New("a submission is already in progress")

	// ErrValidationUnavailable means the daily-hour-cap check could not be
	// completed because the store round trip failed. Distinct from an actual
	// cap violation.
	ErrValidationUnavailable = errors.New("error validating daily hours limit")

	// ErrNotEntryOwner means a user tried to edit or delete someone else's entry.
	ErrNotEntryOwner = errors.New("entry belongs to another user")

	// ErrDuplicateProjectName means a project with the same name (compared
	// case-insensitively) already exists.
	ErrDuplicateProjectName = errors.New("a project with this name already exists")
)

// ValidationError carries all field-level failures from one validation pass.
// Every rule is evaluated; nothing short-circuits.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// DailyLimitError reports a daily-hour-cap violation with the totals the
// user needs to correct it.
type DailyLimitError struct {
	Existing  int // hours already logged for the (user, date)
	Attempted int // existing plus the new/edited hours
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf(
		"Total hours for this day would be %d. Maximum allowed is %d hours per day. You already have %d hours logged.",
		e.Attempted, MaxDailyHours, e.Existing)
}

// PartialCommitError reports a bulk commit where some changes could not be
// applied. Entries that failed on a store error remain staged so the commit
// can be retried; stages refused because the entry was finalized by another
// reviewer are dropped and carried in Errs as ErrImmutableEntry.
type PartialCommitError struct {
	Applied int
	Failed  int
	Errs    []error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("%d change(s) saved, %d failed", e.Applied, e.Failed)
}

func (e *PartialCommitError) Unwrap() []error { return e.Errs }
