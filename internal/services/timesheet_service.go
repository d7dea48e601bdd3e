package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/repositories"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/timecalc"
)

// Business rule constants.
const (
	// MaxDailyHours caps the hours one user may log per calendar day,
	// across all their entries.
	MaxDailyHours = 9

	// EntryWindowBusinessDays is how many business days back from today an
	// entry may still be logged. The UI describes this as "the last 5
	// business days including today"; the walk-back parameter is 4.
	EntryWindowBusinessDays = 4

	MinIssueLength = 10
	MaxIssueLength = 500
)

// TimesheetRepositoryInterface defines the timesheet store operations.
type TimesheetRepositoryInterface interface {
	List() ([]models.TimesheetEntry, error)
	GetByID(id string) (*models.TimesheetEntry, error)
	GetByProject(projectName string) ([]models.TimesheetEntry, error)
	GetByUser(userEmail string) ([]models.TimesheetEntry, error)
	GetByProjectAndUser(projectName, userEmail string) ([]models.TimesheetEntry, error)
	Create(e *models.TimesheetEntry) error
	Update(e *models.TimesheetEntry) error
	UpdateStatus(id, newStatus, comment string) error
	Delete(id string) error
	SumHoursOnDate(userEmail string, day time.Time, excludeID string) (int, error)
	TotalHoursByProject(projectName string) (int, error)
	TotalHoursByProjectForUser(projectName, userEmail string) (int, error)
}

// ProjectRepositoryInterface defines the project store operations.
type ProjectRepositoryInterface interface {
	List() ([]models.Project, error)
	ListForUser(userEmail string) ([]models.Project, error)
	GetByID(id string) (*models.Project, error)
	GetByName(name string) (*models.Project, error)
	Create(p *models.Project) error
	Update(p *models.Project) error
	Delete(id string) error
}

// Window is the inclusive date range within which a new or edited entry may
// be logged for a project.
type Window struct {
	Min time.Time
	Max time.Time
}

// Open reports whether the window contains at least one day.
func (w Window) Open() bool {
	return !w.Min.After(w.Max)
}

// Contains reports whether day d falls inside the window.
func (w Window) Contains(d time.Time) bool {
	d = timecalc.StartOfDay(d)
	return !d.Before(w.Min) && !d.After(w.Max)
}

// EntryInput is the client-supplied shape for creating or editing an entry.
// Hours is a pointer so a missing field is distinguishable from zero.
type EntryInput struct {
	Date     string `json:"date"`
	Activity string `json:"activity"`
	Hours    *int   `json:"hours"`
	Issue    string `json:"issue"`
}

// TimesheetServiceInterface defines the entry workflow operations.
type TimesheetServiceInterface interface {
	ResolveEntryWindow(project *models.Project, today time.Time) (Window, error)
	ValidateEntryFields(input EntryInput, window Window) map[string]string
	CreateEntry(projectName string, input EntryInput, user *models.User, now time.Time) (*models.TimesheetEntry, error)
	UpdateEntry(entryID string, input EntryInput, user *models.User, now time.Time) (*models.TimesheetEntry, error)
	DeleteEntry(entryID string, user *models.User) error
	GetEntry(entryID string) (*models.TimesheetEntry, error)
	ListEntries(filter EntryFilter, now time.Time) ([]models.TimesheetEntry, error)
	ProjectEntriesForUser(projectName, userEmail string) ([]models.TimesheetEntry, error)
	ProjectTotalHours(projectName string) (int, error)
	ProjectTotalHoursForUser(projectName, userEmail string) (int, error)
}

// TimesheetService implements TimesheetServiceInterface.
type TimesheetService struct {
	timesheetRepo TimesheetRepositoryInterface
	projectRepo   ProjectRepositoryInterface

	// submitMu guards inFlight: one submission per user at a time. A second
	// submit while one is running is rejected, not queued.
	submitMu sync.Mutex
	inFlight map[string]bool
}

// NewTimesheetService creates a new TimesheetService.
func NewTimesheetService(timesheetRepo TimesheetRepositoryInterface, projectRepo ProjectRepositoryInterface) *TimesheetService {
	return &TimesheetService{
		timesheetRepo: timesheetRepo,
		projectRepo:   projectRepo,
		inFlight:      make(map[string]bool),
	}
}

func (s *TimesheetService) beginSubmit(userEmail string) error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	if s.inFlight[userEmail] {
		return ErrSubmitInFlight
	}
	s.inFlight[userEmail] = true
	return nil
}

func (s *TimesheetService) endSubmit(userEmail string) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	delete(s.inFlight, userEmail)
}

// ResolveEntryWindow derives the allowed date range for a new or edited
// entry from the project bounds and today:
//
//	max = min(today, project end)
//	min = max(project start, today minus 4 business days)
//
// A window whose minimum is after its maximum means the project is closed
// for logging and ErrClosedWindow is returned. Zero project bounds mean the
// stored date strings failed to parse and are reported as invalid dates.
func (s *TimesheetService) ResolveEntryWindow(project *models.Project, today time.Time) (Window, error) {
	if project.StartDate.IsZero() || project.EndDate.IsZero() {
		return Window{}, fmt.Errorf("%w: project %q has unusable start or end date", models.ErrInvalidDate, project.Name)
	}

	today = timecalc.StartOfDay(today)
	start := timecalc.StartOfDay(project.StartDate.Time)
	end := timecalc.StartOfDay(project.EndDate.Time)
	earliest := timecalc.BusinessDaysAgo(today, EntryWindowBusinessDays)

	w := Window{Min: start, Max: today}
	if end.Before(today) {
		w.Max = end
	}
	if earliest.After(start) {
		w.Min = earliest
	}

	if !w.Open() {
		return w, fmt.Errorf("%w: project %q accepts entries between %s and %s",
			ErrClosedWindow, project.Name,
			models.FormatEntryDate(w.Min), models.FormatEntryDate(w.Max))
	}
	return w, nil
}

// ValidateEntryFields checks every field rule and returns a map of field
// name to message. Rules are evaluated independently so all applicable
// errors surface together; an empty map means the fields are valid. The
// cross-record daily cap is a separate step (see checkDailyHours).
func (s *TimesheetService) ValidateEntryFields(input EntryInput, window Window) map[string]string {
	fieldErrors := map[string]string{}

	if strings.TrimSpace(input.Date) == "" {
		fieldErrors["date"] = "Date is required"
	} else if day, err := models.ParseEntryDate(input.Date); err != nil {
		fieldErrors["date"] = "Date must be in DD/MM/YYYY format"
	} else if timecalc.IsWeekend(day) {
		fieldErrors["date"] = "Weekends are not allowed"
	} else if !window.Contains(day) {
		fieldErrors["date"] = fmt.Sprintf("Date must be between %s and %s",
			models.FormatEntryDate(window.Min), models.FormatEntryDate(window.Max))
	}

	if input.Activity == "" {
		fieldErrors["activity"] = "Activity is required"
	} else if !models.IsValidActivity(input.Activity) {
		fieldErrors["activity"] = "Activity must be one of: " + strings.Join(models.Activities, ", ")
	}

	if input.Hours == nil {
		fieldErrors["hours"] = "Hours is required"
	} else if *input.Hours <= 0 {
		fieldErrors["hours"] = "Hours must be greater than 0"
	} else if *input.Hours > MaxDailyHours {
		fieldErrors["hours"] = "Hours cannot exceed 9"
	}

	issue := strings.TrimSpace(input.Issue)
	if issue == "" {
		fieldErrors["issue"] = "Issue description is required"
	} else if length := utf8.RuneCountInString(issue); length < MinIssueLength {
		fieldErrors["issue"] = "Issue description must be at least 10 characters"
	} else if length > MaxIssueLength {
		fieldErrors["issue"] = "Issue description cannot exceed 500 characters"
	}

	return fieldErrors
}

// checkDailyHours enforces the cross-record cap: hours already logged by the
// user on the day (Pending and Approved entries, excluding the entry under
// edit) plus the submitted hours must not exceed MaxDailyHours. The store
// round trip failing is reported as ErrValidationUnavailable, never as a
// cap violation.
func (s *TimesheetService) checkDailyHours(userEmail string, day time.Time, hours int, excludeID string) error {
	existing, err := s.timesheetRepo.SumHoursOnDate(userEmail, day, excludeID)
	if err != nil {
		log.Printf("[checkDailyHours] store error for %s on %s: %v", userEmail, models.FormatEntryDate(day), err)
		return fmt.Errorf("%w: %v", ErrValidationUnavailable, err)
	}
	if existing+hours > MaxDailyHours {
		return &DailyLimitError{Existing: existing, Attempted: existing + hours}
	}
	return nil
}

// CreateEntry validates and stores a new entry for user against the named
// project. The field validation, the daily-cap round trip and the write are
// strictly sequential: the write is only issued once the cap check passes.
func (s *TimesheetService) CreateEntry(projectName string, input EntryInput, user *models.User, now time.Time) (*models.TimesheetEntry, error) {
	if err := s.beginSubmit(user.Email); err != nil {
		return nil, err
	}
	defer s.endSubmit(user.Email)

	project, err := s.projectRepo.GetByName(projectName)
	if err != nil {
		return nil, fmt.Errorf("loading project %q: %w", projectName, err)
	}

	window, err := s.ResolveEntryWindow(project, now)
	if err != nil {
		return nil, err
	}

	if fieldErrors := s.ValidateEntryFields(input, window); len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	day, _ := models.ParseEntryDate(input.Date)
	if err := s.checkDailyHours(user.Email, day, *input.Hours, ""); err != nil {
		return nil, err
	}

	entry := &models.TimesheetEntry{
		Date:           models.EntryDate{Time: day},
		User:           user.Email,
		Activity:       input.Activity,
		Issue:          strings.TrimSpace(input.Issue),
		Comment:        "",
		Hours:          *input.Hours,
		ApprovalStatus: models.StatusPending,
		Created:        models.CreatedStamp{Time: now},
		Unit:           models.UnitLabel,
		Author:         user.Email,
		ProjectID:      project.ID,
		ProjectName:    project.Name,
	}
	if err := s.timesheetRepo.Create(entry); err != nil {
		return nil, fmt.Errorf("saving timesheet entry: %w", err)
	}
	log.Printf("[CreateEntry] user %s logged %dh on %s for project %s (entry %s)",
		user.Email, entry.Hours, input.Date, project.Name, entry.ID)
	return entry, nil
}

// UpdateEntry edits an existing entry. Only the owner may edit, and only
// while the entry is still Pending.
func (s *TimesheetService) UpdateEntry(entryID string, input EntryInput, user *models.User, now time.Time) (*models.TimesheetEntry, error) {
	if err := s.beginSubmit(user.Email); err != nil {
		return nil, err
	}
	defer s.endSubmit(user.Email)

	entry, err := s.timesheetRepo.GetByID(entryID)
	if err != nil {
		return nil, fmt.Errorf("loading entry %s: %w", entryID, err)
	}
	if entry.User != user.Email {
		return nil, ErrNotEntryOwner
	}
	if !entry.Mutable() {
		return nil, ErrImmutableEntry
	}

	project, err := s.projectRepo.GetByName(entry.ProjectName)
	if err != nil {
		return nil, fmt.Errorf("loading project %q: %w", entry.ProjectName, err)
	}

	window, err := s.ResolveEntryWindow(project, now)
	if err != nil {
		return nil, err
	}

	if fieldErrors := s.ValidateEntryFields(input, window); len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	day, _ := models.ParseEntryDate(input.Date)
	if err := s.checkDailyHours(user.Email, day, *input.Hours, entry.ID); err != nil {
		return nil, err
	}

	entry.Date = models.EntryDate{Time: day}
	entry.Activity = input.Activity
	entry.Issue = strings.TrimSpace(input.Issue)
	entry.Hours = *input.Hours

	if err := s.timesheetRepo.Update(entry); err != nil {
		return nil, fmt.Errorf("saving entry %s: %w", entry.ID, err)
	}
	log.Printf("[UpdateEntry] user %s updated entry %s", user.Email, entry.ID)
	return entry, nil
}

// DeleteEntry removes an entry. Owners may delete their own Pending entries;
// admins may delete any entry that is still Pending. Approved and Rejected
// entries are never hard-deleted.
func (s *TimesheetService) DeleteEntry(entryID string, user *models.User) error {
	entry, err := s.timesheetRepo.GetByID(entryID)
	if err != nil {
		return fmt.Errorf("loading entry %s: %w", entryID, err)
	}
	if entry.User != user.Email && !user.IsAdmin() {
		return ErrNotEntryOwner
	}
	if !entry.Mutable() {
		return ErrImmutableEntry
	}
	if err := s.timesheetRepo.Delete(entryID); err != nil {
		return fmt.Errorf("deleting entry %s: %w", entryID, err)
	}
	log.Printf("[DeleteEntry] user %s deleted entry %s", user.Email, entryID)
	return nil
}

// GetEntry returns one entry by id.
func (s *TimesheetService) GetEntry(entryID string) (*models.TimesheetEntry, error) {
	entry, err := s.timesheetRepo.GetByID(entryID)
	if err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading entry %s: %w", entryID, err)
	}
	return entry, nil
}

// ListEntries returns all entries matching the filter. The filter is always
// applied to the full list fetched fresh from the store, never incrementally.
func (s *TimesheetService) ListEntries(filter EntryFilter, now time.Time) ([]models.TimesheetEntry, error) {
	entries, err := s.timesheetRepo.List()
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return filter.Apply(entries, now), nil
}

// ProjectEntriesForUser returns the entries a user logged against a project.
func (s *TimesheetService) ProjectEntriesForUser(projectName, userEmail string) ([]models.TimesheetEntry, error) {
	entries, err := s.timesheetRepo.GetByProjectAndUser(projectName, userEmail)
	if err != nil {
		return nil, fmt.Errorf("listing entries for %s on %q: %w", userEmail, projectName, err)
	}
	return entries, nil
}

// ProjectTotalHours returns the hour total across all users of a project.
func (s *TimesheetService) ProjectTotalHours(projectName string) (int, error) {
	return s.timesheetRepo.TotalHoursByProject(projectName)
}

// ProjectTotalHoursForUser returns one user's hour total on a project.
func (s *TimesheetService) ProjectTotalHoursForUser(projectName, userEmail string) (int, error) {
	return s.timesheetRepo.TotalHoursByProjectForUser(projectName, userEmail)
}
