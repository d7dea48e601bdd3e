package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
)

// ErrEntryNotFound is returned when a timesheet entry id has no row.
var ErrEntryNotFound = errors.New("timesheet entry not found")

const entryColumns = `id, entry_date, user_email, activity, issue, comment, hours,
		approval_status, created_at, unit, author, project_id, project_name`

// TimesheetRepository provides access to timesheet entries in the database.
type TimesheetRepository struct {
	db *sql.DB
}

// NewTimesheetRepository creates a new TimesheetRepository.
func NewTimesheetRepository(db *sql.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

func scanEntry(row interface{ Scan(...interface{}) error }) (*models.TimesheetEntry, error) {
	e := &models.TimesheetEntry{}
	var issue, comment sql.NullString
	err := row.Scan(
		&e.ID, &e.Date, &e.User, &e.Activity, &issue, &comment, &e.Hours,
		&e.ApprovalStatus, &e.Created, &e.Unit, &e.Author, &e.ProjectID, &e.ProjectName,
	)
	if err != nil {
		return nil, err
	}
	if issue.Valid {
		e.Issue = issue.String
	}
	if comment.Valid {
		e.Comment = comment.String
	}
	return e, nil
}

// List returns all timesheet entries, newest first.
func (r *TimesheetRepository) List() ([]models.TimesheetEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM timesheets ORDER BY created_at DESC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying timesheet entries: %w", err)
	}
	defer rows.Close()

	entries := []models.TimesheetEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			log.Printf("[TimesheetRepository.List] scan error: %v", err)
			continue
		}
		entries = append(entries, *e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating timesheet entries: %w", err)
	}
	return entries, nil
}

// GetByID returns one entry or ErrEntryNotFound.
func (r *TimesheetRepository) GetByID(id string) (*models.TimesheetEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM timesheets WHERE id = ?`
	e, err := scanEntry(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("querying timesheet entry %s: %w", id, err)
	}
	return e, nil
}

// GetByProject returns all entries logged against a project name.
func (r *TimesheetRepository) GetByProject(projectName string) ([]models.TimesheetEntry, error) {
	return r.listWhere("project_name = ?", projectName)
}

// GetByUser returns all entries owned by a user.
func (r *TimesheetRepository) GetByUser(userEmail string) ([]models.TimesheetEntry, error) {
	return r.listWhere("user_email = ?", userEmail)
}

// GetByProjectAndUser returns the entries a user logged against a project.
func (r *TimesheetRepository) GetByProjectAndUser(projectName, userEmail string) ([]models.TimesheetEntry, error) {
	return r.listWhere("project_name = ? AND user_email = ?", projectName, userEmail)
}

func (r *TimesheetRepository) listWhere(cond string, args ...interface{}) ([]models.TimesheetEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM timesheets WHERE ` + cond + ` ORDER BY created_at DESC`
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying timesheet entries: %w", err)
	}
	defer rows.Close()

	entries := []models.TimesheetEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			log.Printf("[TimesheetRepository.listWhere] scan error: %v", err)
			continue
		}
		entries = append(entries, *e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating timesheet entries: %w", err)
	}
	return entries, nil
}

// Create inserts a new entry, assigning the next sequential id
// (max numeric existing id + 1) inside a transaction.
func (r *TimesheetRepository) Create(e *models.TimesheetEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("[TimesheetRepository.Create] rollback error: %v", rbErr)
			}
		}
	}()

	var nextID int64
	if txErr = tx.QueryRow(
		`SELECT COALESCE(MAX(CAST(id AS UNSIGNED)), 0) + 1 FROM timesheets`,
	).Scan(&nextID); txErr != nil {
		return fmt.Errorf("computing next entry id: %w", txErr)
	}
	e.ID = fmt.Sprintf("%d", nextID)

	query := `
		INSERT INTO timesheets (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, txErr = tx.Exec(query,
		e.ID, e.Date, e.User, e.Activity, e.Issue, e.Comment, e.Hours,
		e.ApprovalStatus, e.Created, e.Unit, e.Author, e.ProjectID, e.ProjectName,
	); txErr != nil {
		return fmt.Errorf("inserting timesheet entry: %w", txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("committing timesheet entry %s: %w", e.ID, txErr)
	}
	return nil
}

// Update rewrites the mutable fields of an entry.
func (r *TimesheetRepository) Update(e *models.TimesheetEntry) error {
	query := `
		UPDATE timesheets
		SET entry_date = ?, activity = ?, issue = ?, comment = ?, hours = ?, approval_status = ?
		WHERE id = ?`
	result, err := r.db.Exec(query, e.Date, e.Activity, e.Issue, e.Comment, e.Hours, e.ApprovalStatus, e.ID)
	if err != nil {
		return fmt.Errorf("updating timesheet entry %s: %w", e.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for entry %s: %w", e.ID, err)
	}
	if rows == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// UpdateStatus sets a new approval status, replacing the comment text with
// the provided value (callers build the appended comment themselves).
func (r *TimesheetRepository) UpdateStatus(id, newStatus, comment string) error {
	query := `UPDATE timesheets SET approval_status = ?, comment = ? WHERE id = ?`
	result, err := r.db.Exec(query, newStatus, comment, id)
	if err != nil {
		return fmt.Errorf("updating status of entry %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for entry %s: %w", id, err)
	}
	if rows == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Delete removes an entry.
func (r *TimesheetRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM timesheets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting timesheet entry %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for entry %s: %w", id, err)
	}
	if rows == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// SumHoursOnDate returns the hours a user has already logged on a calendar
// day, counting Pending and Approved entries only. excludeID, when non-empty,
// leaves out the entry being edited.
func (r *TimesheetRepository) SumHoursOnDate(userEmail string, day time.Time, excludeID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(hours), 0)
		FROM timesheets
		WHERE user_email = ? AND entry_date = ? AND approval_status IN (?, ?)`
	args := []interface{}{userEmail, day, models.StatusPending, models.StatusApproved}
	if excludeID != "" {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}

	var total int
	if err := r.db.QueryRow(query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing hours for %s on %s: %w", userEmail, day.Format("2006-01-02"), err)
	}
	return total, nil
}

// TotalHoursByProject returns the hour total across all users of a project.
func (r *TimesheetRepository) TotalHoursByProject(projectName string) (int, error) {
	var total int
	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(hours), 0) FROM timesheets WHERE project_name = ?`, projectName,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing hours for project %s: %w", projectName, err)
	}
	return total, nil
}

// TotalHoursByProjectForUser returns one user's hour total on a project.
func (r *TimesheetRepository) TotalHoursByProjectForUser(projectName, userEmail string) (int, error) {
	var total int
	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(hours), 0) FROM timesheets WHERE project_name = ? AND user_email = ?`,
		projectName, userEmail,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing hours for %s on project %s: %w", userEmail, projectName, err)
	}
	return total, nil
}
