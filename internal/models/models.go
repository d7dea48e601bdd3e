package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// --- Approval status constants ---
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// --- Activity constants ---
const (
	ActivityTask      = "Task"
	ActivityHoliday   = "Holiday"
	ActivityLeave     = "Leave"
	ActivityInterview = "Interview"
)

// Activities is the fixed set of loggable activities.
var Activities = []string{ActivityTask, ActivityHoliday, ActivityLeave, ActivityInterview}

// IsValidActivity reports whether a is one of the fixed activity set.
func IsValidActivity(a string) bool {
	for _, known := range Activities {
		if a == known {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is one of the three approval statuses.
func IsValidStatus(s string) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// UnitLabel is the fixed unit label stamped on every entry.
const UnitLabel = "Unit 2"

// --- User roles ---
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

// ErrInvalidDate is returned when a date string crossing the store boundary
// has the wrong shape for its format. Wrapped errors carry the bad input.
var ErrInvalidDate = errors.New("invalid date")

// Wire formats. Entry dates, project bounds and creation timestamps each use
// a different day-first layout; none of them is ISO-8601, so parsing is
// explicit and format-specific everywhere.
const (
	entryDateLayout   = "02/01/2006"
	projectDateLayout = "02-01-2006"
	createdLayout     = "02/01/2006 03:04 PM"
)

// ParseEntryDate parses a DD/MM/YYYY entry date.
func ParseEntryDate(s string) (time.Time, error) {
	t, err := time.Parse(entryDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: entry date %q is not DD/MM/YYYY", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseProjectDate parses a DD-MM-YYYY project bound.
func ParseProjectDate(s string) (time.Time, error) {
	t, err := time.Parse(projectDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: project date %q is not DD-MM-YYYY", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatEntryDate formats t as DD/MM/YYYY.
func FormatEntryDate(t time.Time) string {
	return t.Format(entryDateLayout)
}

// FormatProjectDate formats t as DD-MM-YYYY.
func FormatProjectDate(t time.Time) string {
	return t.Format(projectDateLayout)
}

// EntryDate is a calendar day serialized as DD/MM/YYYY in JSON and stored as
// a DATE column. The zero value marshals as an empty string.
type EntryDate struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *EntryDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseEntryDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d EntryDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.Format(entryDateLayout))
}

// Value implements driver.Valuer.
func (d EntryDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// Scan implements sql.Scanner.
func (d *EntryDate) Scan(value interface{}) error {
	if value == nil {
		d.Time = time.Time{}
		return nil
	}
	if t, ok := value.(time.Time); ok {
		d.Time = t
		return nil
	}
	return fmt.Errorf("cannot scan %T into EntryDate", value)
}

// ProjectDate is a calendar day serialized as DD-MM-YYYY in JSON and stored
// as a DATE column.
type ProjectDate struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *ProjectDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseProjectDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d ProjectDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.Format(projectDateLayout))
}

// Value implements driver.Valuer.
func (d ProjectDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// Scan implements sql.Scanner.
func (d *ProjectDate) Scan(value interface{}) error {
	if value == nil {
		d.Time = time.Time{}
		return nil
	}
	if t, ok := value.(time.Time); ok {
		d.Time = t
		return nil
	}
	return fmt.Errorf("cannot scan %T into ProjectDate", value)
}

// CreatedStamp is a creation timestamp serialized as "DD/MM/YYYY hh:mm AM/PM"
// in JSON and stored as a DATETIME column.
type CreatedStamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CreatedStamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		c.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(createdLayout, s)
	if err != nil {
		return fmt.Errorf("%w: created timestamp %q is not DD/MM/YYYY hh:mm AM/PM", ErrInvalidDate, s)
	}
	c.Time = t
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c CreatedStamp) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(c.Format(createdLayout))
}

// Value implements driver.Valuer.
func (c CreatedStamp) Value() (driver.Value, error) {
	if c.IsZero() {
		return nil, nil
	}
	return c.Time, nil
}

// Scan implements sql.Scanner.
func (c *CreatedStamp) Scan(value interface{}) error {
	if value == nil {
		c.Time = time.Time{}
		return nil
	}
	if t, ok := value.(time.Time); ok {
		c.Time = t
		return nil
	}
	return fmt.Errorf("cannot scan %T into CreatedStamp", value)
}

// StringList is a []string stored as a JSON column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshaling string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(b) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(b, (*[]string)(l))
}

// TimesheetEntry is one logged work record. IDs are store-assigned,
// sequential and carried as strings on the wire.
type TimesheetEntry struct {
	ID             string       `json:"id" db:"id"`
	Date           EntryDate    `json:"date" db:"entry_date"`
	User           string       `json:"user" db:"user_email"`
	Activity       string       `json:"activity" db:"activity"`
	Issue          string       `json:"issue" db:"issue"`
	Comment        string       `json:"comment" db:"comment"`
	Hours          int          `json:"hours" db:"hours"`
	ApprovalStatus string       `json:"approvalStatus" db:"approval_status"`
	Created        CreatedStamp `json:"created" db:"created_at"`
	Unit           string       `json:"unit" db:"unit"`
	Author         string       `json:"author" db:"author"`
	ProjectID      string       `json:"projectId" db:"project_id"`
	ProjectName    string       `json:"projectName" db:"project_name"`
}

// Mutable reports whether the entry may still be changed or deleted.
// Approved and Rejected entries are immutable.
func (e *TimesheetEntry) Mutable() bool {
	return e.ApprovalStatus == StatusPending
}

// Project groups entries and bounds the window in which they may be logged.
type Project struct {
	ID             string      `json:"id" db:"id"`
	Name           string      `json:"name" db:"name"`
	Code           string      `json:"code" db:"code"`
	Description    string      `json:"description" db:"description"`
	Status         string      `json:"status" db:"status"`
	AssignedUsers  StringList  `json:"assignedUsers" db:"assigned_users"`
	StartDate      ProjectDate `json:"startDate" db:"start_date"`
	EndDate        ProjectDate `json:"endDate" db:"end_date"`
	ProjectManager string      `json:"projectManager" db:"project_manager"`
}

// User is an account that logs or reviews entries.
type User struct {
	ID        string `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	Password  string `json:"-" db:"password"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	Role      string `json:"role" db:"role"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsManager reports whether the user has the manager role.
func (u *User) IsManager() bool { return u.Role == RoleManager }
