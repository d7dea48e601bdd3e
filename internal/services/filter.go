package services

import (
	"time"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/timecalc"
)

// Date bucket values accepted by EntryFilter.DateBucket. Buckets are
// computed relative to "now" with locale-naive day boundaries; weeks start
// on Sunday.
const (
	BucketAny       = "any"
	BucketToday     = "today"
	BucketYesterday = "yesterday"
	BucketThisWeek  = "this-week"
	BucketLastWeek  = "last-week"
	BucketThisMonth = "this-month"
)

// EntryFilter selects entries by independent, conjunctive predicates: every
// active filter must match. Zero values ("", "any", "all") deactivate a
// predicate.
type EntryFilter struct {
	DateBucket string `form:"date"`
	Status     string `form:"status"`
	Activity   string `form:"activity"`
	User       string `form:"user"`
	Unit       string `form:"unit"`
	Project    string `form:"project"`
}

func active(v string) bool {
	return v != "" && v != "any" && v != "all"
}

// Apply returns the entries matching every active predicate. The input list
// is never mutated; re-filtering always starts from the full list.
func (f EntryFilter) Apply(entries []models.TimesheetEntry, now time.Time) []models.TimesheetEntry {
	matched := []models.TimesheetEntry{}
	for _, e := range entries {
		if f.matches(&e, now) {
			matched = append(matched, e)
		}
	}
	return matched
}

func (f EntryFilter) matches(e *models.TimesheetEntry, now time.Time) bool {
	if active(f.DateBucket) && !matchBucket(f.DateBucket, e.Date.Time, now) {
		return false
	}
	if active(f.Status) && e.ApprovalStatus != f.Status {
		return false
	}
	if active(f.Activity) && e.Activity != f.Activity {
		return false
	}
	if active(f.User) && e.User != f.User {
		return false
	}
	if active(f.Unit) && e.Unit != f.Unit {
		return false
	}
	if active(f.Project) && e.ProjectName != f.Project {
		return false
	}
	return true
}

func matchBucket(bucket string, day, now time.Time) bool {
	switch bucket {
	case BucketToday:
		return timecalc.SameDay(day, now)
	case BucketYesterday:
		return timecalc.SameDay(day, now.AddDate(0, 0, -1))
	case BucketThisWeek:
		return timecalc.InWeek(day, now)
	case BucketLastWeek:
		return timecalc.InLastWeek(day, now)
	case BucketThisMonth:
		return timecalc.SameMonth(day, now)
	default:
		// Unknown buckets match nothing rather than silently matching all.
		return false
	}
}
