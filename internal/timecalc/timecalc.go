// Package timecalc holds pure calendar arithmetic: business-day walking,
// weekend checks and the day/week/month buckets the entry filters use.
package timecalc

import "time"

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// BusinessDaysAgo walks backward from `from` one calendar day at a time,
// counting only non-weekend days, until n of them have been passed. The
// returned date is `from` minus the total days walked; it is not itself
// guaranteed to be a business day. n must be >= 1.
func BusinessDaysAgo(from time.Time, n int) time.Time {
	from = StartOfDay(from)
	daysBack := 0
	counted := 0
	for counted < n {
		daysBack++
		if !IsWeekend(from.AddDate(0, 0, -daysBack)) {
			counted++
		}
	}
	return from.AddDate(0, 0, -daysBack)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SameMonth reports whether two times fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// WeekRange returns the Sunday and Saturday bounding the week containing t.
// Weeks start on Sunday.
func WeekRange(t time.Time) (time.Time, time.Time) {
	sunday := StartOfDay(t).AddDate(0, 0, -int(t.Weekday()))
	saturday := sunday.AddDate(0, 0, 6)
	return sunday, saturday
}

// InWeek reports whether d falls in the week containing ref.
func InWeek(d, ref time.Time) bool {
	start, end := WeekRange(ref)
	d = StartOfDay(d)
	return !d.Before(start) && !d.After(end)
}

// InLastWeek reports whether d falls in the week before the one containing ref.
func InLastWeek(d, ref time.Time) bool {
	return InWeek(d, ref.AddDate(0, 0, -7))
}
