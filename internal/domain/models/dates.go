package models

import "time"

// StartOfDay truncates t to midnight UTC of its calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns midnight UTC of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// LocalDay returns midnight UTC of the calendar day t falls on in loc.
func LocalDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return StartOfDay(t.In(loc))
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// DayOfMonth returns month's day-th day, clamped to the month's last day.
func DayOfMonth(month time.Time, day int) time.Time {
	first := StartOfMonth(month)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return first.AddDate(0, 0, day-1)
}

// AddMonths moves t by n calendar months, keeping its day when the target
// month has it and falling back to that month's last day otherwise.
func AddMonths(t time.Time, n int) time.Time {
	target := StartOfMonth(t).AddDate(0, n, 0)
	return DayOfMonth(target, t.Day())
}

// ParseDate parses a yyyy-mm-dd value (longer timestamps are truncated).
func ParseDate(value string) (time.Time, error) {
	if len(value) > len(DateLayout) {
		value = value[:len(DateLayout)]
	}
	return time.Parse(DateLayout, value)
}
