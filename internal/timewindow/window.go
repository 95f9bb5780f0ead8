// Package timewindow computes the calendar windows that scope ledger
// views: a single day with millisecond-inclusive bounds, and the
// Sunday-anchored week containing a reference date.
//
// All functions are pure and total: same reference date and location,
// same windows. Calendar arithmetic goes through time.AddDate so weeks
// spanning month or year boundaries come out right.
package timewindow

import "time"

// DayWindow is the inclusive bounds of one calendar day.
// End is the last representable millisecond of the day.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// Day returns the window for the calendar day containing ref,
// in ref's location.
func Day(ref time.Time) DayWindow {
	y, m, d := ref.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return DayWindow{Start: start, End: end}
}

// Contains reports whether t falls inside the window, bounds inclusive.
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Equal reports whether two windows cover the same instant range.
func (w DayWindow) Equal(other DayWindow) bool {
	return w.Start.Equal(other.Start) && w.End.Equal(other.End)
}

// Week returns the seven midnights of the Sunday-anchored week
// containing ref, ordered Sunday through Saturday.
func Week(ref time.Time) [7]time.Time {
	y, m, d := ref.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, ref.Location())
	sunday := midnight.AddDate(0, 0, -int(midnight.Weekday()))

	var days [7]time.Time
	for i := range days {
		days[i] = sunday.AddDate(0, 0, i)
	}
	return days
}
