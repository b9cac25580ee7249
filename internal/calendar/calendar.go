// Package calendar computes the seven-day windows the planner displays.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

const (
	DaysPerWeek = 7
	// MaxWeekOffset bounds the offset accepted by CurrentWeek in either
	// direction, roughly twenty thousand years.
	MaxWeekOffset = 1 << 20
	// DayLayout is the layout used for Day identifiers.
	DayLayout = "2006-01-02"
)

// Day is a calendar day with the time of day normalized away.
type Day struct {
	Date time.Time
	ID   string
}

// NewDay normalizes t to midnight and derives the day's identifier.
func NewDay(t time.Time) Day {
	d := Normalize(t)
	return Day{Date: d, ID: d.Format(DayLayout)}
}

// Same reports whether both days fall on the same year, month and day.
func (d Day) Same(other Day) bool {
	return SameDay(d.Date, other.Date)
}

func (d Day) String() string {
	return d.ID
}

// Normalize returns midnight of t's calendar day in t's location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay compares the calendar dates of a and b, each read in its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Window produces week windows relative to the current date.
type Window struct {
	WeekStart time.Weekday
	// Now defaults to time.Now.
	Now func() time.Time
	// Location defaults to time.Local.
	Location *time.Location
}

// CurrentWeek returns the 7 days of the week containing now shifted by
// offset whole weeks. Every call starts from the current date, so repeated
// calls never accumulate drift. Offsets beyond ±MaxWeekOffset are clamped.
func (w Window) CurrentWeek(offset int) []Day {
	offset = ClampOffset(offset)
	anchor := Normalize(w.now().In(w.location())).AddDate(0, 0, offset*DaysPerWeek)
	back := (int(anchor.Weekday()) - int(w.WeekStart) + DaysPerWeek) % DaysPerWeek
	start := anchor.AddDate(0, 0, -back)

	days := make([]Day, DaysPerWeek)
	for i := range days {
		days[i] = NewDay(start.AddDate(0, 0, i))
	}
	return days
}

// Today returns the current calendar day.
func (w Window) Today() Day {
	return NewDay(w.now().In(w.location()))
}

// ClampOffset limits offset to [-MaxWeekOffset, MaxWeekOffset].
func ClampOffset(offset int) int {
	return max(-MaxWeekOffset, min(offset, MaxWeekOffset))
}

func (w Window) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

func (w Window) location() *time.Location {
	if w.Location == nil {
		return time.Local
	}
	return w.Location
}

// Navigator tracks the week offset a UI is showing. It stores only the
// cumulative offset and asks the window for a fresh week each time.
type Navigator struct {
	Window Window
	offset int
}

func NewNavigator(w Window) *Navigator {
	return &Navigator{Window: w}
}

func (n *Navigator) Offset() int { return n.offset }

func (n *Navigator) Week() []Day {
	return n.Window.CurrentWeek(n.offset)
}

func (n *Navigator) Next() []Day {
	n.offset = ClampOffset(n.offset + 1)
	return n.Week()
}

func (n *Navigator) Prev() []Day {
	n.offset = ClampOffset(n.offset - 1)
	return n.Week()
}

// Reset jumps back to the week containing today.
func (n *Navigator) Reset() []Day {
	n.offset = 0
	return n.Week()
}

// WeekStartFromString parses a weekday name ("monday", "Mon", ...). An empty
// string selects Monday.
func WeekStartFromString(v string) (time.Weekday, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("calendar: unknown week start %q", v)
}
