package task

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRange is returned by Validate when a task ends before or at its start.
var ErrInvalidRange = errors.New("task: end must be after start")

// Task is a single scheduled item. Identity is the ID; every other field
// may change over the task's lifetime.
type Task struct {
	ID       uuid.UUID
	Title    string
	Start    time.Time
	End      time.Time
	Location string
}

// New returns a task with a freshly assigned identifier.
func New(title string, start, end time.Time, location string) Task {
	return Task{
		ID:       uuid.New(),
		Title:    title,
		Start:    start,
		End:      end,
		Location: location,
	}
}

func (t Task) Validate() error {
	if !t.End.After(t.Start) {
		return fmt.Errorf("%w: %s - %s", ErrInvalidRange, t.Start.Format(ClockLayout), t.End.Format(ClockLayout))
	}
	return nil
}

// SameTask reports whether both values refer to the same task.
func (t Task) SameTask(other Task) bool {
	return t.ID == other.ID
}

const ClockLayout = "15:04"

// Defaults describes the task created by the "add" action before the user
// edits it.
type Defaults struct {
	Title    string `toml:"title"`
	Start    string `toml:"start"`
	End      string `toml:"end"`
	Location string `toml:"location"`
}

func DefaultPlaceholder() Defaults {
	return Defaults{
		Title:    "New Task",
		Start:    "16:00",
		End:      "17:00",
		Location: "Madrid",
	}
}

// Placeholder builds a new task on date's calendar day from d. Clock values
// that fail to parse fall back to the built-in defaults.
func Placeholder(date time.Time, d Defaults) Task {
	fallback := DefaultPlaceholder()
	start, err := AtClock(date, d.Start)
	if err != nil {
		start, _ = AtClock(date, fallback.Start)
	}
	end, err := AtClock(date, d.End)
	if err != nil {
		end, _ = AtClock(date, fallback.End)
	}
	return New(d.Title, start, end, d.Location)
}

// ParseClock parses "HH:MM" (24h) into hour and minute.
func ParseClock(v string) (int, int, error) {
	v = strings.TrimSpace(v)
	hh, mm, ok := strings.Cut(v, ":")
	if !ok {
		return 0, 0, fmt.Errorf("clock %q: expected HH:MM", v)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("clock %q: invalid hour", v)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock %q: invalid minute", v)
	}
	return hour, minute, nil
}

// AtClock returns date's calendar day at the given "HH:MM" time of day.
func AtClock(date time.Time, clock string) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location()), nil
}

// TimeRange renders "HH:MM - HH:MM".
func (t Task) TimeRange() string {
	return t.Start.Format(ClockLayout) + " - " + t.End.Format(ClockLayout)
}
