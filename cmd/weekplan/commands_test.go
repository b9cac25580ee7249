package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"weekplan/internal/calendar"
	"weekplan/internal/storage"
	"weekplan/internal/task"
)

// Wednesday; the default Monday week runs 2025-08-04..2025-08-10.
var testNow = time.Date(2025, time.August, 6, 10, 0, 0, 0, time.UTC)

const testToday = "2025-08-06"

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	cmd := newCommand(&app{now: func() time.Time { return testNow }})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--log-level", "error"}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestWeekJSONIncludesSeededTask(t *testing.T) {
	today := testToday
	out := runCmd(t, "week", "--json", "--add", today)

	var days []dayJSON
	if err := json.Unmarshal([]byte(out), &days); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(days) != calendar.DaysPerWeek {
		t.Fatalf("expected %d days, got %d", calendar.DaysPerWeek, len(days))
	}
	if days[0].Day != "2025-08-04" || days[6].Day != "2025-08-10" {
		t.Fatalf("expected 2025-08-04..2025-08-10, got %s..%s", days[0].Day, days[6].Day)
	}
	if days[0].Weekday != time.Monday.String() {
		t.Fatalf("expected default week to start on Monday, got %s", days[0].Weekday)
	}
	found := 0
	for _, d := range days {
		if d.Day == today {
			found = len(d.Tasks)
			if found == 1 && d.Tasks[0].Title != "New Task" {
				t.Fatalf("unexpected title %q", d.Tasks[0].Title)
			}
		} else if len(d.Tasks) != 0 {
			t.Fatalf("expected no tasks on %s, got %d", d.Day, len(d.Tasks))
		}
	}
	if found != 1 {
		t.Fatalf("expected 1 task on %s, got %d", today, found)
	}
}

func TestWeekOffsetShiftsWindow(t *testing.T) {
	var this, next []dayJSON
	if err := json.Unmarshal([]byte(runCmd(t, "week", "--json")), &this); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal([]byte(runCmd(t, "week", "--json", "--offset", "1")), &next); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if this[0].Day != "2025-08-04" {
		t.Fatalf("expected this week to start 2025-08-04, got %s", this[0].Day)
	}
	if want := "2025-08-11"; next[0].Day != want {
		t.Fatalf("expected next week to start %s, got %s", want, next[0].Day)
	}
}

func TestExportWritesCalendar(t *testing.T) {
	out := runCmd(t, "export", "--add", testToday, "--add", "2025-08-20")
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 1 {
		t.Fatalf("expected only the task inside the week, got %d events:\n%s", n, out)
	}
	for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:New Task", "LOCATION:Madrid", "DTSTART:20250806T160000Z", "DTSTAMP:20250806T100000Z", "END:VCALENDAR"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in export:\n%s", want, out)
		}
	}
}

func TestExportEmptyWeekIsNotAnError(t *testing.T) {
	if out := runCmd(t, "export"); out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}

func TestRejectsBadAddDate(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "config.toml"), "--log-level", "error",
		"week", "--add", "08/03/2025"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestPrintWeek(t *testing.T) {
	s := storage.NewMemory(storage.WithLocation(time.UTC))
	defer s.Close()
	w := calendar.Window{
		WeekStart: time.Monday,
		Now:       func() time.Time { return time.Date(2025, time.August, 6, 9, 0, 0, 0, time.UTC) },
		Location:  time.UTC,
	}
	days := w.CurrentWeek(0)
	tk := task.Placeholder(days[2].Date, task.DefaultPlaceholder())
	if err := s.Add(tk, days[2].Date); err != nil {
		t.Fatalf("add: %v", err)
	}

	var out bytes.Buffer
	if err := printWeek(&out, s, days); err != nil {
		t.Fatalf("print: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "Mon 2025-08-04\n  (no tasks)\n") {
		t.Fatalf("unexpected header:\n%s", got)
	}
	if !strings.Contains(got, "Wed 2025-08-06\n  16:00 - 17:00  New Task @ Madrid\n") {
		t.Fatalf("expected seeded task line:\n%s", got)
	}
}

func TestSetupLogger(t *testing.T) {
	cases := map[string]bool{"debug": true, "INFO": false, "warn": false, "bogus": false}
	for level, debug := range cases {
		l := setupLogger(level)
		if got := l.Enabled(t.Context(), slog.LevelDebug); got != debug {
			t.Fatalf("level %q: debug enabled = %v, want %v", level, got, debug)
		}
	}
}
