package ical

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"weekplan/internal/calendar"
	"weekplan/internal/storage"
	"weekplan/internal/task"
)

func TestEncodeWeek(t *testing.T) {
	s := storage.NewMemory(storage.WithLocation(time.UTC))
	w := calendar.Window{
		WeekStart: time.Monday,
		Now:       func() time.Time { return time.Date(2025, time.August, 6, 12, 0, 0, 0, time.UTC) },
		Location:  time.UTC,
	}
	days := w.CurrentWeek(0)

	standup := task.Placeholder(days[0].Date, task.Defaults{Title: "Standup", Start: "09:00", End: "09:15"})
	review := task.Placeholder(days[4].Date, task.DefaultPlaceholder())
	outside := task.Placeholder(days[6].Date.AddDate(0, 0, 1), task.DefaultPlaceholder())
	for _, add := range []struct {
		t task.Task
		d time.Time
	}{{standup, days[0].Date}, {review, days[4].Date}, {outside, outside.Start}} {
		if err := s.Add(add.t, add.d); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	var buf bytes.Buffer
	stamp := time.Date(2025, time.August, 6, 12, 0, 0, 0, time.UTC)
	if err := Encode(&buf, s, days, stamp); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()

	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Fatalf("expected 2 events, got %d:\n%s", n, out)
	}
	for _, want := range []string{
		"PRODID:" + ProductID,
		"UID:" + standup.ID.String(),
		"SUMMARY:Standup",
		"DTSTART:20250804T090000Z",
		"DTEND:20250804T091500Z",
		"UID:" + review.ID.String(),
		"LOCATION:Madrid",
		"DTSTART:20250808T160000Z",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, outside.ID.String()) {
		t.Fatalf("expected task outside the week to be skipped:\n%s", out)
	}
	if strings.Count(out, "LOCATION:") != 1 {
		t.Fatalf("expected LOCATION only for tasks that have one:\n%s", out)
	}
}

func TestEncodeEmptyWeek(t *testing.T) {
	s := storage.NewMemory()
	days := calendar.Window{}.CurrentWeek(0)
	var buf bytes.Buffer
	if err := Encode(&buf, s, days, time.Now()); !errors.Is(err, ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", buf.String())
	}
}
