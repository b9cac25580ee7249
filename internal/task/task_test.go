package task

import (
	"errors"
	"testing"
	"time"
)

func TestNewAssignsUniqueIDs(t *testing.T) {
	start := time.Date(2025, time.August, 3, 16, 0, 0, 0, time.UTC)
	a := New("a", start, start.Add(time.Hour), "")
	b := New("a", start, start.Add(time.Hour), "")
	if a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %s twice", a.ID)
	}
	if a.SameTask(b) {
		t.Fatalf("expected tasks with different ids to differ")
	}

	edited := a
	edited.Title = "renamed"
	if !a.SameTask(edited) {
		t.Fatalf("expected identity to survive field edits")
	}
}

func TestValidate(t *testing.T) {
	start := time.Date(2025, time.August, 3, 16, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		end     time.Time
		wantErr bool
	}{
		{name: "after", end: start.Add(time.Hour)},
		{name: "equal", end: start, wantErr: true},
		{name: "before", end: start.Add(-time.Minute), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New("x", start, tt.end, "").Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPlaceholderDefaults(t *testing.T) {
	day := time.Date(2025, time.August, 3, 9, 30, 0, 0, time.UTC)
	p := Placeholder(day, DefaultPlaceholder())

	if p.Title != "New Task" {
		t.Fatalf("expected title New Task, got %q", p.Title)
	}
	if p.Location != "Madrid" {
		t.Fatalf("expected location Madrid, got %q", p.Location)
	}
	wantStart := time.Date(2025, time.August, 3, 16, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, time.August, 3, 17, 0, 0, 0, time.UTC)
	if !p.Start.Equal(wantStart) || !p.End.Equal(wantEnd) {
		t.Fatalf("expected %v-%v, got %v-%v", wantStart, wantEnd, p.Start, p.End)
	}
	if got := p.TimeRange(); got != "16:00 - 17:00" {
		t.Fatalf("expected time range 16:00 - 17:00, got %q", got)
	}
}

func TestPlaceholderBadClockFallsBack(t *testing.T) {
	day := time.Date(2025, time.August, 3, 0, 0, 0, 0, time.UTC)
	p := Placeholder(day, Defaults{Title: "x", Start: "noon", End: "25:00"})
	if p.Start.Hour() != 16 || p.End.Hour() != 17 {
		t.Fatalf("expected fallback 16-17, got %s", p.TimeRange())
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{in: "16:00", h: 16},
		{in: " 7:05 ", h: 7, m: 5},
		{in: "23:59", h: 23, m: 59},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		h, m, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error %v", tt.in, err)
			continue
		}
		if h != tt.h || m != tt.m {
			t.Errorf("ParseClock(%q): expected %d:%d, got %d:%d", tt.in, tt.h, tt.m, h, m)
		}
	}
}
