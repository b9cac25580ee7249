// Package ical renders planner weeks as iCalendar documents.
package ical

import (
	"errors"
	"fmt"
	"io"
	"time"

	goical "github.com/emersion/go-ical"

	"weekplan/internal/calendar"
	"weekplan/internal/task"
)

const ProductID = "-//weekplan//EN"

// ErrNoEvents is returned by Encode when the days hold no tasks.
var ErrNoEvents = errors.New("ical: no tasks in range")

// TaskSource is the read side of the task store.
type TaskSource interface {
	TasksFor(date time.Time) ([]task.Task, error)
}

// Calendar builds a VCALENDAR holding one VEVENT per task on the given days.
// stamp is written as DTSTAMP on every event.
func Calendar(src TaskSource, days []calendar.Day, stamp time.Time) (*goical.Calendar, error) {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, ProductID)

	for _, d := range days {
		tasks, err := src.TasksFor(d.Date)
		if err != nil {
			return nil, fmt.Errorf("ical: tasks for %s: %w", d.ID, err)
		}
		for _, t := range tasks {
			cal.Children = append(cal.Children, toEvent(t, stamp))
		}
	}
	return cal, nil
}

// Encode writes the iCalendar document for days to w.
func Encode(w io.Writer, src TaskSource, days []calendar.Day, stamp time.Time) error {
	cal, err := Calendar(src, days, stamp)
	if err != nil {
		return err
	}
	// An empty VCALENDAR is rejected by the encoder.
	if len(cal.Children) == 0 {
		return ErrNoEvents
	}
	if err := goical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("ical: encode: %w", err)
	}
	return nil
}

func toEvent(t task.Task, stamp time.Time) *goical.Component {
	ev := goical.NewComponent(goical.CompEvent)
	ev.Props.SetText(goical.PropUID, t.ID.String())
	ev.Props.SetText(goical.PropSummary, t.Title)
	ev.Props.SetDateTime(goical.PropDateTimeStamp, stamp.UTC())
	ev.Props.SetDateTime(goical.PropDateTimeStart, t.Start.UTC())
	ev.Props.SetDateTime(goical.PropDateTimeEnd, t.End.UTC())
	if t.Location != "" {
		ev.Props.SetText(goical.PropLocation, t.Location)
	}
	return ev
}
