package caldav

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
)

// PropXTaskcal marks events written by taskcal so that --delete-missing
// never touches anything else in the calendar.
const PropXTaskcal = "X-TASKCAL"

// EventDuration is the length of an exported task event.
const EventDuration = 30 * time.Minute

const productID = "-//taskcal//Task Export//EN"

// WriteICS encodes tasks as one VCALENDAR with a VEVENT per task.
func WriteICS(w io.Writer, tasks []task.Task, loc *time.Location, now time.Time) error {
	cal := calendarOf()
	for _, t := range tasks {
		cal.Children = append(cal.Children, eventFor(t, loc, now).Component)
	}
	return ical.NewEncoder(w).Encode(cal)
}

// ToCalendar is the calendar object stored for a single task.
func ToCalendar(t task.Task, loc *time.Location, now time.Time) *ical.Calendar {
	cal := calendarOf()
	cal.Children = append(cal.Children, eventFor(t, loc, now).Component)
	return cal
}

// Start is the instant of the task's due date and time in loc, or in the
// local zone when loc is nil.
func Start(t task.Task, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	d := t.DueDate
	return time.Date(d.Year, d.Month, d.Day, t.Time.Hour, t.Time.Minute, 0, 0, loc)
}

func calendarOf() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

func eventFor(t task.Task, loc *time.Location, now time.Time) *ical.Event {
	start := Start(t, loc).UTC()

	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, t.ID)
	ev.Props.SetText(ical.PropSummary, t.Title)
	ev.Props.SetText(ical.PropDescription, describe(t))
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeStart, start)
	ev.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(EventDuration))

	marker := ical.NewProp(PropXTaskcal)
	marker.Value = "1"
	ev.Props.Set(marker)
	return ev
}

// describe renders the note, priority and completion state.
func describe(t task.Task) string {
	var lines []string
	if t.Note != "" {
		lines = append(lines, t.Note, "")
	}
	lines = append(lines, fmt.Sprintf("Priority: %s", t.Priority))
	switch {
	case !t.Done:
		lines = append(lines, "Status: Pending")
	case t.CompletedDate != nil:
		lines = append(lines, "Status: Completed on "+t.CompletedDate.Key())
	default:
		lines = append(lines, "Status: Completed")
	}
	return strings.Join(lines, "\n")
}

// exportedByTaskcal reports whether any event in cal carries the marker.
func exportedByTaskcal(cal *ical.Calendar) bool {
	if cal == nil {
		return false
	}
	for _, ev := range cal.Events() {
		if p := ev.Props.Get(PropXTaskcal); p != nil && p.Value == "1" {
			return true
		}
	}
	return false
}
