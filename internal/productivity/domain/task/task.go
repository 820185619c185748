package task

import (
	"strings"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

// Task is a dated, titled item of work.
type Task struct {
	ID            string
	Title         string
	Note          string
	DueDate       value_objects.Date
	Time          value_objects.Clock
	Done          bool
	CompletedDate *value_objects.Date
	Priority      value_objects.Priority
}

// Clone returns a copy that shares no memory with t.
func (t Task) Clone() Task {
	if t.CompletedDate != nil {
		d := *t.CompletedDate
		t.CompletedDate = &d
	}
	return t
}

// CompletedOn reports whether t is done with a completion stamp of day.
func (t Task) CompletedOn(day value_objects.Date) bool {
	return t.Done && t.CompletedDate != nil && *t.CompletedDate == day
}

// DueOn reports whether t is due on day.
func (t Task) DueOn(day value_objects.Date) bool {
	return t.DueDate == day
}

// Draft is the unvalidated input for a new task. Empty optional fields take
// their defaults: time 23:59, priority medium.
type Draft struct {
	Title    string
	Note     string
	DueDate  string
	Time     string
	Priority string
}

// NewTask validates a draft and returns a pending task without an id.
func NewTask(d Draft) (Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Task{}, invalid("title", ErrEmptyTitle)
	}

	due, err := value_objects.ParseDate(strings.TrimSpace(d.DueDate))
	if err != nil {
		return Task{}, invalid("dueDate", err)
	}

	clock := value_objects.EndOfDay
	if s := strings.TrimSpace(d.Time); s != "" {
		clock, err = value_objects.ParseClock(s)
		if err != nil {
			return Task{}, invalid("time", err)
		}
	}

	priority := value_objects.DefaultPriority
	if s := strings.TrimSpace(d.Priority); s != "" {
		priority, err = value_objects.ParsePriority(s)
		if err != nil {
			return Task{}, invalid("priority", err)
		}
	}

	return Task{
		Title:    title,
		Note:     d.Note,
		DueDate:  due,
		Time:     clock,
		Priority: priority,
	}, nil
}

// Toggle returns the patch that flips t's completion. Marking done stamps
// today; reopening clears the stamp.
func Toggle(t Task, today value_objects.Date) Patch {
	done := !t.Done
	p := Patch{Done: &done}
	if done {
		p.CompletedDate = &today
	} else {
		p.ClearCompletedDate = true
	}
	return p
}
