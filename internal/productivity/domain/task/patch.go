package task

import (
	"strings"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

// Patch is a partial update. Nil fields are left as they are.
type Patch struct {
	Title              *string
	Note               *string
	DueDate            *value_objects.Date
	Time               *value_objects.Clock
	Priority           *value_objects.Priority
	Done               *bool
	CompletedDate      *value_objects.Date
	ClearCompletedDate bool
}

// PatchInput is the unvalidated, string-typed form of a Patch.
type PatchInput struct {
	Title    *string
	Note     *string
	DueDate  *string
	Time     *string
	Priority *string
}

// ParsePatch validates string input into a Patch.
func ParsePatch(in PatchInput) (Patch, error) {
	var p Patch
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		p.Title = &title
	}
	if in.Note != nil {
		note := *in.Note
		p.Note = &note
	}
	if in.DueDate != nil {
		d, err := value_objects.ParseDate(strings.TrimSpace(*in.DueDate))
		if err != nil {
			return Patch{}, invalid("dueDate", err)
		}
		p.DueDate = &d
	}
	if in.Time != nil {
		c, err := value_objects.ParseClock(strings.TrimSpace(*in.Time))
		if err != nil {
			return Patch{}, invalid("time", err)
		}
		p.Time = &c
	}
	if in.Priority != nil {
		pr, err := value_objects.ParsePriority(*in.Priority)
		if err != nil {
			return Patch{}, invalid("priority", err)
		}
		p.Priority = &pr
	}
	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// Validate checks the patch against the task invariants.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return invalid("patch", ErrEmptyPatch)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("title", ErrEmptyTitle)
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return invalid("priority", value_objects.ErrInvalidPriority)
	}
	if p.CompletedDate != nil && p.ClearCompletedDate {
		return invalid("completedDate", ErrInvalidCompletion)
	}
	if p.CompletedDate != nil && (p.Done == nil || !*p.Done) {
		return invalid("completedDate", ErrInvalidCompletion)
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Note == nil && p.DueDate == nil && p.Time == nil &&
		p.Priority == nil && p.Done == nil && p.CompletedDate == nil && !p.ClearCompletedDate
}

// Apply merges p into t. Reopening a task always drops its completion stamp.
func (p Patch) Apply(t Task) Task {
	t = t.Clone()
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Time != nil {
		t.Time = *p.Time
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	if p.CompletedDate != nil {
		d := *p.CompletedDate
		t.CompletedDate = &d
	}
	if p.ClearCompletedDate || !t.Done {
		t.CompletedDate = nil
	}
	return t
}

// Fields lists the names of the fields p changes, in record naming.
func (p Patch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Note != nil {
		fields = append(fields, "note")
	}
	if p.DueDate != nil {
		fields = append(fields, "dueDate")
	}
	if p.Time != nil {
		fields = append(fields, "time")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.Done != nil {
		fields = append(fields, "status")
	}
	if p.CompletedDate != nil || p.ClearCompletedDate {
		fields = append(fields, "completedDate")
	}
	return fields
}

// Replacement returns the patch that turns any task into t.
func Replacement(t Task) Patch {
	t = t.Clone()
	p := Patch{
		Title:    &t.Title,
		Note:     &t.Note,
		DueDate:  &t.DueDate,
		Time:     &t.Time,
		Priority: &t.Priority,
		Done:     &t.Done,
	}
	if t.CompletedDate != nil {
		p.CompletedDate = t.CompletedDate
	} else {
		p.ClearCompletedDate = true
	}
	return p
}
