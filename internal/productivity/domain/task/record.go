package task

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

// Record status values used by the remote store in place of a done flag.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Record is the raw document shape kept by a gateway. Optional fields may be
// empty; FromRecord fills in the defaults.
type Record struct {
	ID            string `json:"id,omitempty" firestore:"-"`
	Title         string `json:"title" firestore:"title"`
	Note          string `json:"note,omitempty" firestore:"note,omitempty"`
	DueDate       string `json:"dueDate" firestore:"dueDate"`
	Time          string `json:"time,omitempty" firestore:"time,omitempty"`
	Status        string `json:"status,omitempty" firestore:"status,omitempty"`
	CompletedDate string `json:"completedDate,omitempty" firestore:"completedDate,omitempty"`
	Priority      string `json:"priority,omitempty" firestore:"priority,omitempty"`
}

// ToRecord converts a task to its document form.
func ToRecord(t Task) Record {
	r := Record{
		ID:       t.ID,
		Title:    t.Title,
		Note:     t.Note,
		DueDate:  t.DueDate.Key(),
		Time:     t.Time.String(),
		Status:   StatusPending,
		Priority: t.Priority.String(),
	}
	if t.Done {
		r.Status = StatusCompleted
		if t.CompletedDate != nil {
			r.CompletedDate = t.CompletedDate.Key()
		}
	}
	return r
}

// FromRecord converts a document to a task. Missing status means pending,
// missing time means 23:59 and missing priority means medium. A completion
// date on a pending record is ignored.
func FromRecord(r Record) (Task, error) {
	t, err := NewTask(Draft{
		Title:    r.Title,
		Note:     r.Note,
		DueDate:  r.DueDate,
		Time:     r.Time,
		Priority: r.Priority,
	})
	if err != nil {
		return Task{}, err
	}
	t.ID = r.ID

	switch strings.TrimSpace(r.Status) {
	case "", StatusPending:
	case StatusCompleted:
		t.Done = true
		if r.CompletedDate != "" {
			d, err := value_objects.ParseDate(r.CompletedDate)
			if err != nil {
				return Task{}, invalid("completedDate", err)
			}
			t.CompletedDate = &d
		}
	default:
		return Task{}, invalid("status", ErrInvalidStatus)
	}
	return t, nil
}

// RecordPatch is a partial document update. Only non-nil fields are sent.
// ClearCompletedDate removes the completion date from the document.
type RecordPatch struct {
	Title              *string
	Note               *string
	DueDate            *string
	Time               *string
	Status             *string
	CompletedDate      *string
	Priority           *string
	ClearCompletedDate bool
}

// PatchToRecord converts a domain patch to its document form.
func PatchToRecord(p Patch) RecordPatch {
	var rp RecordPatch
	if p.Title != nil {
		s := strings.TrimSpace(*p.Title)
		rp.Title = &s
	}
	if p.Note != nil {
		s := *p.Note
		rp.Note = &s
	}
	if p.DueDate != nil {
		s := p.DueDate.Key()
		rp.DueDate = &s
	}
	if p.Time != nil {
		s := p.Time.String()
		rp.Time = &s
	}
	if p.Priority != nil {
		s := p.Priority.String()
		rp.Priority = &s
	}
	if p.Done != nil {
		s := StatusPending
		if *p.Done {
			s = StatusCompleted
		}
		rp.Status = &s
	}
	if p.CompletedDate != nil {
		s := p.CompletedDate.Key()
		rp.CompletedDate = &s
	}
	if p.ClearCompletedDate || (p.Done != nil && !*p.Done) {
		rp.CompletedDate = nil
		rp.ClearCompletedDate = true
	}
	return rp
}

// IsEmpty reports whether the patch changes nothing.
func (p RecordPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields returns the changed fields keyed by document name. A cleared
// completion date maps to nil.
func (p RecordPatch) Fields() map[string]any {
	fields := make(map[string]any)
	set := func(name string, v *string) {
		if v != nil {
			fields[name] = *v
		}
	}
	set("title", p.Title)
	set("note", p.Note)
	set("dueDate", p.DueDate)
	set("time", p.Time)
	set("status", p.Status)
	set("completedDate", p.CompletedDate)
	set("priority", p.Priority)
	if p.ClearCompletedDate {
		fields["completedDate"] = nil
	}
	return fields
}

// Apply merges p into r.
func (p RecordPatch) Apply(r Record) Record {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Note != nil {
		r.Note = *p.Note
	}
	if p.DueDate != nil {
		r.DueDate = *p.DueDate
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.CompletedDate != nil {
		r.CompletedDate = *p.CompletedDate
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.ClearCompletedDate {
		r.CompletedDate = ""
	}
	return r
}

// MarshalJSON encodes the patch as a merge document: absent fields are
// omitted and a cleared completion date is written as null.
func (p RecordPatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Fields())
}

// UnmarshalJSON decodes a merge document. A null completion date clears it.
func (p *RecordPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = RecordPatch{}
	targets := map[string]**string{
		"title":         &p.Title,
		"note":          &p.Note,
		"dueDate":       &p.DueDate,
		"time":          &p.Time,
		"status":        &p.Status,
		"completedDate": &p.CompletedDate,
		"priority":      &p.Priority,
	}
	for name, value := range raw {
		target, ok := targets[name]
		if !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			if name == "completedDate" {
				p.ClearCompletedDate = true
			}
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return invalid(name, err)
		}
		*target = &s
	}
	return nil
}

// Validate checks every present field the way NewTask and FromRecord would.
func (p RecordPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("title", ErrEmptyTitle)
	}
	if p.DueDate != nil {
		if _, err := value_objects.ParseDate(*p.DueDate); err != nil {
			return invalid("dueDate", err)
		}
	}
	if p.Time != nil {
		if _, err := value_objects.ParseClock(*p.Time); err != nil {
			return invalid("time", err)
		}
	}
	if p.Priority != nil {
		if _, err := value_objects.ParsePriority(*p.Priority); err != nil {
			return invalid("priority", err)
		}
	}
	if p.Status != nil && *p.Status != StatusPending && *p.Status != StatusCompleted {
		return invalid("status", ErrInvalidStatus)
	}
	if p.CompletedDate != nil {
		if _, err := value_objects.ParseDate(*p.CompletedDate); err != nil {
			return invalid("completedDate", err)
		}
	}
	return nil
}
