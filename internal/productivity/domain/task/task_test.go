package task_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	tsk, err := task.NewTask(task.Draft{
		Title:   "  Buy milk ",
		DueDate: "2024-05-01",
		Time:    "18:00",
	})

	require.NoError(t, err)
	assert.Empty(t, tsk.ID)
	assert.Equal(t, "Buy milk", tsk.Title)
	assert.Equal(t, "2024-05-01", tsk.DueDate.Key())
	assert.Equal(t, "18:00", tsk.Time.String())
	assert.False(t, tsk.Done)
	assert.Nil(t, tsk.CompletedDate)
	assert.Equal(t, value_objects.PriorityMedium, tsk.Priority)
}

func TestNewTask_Defaults(t *testing.T) {
	tsk, err := task.NewTask(task.Draft{Title: "Gym", DueDate: "2024-05-01"})

	require.NoError(t, err)
	assert.Equal(t, value_objects.EndOfDay, tsk.Time)
	assert.Equal(t, value_objects.DefaultPriority, tsk.Priority)
	assert.Empty(t, tsk.Note)
}

func TestNewTask_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		draft task.Draft
		field string
	}{
		{"empty title", task.Draft{Title: "", DueDate: "2024-05-01"}, "title"},
		{"blank title", task.Draft{Title: " \t\n", DueDate: "2024-05-01"}, "title"},
		{"missing due date", task.Draft{Title: "x"}, "dueDate"},
		{"impossible due date", task.Draft{Title: "x", DueDate: "2023-02-29"}, "dueDate"},
		{"bad time", task.Draft{Title: "x", DueDate: "2024-05-01", Time: "25:00"}, "time"},
		{"bad priority", task.Draft{Title: "x", DueDate: "2024-05-01", Priority: "urgent"}, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := task.NewTask(tt.draft)

			require.Error(t, err)
			assert.True(t, task.IsValidation(err))
			var ve *task.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestToggle_Twice(t *testing.T) {
	today := value_objects.MustDate(2024, time.May, 2)
	original, err := task.NewTask(task.Draft{Title: "Read", Note: "ch. 3", DueDate: "2024-05-01", Time: "07:30", Priority: "high"})
	require.NoError(t, err)
	original.ID = "t1"

	done := task.Toggle(original, today).Apply(original)
	assert.True(t, done.Done)
	require.NotNil(t, done.CompletedDate)
	assert.Equal(t, today, *done.CompletedDate)

	reopened := task.Toggle(done, today).Apply(done)
	assert.Equal(t, original, reopened)
}

func TestTask_Clone(t *testing.T) {
	d := value_objects.MustDate(2024, time.May, 1)
	orig := task.Task{ID: "a", Done: true, CompletedDate: &d}

	clone := orig.Clone()
	clone.CompletedDate.Day = 9

	assert.Equal(t, 1, orig.CompletedDate.Day)
}

func TestPatch_Apply(t *testing.T) {
	d := value_objects.MustDate(2024, time.May, 1)
	base := task.Task{ID: "a", Title: "old", DueDate: d, Time: value_objects.EndOfDay, Priority: value_objects.PriorityLow}

	title := "new"
	clock := value_objects.Clock{Hour: 9}
	got := task.Patch{Title: &title, Time: &clock}.Apply(base)

	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "09:00", got.Time.String())
	assert.Equal(t, d, got.DueDate)
	assert.Equal(t, value_objects.PriorityLow, got.Priority)
	assert.Equal(t, "old", base.Title)
}

func TestPatch_ReopenClearsCompletion(t *testing.T) {
	d := value_objects.MustDate(2024, time.May, 1)
	base := task.Task{ID: "a", Title: "x", Done: true, CompletedDate: &d}

	done := false
	got := task.Patch{Done: &done}.Apply(base)

	assert.False(t, got.Done)
	assert.Nil(t, got.CompletedDate)
}

func TestPatch_Validate(t *testing.T) {
	blank := "  "
	d := value_objects.MustDate(2024, time.May, 1)
	no := false
	bad := value_objects.Priority(9)

	tests := []struct {
		name  string
		patch task.Patch
	}{
		{"empty", task.Patch{}},
		{"blank title", task.Patch{Title: &blank}},
		{"completion without done", task.Patch{CompletedDate: &d}},
		{"completion on reopen", task.Patch{Done: &no, CompletedDate: &d}},
		{"bad priority", task.Patch{Priority: &bad}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, task.IsValidation(tt.patch.Validate()))
		})
	}
}

func TestParsePatch(t *testing.T) {
	due := "2024-06-01"
	clock := "08:15"
	prio := "HIGH"

	p, err := task.ParsePatch(task.PatchInput{DueDate: &due, Time: &clock, Priority: &prio})

	require.NoError(t, err)
	assert.Equal(t, []string{"dueDate", "time", "priority"}, p.Fields())
	assert.Equal(t, value_objects.PriorityHigh, *p.Priority)

	badDate := "2024-06-31"
	_, err = task.ParsePatch(task.PatchInput{DueDate: &badDate})
	assert.ErrorIs(t, err, value_objects.ErrInvalidDate)

	_, err = task.ParsePatch(task.PatchInput{})
	assert.ErrorIs(t, err, task.ErrEmptyPatch)
}

func TestReplacement(t *testing.T) {
	d := value_objects.MustDate(2024, time.May, 1)
	want := task.Task{ID: "a", Title: "x", Note: "n", DueDate: d, Time: value_objects.EndOfDay, Done: true, CompletedDate: &d, Priority: value_objects.PriorityHigh}
	other := task.Task{ID: "a", Title: "y", DueDate: d.AddDays(3), Priority: value_objects.PriorityLow}

	assert.Equal(t, want, task.Replacement(want).Apply(other))
}
