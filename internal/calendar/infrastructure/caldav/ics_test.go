package caldav

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

var exportNow = time.Date(2024, time.May, 2, 8, 0, 0, 0, time.UTC)

func sampleTask(t *testing.T) task.Task {
	t.Helper()
	tk, err := task.NewTask(task.Draft{
		Title:    "Dentist",
		Note:     "Bring insurance card",
		DueDate:  "2024-05-20",
		Time:     "14:30",
		Priority: "high",
	})
	require.NoError(t, err)
	tk.ID = "task-1"
	return tk
}

func TestToCalendar(t *testing.T) {
	cal := ToCalendar(sampleTask(t), time.UTC, exportNow)
	events := cal.Events()
	require.Len(t, events, 1)
	ev := events[0]

	uid, err := ev.Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "task-1", uid)

	summary, err := ev.Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", summary)

	start, err := ev.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 20, 14, 30, 0, 0, time.UTC), start)
	end, err := ev.DateTimeEnd(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, EventDuration, end.Sub(start))

	desc, err := ev.Props.Text(ical.PropDescription)
	require.NoError(t, err)
	assert.Equal(t, "Bring insurance card\n\nPriority: high\nStatus: Pending", desc)

	assert.True(t, exportedByTaskcal(cal))
}

func TestDescribe_Completed(t *testing.T) {
	tk := sampleTask(t)
	tk.Note = ""
	tk.Done = true
	assert.Equal(t, "Priority: high\nStatus: Completed", describe(tk))

	done := value_objects.MustDate(2024, time.May, 19)
	tk.CompletedDate = &done
	assert.Equal(t, "Priority: high\nStatus: Completed on 2024-05-19", describe(tk))
}

func TestStart_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, time.Date(2024, time.May, 20, 12, 30, 0, 0, time.UTC), Start(sampleTask(t), loc).UTC())
}

func TestWriteICS(t *testing.T) {
	first := sampleTask(t)
	second := sampleTask(t)
	second.ID = "task-2"
	second.Title = "Pay rent"

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, []task.Task{first, second}, time.UTC, exportNow))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "SUMMARY:Pay rent")
	assert.Contains(t, out, "X-TASKCAL:1")

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	require.NoError(t, err)
	assert.Len(t, cal.Events(), 2)
}

func TestExportedByTaskcal(t *testing.T) {
	assert.False(t, exportedByTaskcal(nil))
	assert.False(t, exportedByTaskcal(ical.NewCalendar()))
	assert.False(t, exportedByTaskcal(foreignEvent()))
}
