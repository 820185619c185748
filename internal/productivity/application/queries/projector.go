package queries

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

// ErrInvalidDayOrder is returned for an unknown day ordering.
var ErrInvalidDayOrder = errors.New("invalid day order")

// DayOrder selects how the per-day view is ordered. It is chosen once per
// process and never changes between renders.
type DayOrder string

const (
	DayOrderInsertion DayOrder = "insertion"
	DayOrderTime      DayOrder = "time"
)

// ParseDayOrder parses a day order name. Empty means insertion order.
func ParseDayOrder(s string) (DayOrder, error) {
	switch DayOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", DayOrderInsertion:
		return DayOrderInsertion, nil
	case DayOrderTime:
		return DayOrderTime, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDayOrder, s)
	}
}

// Cursor is the caller-held navigation state.
type Cursor struct {
	Selected value_objects.Date
	Month    value_objects.Month
}

// NewCursor selects day and shows its month.
func NewCursor(day value_objects.Date) Cursor {
	return Cursor{Selected: day, Month: day.MonthOf()}
}

// NextMonth moves the displayed month forward, keeping the selection.
func (c Cursor) NextMonth() Cursor {
	c.Month = c.Month.Next()
	return c
}

// PrevMonth moves the displayed month back, keeping the selection.
func (c Cursor) PrevMonth() Cursor {
	c.Month = c.Month.Prev()
	return c
}

// Select picks a day without moving the displayed month.
func (c Cursor) Select(day value_objects.Date) Cursor {
	c.Selected = day
	return c
}

// DayCell is one month grid cell. Empty cells have a nil Date.
type DayCell struct {
	Date      *value_objects.Date
	Key       string
	Day       int
	Selected  bool
	HasEvents bool
}

// Empty reports whether the cell is padding.
func (c DayCell) Empty() bool {
	return c.Date == nil
}

// MonthView is a month grid annotated with selection and event markers.
type MonthView struct {
	Month    value_objects.Month
	Label    string
	Weekdays [7]string
	Cells    []DayCell
}

// Rows splits the cells into weeks.
func (v MonthView) Rows() [][]DayCell {
	rows := make([][]DayCell, 0, len(v.Cells)/7)
	for i := 0; i+7 <= len(v.Cells); i += 7 {
		rows = append(rows, v.Cells[i:i+7])
	}
	return rows
}

// Dashboard holds every view derived from one snapshot.
type Dashboard struct {
	Today       value_objects.Date
	Cursor      Cursor
	Undone      []task.Task
	UndoneCount int
	Mission     []task.Task
	Day         []task.Task
	Month       MonthView
}

// Projector derives read models from a task snapshot. It holds no task
// state and every method is pure.
type Projector struct {
	dayOrder DayOrder
}

// NewProjector creates a projector with the given per-day ordering.
func NewProjector(order DayOrder) *Projector {
	if order == "" {
		order = DayOrderInsertion
	}
	return &Projector{dayOrder: order}
}

// DayOrder returns the configured per-day ordering.
func (p *Projector) DayOrder() DayOrder {
	return p.dayOrder
}

// Undone returns the tasks that are not done, in store order.
func (p *Projector) Undone(tasks []task.Task) []task.Task {
	return filter(tasks, func(t task.Task) bool { return !t.Done })
}

// UndoneCount returns the size of the undone view.
func (p *Projector) UndoneCount(tasks []task.Task) int {
	n := 0
	for _, t := range tasks {
		if !t.Done {
			n++
		}
	}
	return n
}

// Mission returns undone tasks plus tasks completed today, by time of day.
// Tasks at the same time keep store order.
func (p *Projector) Mission(tasks []task.Task, today value_objects.Date) []task.Task {
	mission := filter(tasks, func(t task.Task) bool {
		return !t.Done || t.CompletedOn(today)
	})
	sortByTime(mission)
	return mission
}

// ForDay returns the tasks due on day.
func (p *Projector) ForDay(tasks []task.Task, day value_objects.Date) []task.Task {
	due := filter(tasks, func(t task.Task) bool { return t.DueOn(day) })
	if p.dayOrder == DayOrderTime {
		sortByTime(due)
	}
	return due
}

// Month builds the grid for the cursor's month.
func (p *Projector) Month(tasks []task.Task, cursor Cursor) MonthView {
	busy := make(map[value_objects.Date]struct{}, len(tasks))
	for _, t := range tasks {
		busy[t.DueDate] = struct{}{}
	}

	grid := cursor.Month.Grid()
	view := MonthView{
		Month:    cursor.Month,
		Label:    cursor.Month.Label(),
		Weekdays: value_objects.WeekdayLabels,
		Cells:    make([]DayCell, len(grid)),
	}
	for i, c := range grid {
		if c.Empty() {
			continue
		}
		d := *c.Date
		_, has := busy[d]
		view.Cells[i] = DayCell{
			Date:      &d,
			Key:       d.Key(),
			Day:       d.Day,
			Selected:  d == cursor.Selected,
			HasEvents: has,
		}
	}
	return view
}

// Dashboard derives every view from one snapshot.
func (p *Projector) Dashboard(tasks []task.Task, cursor Cursor, today value_objects.Date) Dashboard {
	undone := p.Undone(tasks)
	return Dashboard{
		Today:       today,
		Cursor:      cursor,
		Undone:      undone,
		UndoneCount: len(undone),
		Mission:     p.Mission(tasks, today),
		Day:         p.ForDay(tasks, cursor.Selected),
		Month:       p.Month(tasks, cursor),
	}
}

func filter(tasks []task.Task, keep func(task.Task) bool) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func sortByTime(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Time.Before(tasks[j].Time)
	})
}
