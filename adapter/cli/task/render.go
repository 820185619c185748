package task

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/felixgeelhaar/taskcal/internal/productivity/application/queries"
	taskDomain "github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

// shortID is the number of id characters shown in listings.
const shortID = 8

const cellWidth = len("[31]*")

type printer struct {
	w        io.Writer
	showID   bool
	showDate bool
	today    value_objects.Date
}

func (p printer) titleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	_, _ = t.Fprint(p.w, title)
	_, _ = c.Fprintf(p.w, " - %d", count)
	if count == 1 {
		_, _ = c.Fprintln(p.w, " task")
	} else {
		_, _ = c.Fprintln(p.w, " tasks")
	}
}

func (p printer) tasks(tasks []taskDomain.Task) {
	if len(tasks) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprint(p.w, " none\n\n")
		return
	}

	tbl := uitable.New()
	tbl.Separator = " "
	for _, t := range tasks {
		tbl.AddRow(p.row(t)...)
	}
	_, _ = fmt.Fprintln(p.w, tbl)
	_, _ = fmt.Fprintln(p.w)
}

func (p printer) row(t taskDomain.Task) []interface{} {
	var row []interface{}
	if p.showID {
		row = append(row, color.New(color.FgHiYellow, color.Faint).Sprint(abbrev(t.ID)))
	}
	row = append(row, checkbox(t))
	if p.showDate {
		row = append(row, p.dueLabel(t))
	}
	row = append(row, t.Time.String(), priorityBadge(t.Priority))

	title := color.New()
	if t.Done {
		title = color.New(color.Faint, color.CrossedOut)
	}
	row = append(row, title.Sprint(t.Title))
	return row
}

// details prints one block per task with its note and completion status.
func (p printer) details(tasks []taskDomain.Task) {
	if len(tasks) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprint(p.w, " none\n\n")
		return
	}

	faint := color.New(color.Faint)
	for _, t := range tasks {
		line := fmt.Sprintf("%s %s %s %s", checkbox(t), t.Time, priorityBadge(t.Priority), t.Title)
		_, _ = fmt.Fprintln(p.w, line)
		if p.showID {
			_, _ = faint.Fprintf(p.w, "    id: %s\n", t.ID)
		}
		if t.Note != "" {
			_, _ = faint.Fprintf(p.w, "    %s\n", t.Note)
		}
		_, _ = faint.Fprintf(p.w, "    %s\n", statusText(t))
	}
	_, _ = fmt.Fprintln(p.w)
}

func (p printer) month(view queries.MonthView) {
	width := cellWidth * 7
	label := view.Label
	pad := (width - len(label)) / 2
	if pad < 0 {
		pad = 0
	}
	_, _ = color.New(color.Bold).Fprintf(p.w, "%s%s\n", strings.Repeat(" ", pad), label)

	head := color.New(color.Faint)
	for _, wd := range view.Weekdays {
		_, _ = head.Fprintf(p.w, "%-*s", cellWidth, wd)
	}
	_, _ = fmt.Fprintln(p.w)

	for _, week := range view.Rows() {
		for _, cell := range week {
			p.cell(cell)
		}
		_, _ = fmt.Fprintln(p.w)
	}
	_, _ = fmt.Fprintln(p.w)
}

func (p printer) cell(c queries.DayCell) {
	if c.Empty() {
		_, _ = fmt.Fprint(p.w, strings.Repeat(" ", cellWidth))
		return
	}

	left, right, marker := " ", " ", " "
	if c.Selected {
		left, right = "[", "]"
	}
	if c.HasEvents {
		marker = "*"
	}

	var attrs []color.Attribute
	switch {
	case c.Selected:
		attrs = append(attrs, color.Bold, color.FgHiWhite)
	case c.HasEvents:
		attrs = append(attrs, color.FgHiYellow)
	default:
		attrs = append(attrs, color.Faint)
	}
	if *c.Date == p.today {
		attrs = append(attrs, color.Underline)
	}

	_, _ = fmt.Fprint(p.w, left)
	_, _ = color.New(attrs...).Fprintf(p.w, "%2d", c.Day)
	_, _ = fmt.Fprint(p.w, right)
	_, _ = color.New(color.FgHiYellow).Fprint(p.w, marker)
}

func (p printer) dueLabel(t taskDomain.Task) string {
	label := t.DueDate.Key()
	switch {
	case t.Done:
		return label
	case t.DueDate == p.today:
		return color.New(color.FgCyan).Sprint(label)
	case t.DueDate.Before(p.today):
		return color.New(color.FgRed).Sprint(label)
	default:
		return label
	}
}

func abbrev(id string) string {
	if len(id) > shortID {
		return id[:shortID]
	}
	return id
}

func checkbox(t taskDomain.Task) string {
	if t.Done {
		return "[x]"
	}
	return "[ ]"
}

func priorityBadge(p value_objects.Priority) string {
	switch p {
	case value_objects.PriorityHigh:
		return color.New(color.FgRed).Sprint("(!)")
	case value_objects.PriorityMedium:
		return color.New(color.FgYellow).Sprint("(~)")
	case value_objects.PriorityLow:
		return color.New(color.FgBlue).Sprint("(.)")
	default:
		return "   "
	}
}

func statusText(t taskDomain.Task) string {
	if !t.Done {
		return "Pending"
	}
	if t.CompletedDate != nil {
		return "Completed on " + t.CompletedDate.Key()
	}
	return "Completed"
}
