package value_objects

import (
	"fmt"
	"time"
)

// WeekdayLabels are the grid column headers, Sunday first.
var WeekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Month identifies a calendar month for grid navigation.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth validates year and month.
func NewMonth(year int, month time.Month) (Month, error) {
	if year < 1 || year > 9999 || month < time.January || month > time.December {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: year, Month: month}, nil
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil || len(s) != len("2006-01") {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Key returns YYYY-MM.
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) String() string {
	return m.Key()
}

// Label returns a display label such as "May 2024".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.Month.String(), m.Year)
}

// First returns day 1 of the month.
func (m Month) First() Date {
	return Date{Year: m.Year, Month: m.Month, Day: 1}
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return daysIn(m.Year, m.Month)
}

// FirstWeekday is the weekday index (0 = Sunday) of day 1.
func (m Month) FirstWeekday() int {
	return int(m.First().Weekday())
}

// Next returns the following month, rolling into the next year.
func (m Month) Next() Month {
	return m.add(1)
}

// Prev returns the preceding month, rolling into the previous year.
func (m Month) Prev() Month {
	return m.add(-1)
}

// Contains reports whether d falls inside m.
func (m Month) Contains(d Date) bool {
	return d.Year == m.Year && d.Month == m.Month
}

func (m Month) add(n int) Month {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// GridCell is one slot of a month grid. Date is nil for padding cells.
type GridCell struct {
	Date *Date
}

// Empty reports whether the cell is padding.
func (c GridCell) Empty() bool {
	return c.Date == nil
}

// MonthGrid lays out a month Sunday-first. Leading blanks equal the weekday
// of day 1; the grid is padded with blanks to a multiple of 7 and never shows
// days of the neighbouring months.
func MonthGrid(year int, month time.Month) []GridCell {
	m := Month{Year: year, Month: month}
	lead := m.FirstWeekday()
	days := m.Days()
	size := ((lead + days + 6) / 7) * 7

	cells := make([]GridCell, size)
	for i := range cells {
		day := i - lead + 1
		if day < 1 || day > days {
			continue
		}
		d := Date{Year: year, Month: month, Day: day}
		cells[i] = GridCell{Date: &d}
	}
	return cells
}

// Grid is MonthGrid for m.
func (m Month) Grid() []GridCell {
	return MonthGrid(m.Year, m.Month)
}
