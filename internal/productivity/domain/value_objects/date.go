package value_objects

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical day key layout.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("invalid calendar date")
	ErrInvalidMonth = errors.New("invalid calendar month")
)

// Date is a local calendar day with no time-of-day or zone attached.
// Its Key is the only equality basis for "same day" comparisons.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates y/m/d against the proleptic Gregorian calendar.
func NewDate(year int, month time.Month, day int) (Date, error) {
	if year < 1 || year > 9999 || month < time.January || month > time.December {
		return Date{}, ErrInvalidDate
	}
	if day < 1 || day > daysIn(year, month) {
		return Date{}, ErrInvalidDate
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// MustDate is NewDate for constants and tests.
func MustDate(year int, month time.Month, day int) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(fmt.Sprintf("value_objects: %04d-%02d-%02d: %v", year, month, day, err))
	}
	return d
}

// ParseDate parses a strict, zero-padded YYYY-MM-DD key.
func ParseDate(s string) (Date, error) {
	if len(s) != len(DateLayout) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the local calendar day reported by now.
func Today(now func() time.Time) Date {
	if now == nil {
		now = time.Now
	}
	return DateOf(now().Local())
}

// Key returns the canonical YYYY-MM-DD key.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) String() string {
	return d.Key()
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time anchors d at midnight UTC. UTC avoids DST gaps during day arithmetic.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays offsets d by n calendar days; n may be negative.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of week, 0 = Sunday.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.Key() < other.Key()
}

// MonthOf returns the month containing d.
func (d Date) MonthOf() Month {
	return Month{Year: d.Year, Month: d.Month}
}

// MarshalText encodes d as its key.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Key()), nil
}

// UnmarshalText decodes a YYYY-MM-DD key.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
