package value_objects

import (
	"errors"
	"fmt"
)

var ErrInvalidClock = errors.New("invalid time of day")

// Clock is a 24-hour local time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// EndOfDay is the default time for tasks created without one.
var EndOfDay = Clock{Hour: 23, Minute: 59}

// NewClock validates hour and minute.
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, ErrInvalidClock
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// ParseClock parses a strict HH:MM string.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	for i, c := range []byte(s) {
		if i == 2 {
			continue
		}
		if c < '0' || c > '9' {
			return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	c, err := NewClock(h, m)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return c, nil
}

// String returns the zero-padded HH:MM form, which sorts lexicographically.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Before reports whether c is earlier in the day than other.
func (c Clock) Before(other Clock) bool {
	return c.Hour*60+c.Minute < other.Hour*60+other.Minute
}

// MarshalText encodes c as HH:MM.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes HH:MM.
func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
