package value_objects

import (
	"errors"
	"fmt"
	"strings"
)

// Priority orders tasks by urgency. The zero value is not a priority.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

// DefaultPriority is used for drafts and records without one.
const DefaultPriority = PriorityMedium

var ErrInvalidPriority = errors.New("invalid priority")

var priorityLabels = [...]string{PriorityLow: "low", PriorityMedium: "medium", PriorityHigh: "high"}

// ParsePriority accepts low, medium or high, ignoring case and surrounding
// blanks.
func ParsePriority(s string) (Priority, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for p := PriorityLow; p <= PriorityHigh; p++ {
		if priorityLabels[p] == want {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	if !p.IsValid() {
		return "unknown"
	}
	return priorityLabels[p]
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	parsed, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
