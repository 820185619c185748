package value_objects_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_Key(t *testing.T) {
	d := value_objects.MustDate(2024, time.May, 1)
	assert.Equal(t, "2024-05-01", d.Key())
	assert.Equal(t, "0987-12-09", value_objects.MustDate(987, time.December, 9).Key())
}

func TestNewDate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		day   int
	}{
		{"feb 30", 2024, time.February, 30},
		{"feb 29 non leap", 2023, time.February, 29},
		{"century non leap", 1900, time.February, 29},
		{"month 13", 2024, 13, 1},
		{"day 0", 2024, time.January, 0},
		{"april 31", 2024, time.April, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := value_objects.NewDate(tt.year, tt.month, tt.day)
			assert.ErrorIs(t, err, value_objects.ErrInvalidDate)
		})
	}

	_, err := value_objects.NewDate(2000, time.February, 29)
	assert.NoError(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := value_objects.ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, value_objects.MustDate(2024, time.February, 29), d)

	for _, bad := range []string{"", "2024-2-01", "2024-02-30", "24-02-01", "2024/02/01", "2024-02-01T00:00"} {
		t.Run(bad, func(t *testing.T) {
			_, err := value_objects.ParseDate(bad)
			assert.ErrorIs(t, err, value_objects.ErrInvalidDate)
		})
	}
}

func TestDate_AddDays(t *testing.T) {
	tests := []struct {
		name string
		from value_objects.Date
		n    int
		want value_objects.Date
	}{
		{"same month", value_objects.MustDate(2024, time.May, 1), 5, value_objects.MustDate(2024, time.May, 6)},
		{"month rollover", value_objects.MustDate(2024, time.January, 31), 1, value_objects.MustDate(2024, time.February, 1)},
		{"leap day", value_objects.MustDate(2024, time.February, 28), 1, value_objects.MustDate(2024, time.February, 29)},
		{"year rollover", value_objects.MustDate(2024, time.December, 31), 1, value_objects.MustDate(2025, time.January, 1)},
		{"backwards across year", value_objects.MustDate(2025, time.January, 1), -1, value_objects.MustDate(2024, time.December, 31)},
		{"backwards across march", value_objects.MustDate(2023, time.March, 1), -1, value_objects.MustDate(2023, time.February, 28)},
		{"zero", value_objects.MustDate(2024, time.July, 4), 0, value_objects.MustDate(2024, time.July, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.AddDays(tt.n))
		})
	}
}

func TestDate_AddDaysRoundTrip(t *testing.T) {
	start := value_objects.MustDate(1999, time.November, 15)
	for d := start; d.Before(value_objects.MustDate(2001, time.March, 1)); d = d.AddDays(1) {
		for _, n := range []int{1, 7, 31, 366, -400} {
			assert.Equal(t, d, d.AddDays(n).AddDays(-n), "date %s offset %d", d, n)
		}
	}
}

func TestDate_Weekday(t *testing.T) {
	assert.Equal(t, time.Wednesday, value_objects.MustDate(2024, time.May, 1).Weekday())
	assert.Equal(t, time.Saturday, value_objects.MustDate(2000, time.January, 1).Weekday())
	assert.Equal(t, time.Sunday, value_objects.MustDate(2023, time.October, 1).Weekday())
}

func TestToday_UsesLocalDay(t *testing.T) {
	fixed := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.Local)
	assert.Equal(t, value_objects.MustDate(2024, time.May, 1), value_objects.Today(func() time.Time { return fixed }))
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Due value_objects.Date `json:"due"`
	}
	b, err := json.Marshal(wrapper{Due: value_objects.MustDate(2024, time.May, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2024-05-01"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2023-12-31"}`), &w))
	assert.Equal(t, value_objects.MustDate(2023, time.December, 31), w.Due)
	assert.Error(t, json.Unmarshal([]byte(`{"due":"2023-13-01"}`), &w))
}

func TestClock(t *testing.T) {
	c, err := value_objects.ParseClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", c.String())
	assert.True(t, c.Before(value_objects.EndOfDay))
	assert.Equal(t, "23:59", value_objects.EndOfDay.String())

	for _, bad := range []string{"", "9:05", "24:00", "12:60", "12-30", "ab:cd", "12:3"} {
		t.Run(bad, func(t *testing.T) {
			_, err := value_objects.ParseClock(bad)
			assert.ErrorIs(t, err, value_objects.ErrInvalidClock)
		})
	}
}
