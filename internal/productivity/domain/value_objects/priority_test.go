package value_objects_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

func TestParsePriority(t *testing.T) {
	for in, want := range map[string]value_objects.Priority{
		"low":      value_objects.PriorityLow,
		"medium":   value_objects.PriorityMedium,
		"HIGH":     value_objects.PriorityHigh,
		" Medium ": value_objects.PriorityMedium,
	} {
		got, err := value_objects.ParsePriority(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "urgent", "unknown"} {
		_, err := value_objects.ParsePriority(in)
		assert.ErrorIs(t, err, value_objects.ErrInvalidPriority, in)
	}
}

func TestPriority_Labels(t *testing.T) {
	assert.Equal(t, "high", value_objects.PriorityHigh.String())
	assert.Equal(t, "unknown", value_objects.Priority(0).String())
	assert.Equal(t, "unknown", value_objects.Priority(9).String())
	assert.False(t, value_objects.Priority(4).IsValid())
	assert.Equal(t, value_objects.PriorityMedium, value_objects.DefaultPriority)
}

func TestPriority_JSON(t *testing.T) {
	type doc struct {
		Priority value_objects.Priority `json:"priority"`
	}

	b, err := json.Marshal(doc{Priority: value_objects.PriorityLow})
	require.NoError(t, err)
	assert.JSONEq(t, `{"priority":"low"}`, string(b))

	var d doc
	require.NoError(t, json.Unmarshal([]byte(`{"priority":"High"}`), &d))
	assert.Equal(t, value_objects.PriorityHigh, d.Priority)

	assert.Error(t, json.Unmarshal([]byte(`{"priority":"meh"}`), &d))
	_, err = json.Marshal(doc{})
	assert.Error(t, err)
}
