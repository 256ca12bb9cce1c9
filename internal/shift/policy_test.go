package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDoubleClockInPolicy(t *testing.T) {
	p, err := ParseDoubleClockInPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DropStale, p)

	p, err = ParseDoubleClockInPolicy(" Auto-Close ")
	require.NoError(t, err)
	assert.Equal(t, AutoClose, p)

	_, err = ParseDoubleClockInPolicy("merge")
	assert.Error(t, err)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := []Policy{
		{LongShiftThresholdHours: 0, LeaveDayFixedHours: 8},
		{LongShiftThresholdHours: 12, LeaveDayFixedHours: 25},
		{LongShiftThresholdHours: 12, LeaveDayFixedHours: 8, DoubleClockIn: "merge"},
	}
	for _, p := range bad {
		assert.Error(t, p.Validate(), "%+v", p)
	}
}

func TestPolicy_WithDefaults(t *testing.T) {
	assert.Equal(t, DefaultPolicy(), Policy{}.withDefaults())
}

func TestOptions_At(t *testing.T) {
	ref := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	opts := Options{Location: time.UTC}.At(ref)

	assert.True(t, ref.Equal(opts.now()))
	assert.Equal(t, time.Local, Options{}.location())
	assert.NotNil(t, Options{}.logger())
}
