package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closed(userID, in, out string, hours float64) Shift {
	o := at(out)
	return Shift{UserID: userID, ClockIn: at(in), ClockOut: &o, DurationHours: hours}
}

func TestDetectAnomalies_LongShiftThreshold(t *testing.T) {
	shifts := map[string][]Shift{
		"u1": {
			closed("u1", "2024-01-01T06:00", "2024-01-01T18:30", 12.5),
			closed("u1", "2024-01-02T06:00", "2024-01-02T17:54", 11.9),
		},
	}

	a := DetectAnomalies(shifts, Policy{LongShiftThresholdHours: 12})

	require.Len(t, a.Long, 1)
	assert.Equal(t, 12.5, a.Long[0].DurationHours)
	assert.Empty(t, a.Unclosed)
}

func TestDetectAnomalies_ThresholdIsInclusive(t *testing.T) {
	shifts := map[string][]Shift{
		"u1": {closed("u1", "2024-01-01T06:00", "2024-01-01T18:00", 12)},
	}

	a := DetectAnomalies(shifts, DefaultPolicy())
	assert.Len(t, a.Long, 1)
}

func TestDetectAnomalies_UnclosedAndNegative(t *testing.T) {
	negative := closed("u2", "2024-01-01T17:00", "2024-01-01T08:00", 0)
	negative.NegativeDuration = true

	shifts := map[string][]Shift{
		"u3": {{UserID: "u3", ClockIn: at("2024-01-01T09:00"), DurationHours: 30}},
		"u1": {{UserID: "u1", ClockIn: at("2024-01-01T08:00"), DurationHours: 2}},
		"u2": {negative},
	}

	a := DetectAnomalies(shifts, DefaultPolicy())

	require.Len(t, a.Unclosed, 2)
	assert.Equal(t, "u1", a.Unclosed[0].UserID)
	assert.Equal(t, "u3", a.Unclosed[1].UserID)
	assert.Empty(t, a.Long, "open shifts are reported as unclosed only")
	require.Len(t, a.Negative, 1)
	assert.Equal(t, 3, a.Count())
	assert.False(t, a.Empty())
}

func TestDetectAnomalies_LeaveDays(t *testing.T) {
	leave := closed("u1", "2024-01-01T09:00", "2024-01-01T09:01", 8)
	leave.IsLeaveDay = true
	shifts := map[string][]Shift{"u1": {leave}}

	a := DetectAnomalies(shifts, Policy{LongShiftThresholdHours: 8})
	require.Len(t, a.Long, 1, "leave days are closed shifts like any other")
	assert.True(t, a.Long[0].IsLeaveDay)

	a = DetectAnomalies(shifts, Policy{LongShiftThresholdHours: 8, LongShiftSkipsLeave: true})
	assert.True(t, a.Empty())

	a = DetectAnomalies(shifts, DefaultPolicy())
	assert.True(t, a.Empty(), "8h leave stays under the default 12h threshold")
}

func TestDetectAnomalies_DoesNotMutate(t *testing.T) {
	shifts := map[string][]Shift{
		"u1": {closed("u1", "2024-01-01T06:00", "2024-01-01T20:00", 14)},
	}
	before := shifts["u1"][0]

	DetectAnomalies(shifts, DefaultPolicy())
	assert.Equal(t, before, shifts["u1"][0])
}

func TestStartedOn(t *testing.T) {
	shifts := map[string][]Shift{
		"u1": {
			{UserID: "u1", ClockIn: at("2024-01-01T23:50")},
			{UserID: "u1", ClockIn: at("2024-01-02T00:00")},
			{UserID: "u1", ClockIn: at("2024-01-02T23:59")},
		},
		"u2": {{UserID: "u2", ClockIn: at("2024-01-03T00:00")}},
	}

	scoped := StartedOn(shifts, at("2024-01-02T12:00"), time.UTC)
	assert.Len(t, scoped["u1"], 2)
	assert.NotContains(t, scoped, "u2")
}
