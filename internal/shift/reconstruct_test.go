package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func ev(userID string, action Action, ts string) RawEvent {
	return RawEvent{UserID: userID, Action: string(action), Timestamp: ts}
}

func leaveEv(userID string, action Action, ts string) RawEvent {
	e := ev(userID, action, ts)
	e.IsLeaveDay = true
	return e
}

func build(t *testing.T, ref string, policy Policy, raw ...RawEvent) (map[string][]Shift, Diagnostics) {
	t.Helper()
	opts := Options{Policy: policy, Location: time.UTC}.At(at(ref))
	events, d1 := Normalize(raw, opts)
	shifts, d2 := Reconstruct(events, opts)
	return shifts, d1.Add(d2)
}

func TestReconstruct_PairsAlternatingEvents(t *testing.T) {
	shifts, diag := build(t, "2024-01-02T00:00", DefaultPolicy(),
		ev("u1", ActionIn, "2024-01-01T08:00"),
		ev("u1", ActionOut, "2024-01-01T12:00"),
		ev("u1", ActionIn, "2024-01-01T13:00"),
		ev("u1", ActionOut, "2024-01-01T17:30"),
	)

	require.Len(t, shifts["u1"], 2)
	assert.InDelta(t, 4.0, shifts["u1"][0].DurationHours, 1e-9)
	assert.InDelta(t, 4.5, shifts["u1"][1].DurationHours, 1e-9)
	assert.False(t, shifts["u1"][0].IsOpen())
	assert.True(t, diag.Clean())
}

func TestReconstruct_SortsUnorderedInput(t *testing.T) {
	shifts, _ := build(t, "2024-01-02T00:00", DefaultPolicy(),
		ev("u1", ActionOut, "2024-01-01T17:00"),
		ev("u2", ActionIn, "2024-01-01T09:00"),
		ev("u1", ActionIn, "2024-01-01T08:00"),
		ev("u2", ActionOut, "2024-01-01T10:00"),
	)

	require.Len(t, shifts["u1"], 1)
	require.Len(t, shifts["u2"], 1)
	assert.InDelta(t, 9.0, shifts["u1"][0].DurationHours, 1e-9)
	assert.InDelta(t, 1.0, shifts["u2"][0].DurationHours, 1e-9)
}

func TestReconstruct_OpenShiftUsesReferenceInstant(t *testing.T) {
	shifts, diag := build(t, "2024-01-01T11:30", DefaultPolicy(),
		ev("u1", ActionIn, "2024-01-01T08:00"),
	)

	require.Len(t, shifts["u1"], 1)
	s := shifts["u1"][0]
	assert.True(t, s.IsOpen())
	assert.Nil(t, s.ClockOut)
	assert.InDelta(t, 3.5, s.DurationHours, 1e-9)
	assert.True(t, diag.Clean())
}

func TestReconstruct_OpenShiftInFutureIsZero(t *testing.T) {
	shifts, _ := build(t, "2024-01-01T07:00", DefaultPolicy(),
		ev("u1", ActionIn, "2024-01-01T08:00"),
	)

	require.Len(t, shifts["u1"], 1)
	assert.Equal(t, 0.0, shifts["u1"][0].DurationHours)
}

func TestReconstruct_OrphanOutDropped(t *testing.T) {
	shifts, diag := build(t, "2024-01-02T00:00", DefaultPolicy(),
		ev("u1", ActionOut, "2024-01-01T17:00"),
	)

	assert.Empty(t, shifts["u1"])
	assert.Equal(t, 1, diag.OrphanOuts)
}

func TestReconstruct_SupersededInDropped(t *testing.T) {
	shifts, diag := build(t, "2024-01-02T00:00", DefaultPolicy(),
		ev("u1", ActionIn, "2024-01-01T08:00"),
		ev("u1", ActionIn, "2024-01-01T09:00"),
		ev("u1", ActionOut, "2024-01-01T17:00"),
	)

	require.Len(t, shifts["u1"], 1)
	assert.True(t, at("2024-01-01T09:00").Equal(shifts["u1"][0].ClockIn))
	assert.InDelta(t, 8.0, shifts["u1"][0].DurationHours, 1e-9)
	assert.Equal(t, 1, diag.SupersededIns)
}

func TestReconstruct_AutoClosePolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.DoubleClockIn = AutoClose

	shifts, diag := build(t, "2024-01-02T00:00", policy,
		ev("u1", ActionIn, "2024-01-01T08:00"),
		ev("u1", ActionIn, "2024-01-01T09:00"),
		ev("u1", ActionOut, "2024-01-01T17:00"),
	)

	require.Len(t, shifts["u1"], 2)
	assert.True(t, shifts["u1"][0].AutoClosed)
	assert.InDelta(t, 1.0, shifts["u1"][0].DurationHours, 1e-9)
	assert.InDelta(t, 8.0, shifts["u1"][1].DurationHours, 1e-9)
	assert.Equal(t, 1, diag.AutoClosedIns)
	assert.Equal(t, 0, diag.SupersededIns)
}

func TestReconstruct_LeaveDayFixedDuration(t *testing.T) {
	shifts, diag := build(t, "2024-01-02T00:00", DefaultPolicy(),
		leaveEv("u1", ActionIn, "2024-01-01T09:00"),
		leaveEv("u1", ActionOut, "2024-01-01T09:01"),
	)

	require.Len(t, shifts["u1"], 1)
	s := shifts["u1"][0]
	assert.True(t, s.IsLeaveDay)
	assert.Equal(t, 8.0, s.DurationHours)
	assert.False(t, s.MultiDaySpan)
	assert.True(t, diag.Clean())
}

func TestReconstruct_LeaveHoursFromPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.LeaveDayFixedHours = 7.5

	shifts, _ := build(t, "2024-01-02T00:00", policy,
		leaveEv("u1", ActionIn, "2024-01-01T09:00"),
		leaveEv("u1", ActionOut, "2024-01-01T09:01"),
	)

	require.Len(t, shifts["u1"], 1)
	assert.Equal(t, 7.5, shifts["u1"][0].DurationHours)
}

func TestReconstruct_LeaveDoesNotInterfereWithPendingClockIn(t *testing.T) {
	shifts, diag := build(t, "2024-01-03T00:00", DefaultPolicy(),
		ev("u1", ActionIn, "2024-01-01T08:00"),
		leaveEv("u1", ActionIn, "2024-01-01T09:00"),
		leaveEv("u1", ActionOut, "2024-01-01T09:01"),
		ev("u1", ActionOut, "2024-01-01T12:00"),
		leaveEv("u1", ActionOut, "2024-01-02T09:01"),
	)

	require.Len(t, shifts["u1"], 2)
	assert.False(t, shifts["u1"][0].IsLeaveDay)
	assert.InDelta(t, 4.0, shifts["u1"][0].DurationHours, 1e-9)
	assert.True(t, shifts["u1"][1].IsLeaveDay)
	assert.Equal(t, 1, diag.OrphanLeave)
}

func TestReconstruct_ClockOutBeforeClockInClampedToZero(t *testing.T) {
	shifts, diag := build(t, "2024-01-02T00:00", DefaultPolicy(),
		ev("u1", ActionIn, "2024-01-01T17:00"),
		ev("u1", ActionOut, "2024-01-01T08:00"),
	)

	require.Len(t, shifts["u1"], 1)
	s := shifts["u1"][0]
	assert.False(t, s.IsOpen())
	assert.Equal(t, 0.0, s.DurationHours)
	assert.True(t, s.NegativeDuration)
	assert.Equal(t, 1, diag.NegativeDurations)
	assert.Equal(t, 0, diag.OrphanOuts)
}

func TestReconstruct_SkewedPairFollowedByMoreShifts(t *testing.T) {
	for _, policy := range []DoubleClockInPolicy{DropStale, AutoClose} {
		t.Run(string(policy), func(t *testing.T) {
			shifts, diag := build(t, "2024-01-03T00:00", Policy{DoubleClockIn: policy},
				ev("u1", ActionIn, "2024-01-01T17:00"),
				ev("u1", ActionOut, "2024-01-01T08:00"),
				ev("u1", ActionIn, "2024-01-02T08:00"),
				ev("u1", ActionOut, "2024-01-02T16:00"),
			)

			require.Len(t, shifts["u1"], 2)
			skewed := shifts["u1"][0]
			assert.Equal(t, at("2024-01-01T17:00"), skewed.ClockIn)
			assert.True(t, skewed.NegativeDuration)
			assert.Equal(t, 0.0, skewed.DurationHours)
			assert.InDelta(t, 8.0, shifts["u1"][1].DurationHours, 1e-9)

			assert.Equal(t, 1, diag.NegativeDurations)
			assert.Equal(t, 0, diag.OrphanOuts)
			assert.Equal(t, 0, diag.SupersededIns)
			assert.Equal(t, 0, diag.AutoClosedIns)

			a := DetectAnomalies(shifts, DefaultPolicy())
			assert.Len(t, a.Negative, 1)
			assert.Empty(t, a.Unclosed)
		})
	}
}

func TestReconstruct_ClosedShiftIsNotRepairedAsSkewed(t *testing.T) {
	// The 09:00 in already closes a real shift at 10:00; the 07:00 out stays orphaned.
	shifts, diag := build(t, "2024-01-02T00:00", DefaultPolicy(),
		ev("u1", ActionIn, "2024-01-01T09:00"),
		ev("u1", ActionOut, "2024-01-01T07:00"),
		ev("u1", ActionOut, "2024-01-01T10:00"),
	)

	require.Len(t, shifts["u1"], 1)
	assert.InDelta(t, 1.0, shifts["u1"][0].DurationHours, 1e-9)
	assert.Equal(t, 1, diag.OrphanOuts)
	assert.Equal(t, 0, diag.NegativeDurations)
}

func TestReconstruct_EarlierOrphanOutStaysOrphan(t *testing.T) {
	// The stray out was recorded before the clock-in, so it cannot close it.
	shifts, diag := build(t, "2024-01-01T18:00", DefaultPolicy(),
		ev("u1", ActionOut, "2024-01-01T07:00"),
		ev("u1", ActionIn, "2024-01-01T08:00"),
	)

	require.Len(t, shifts["u1"], 1)
	assert.True(t, shifts["u1"][0].IsOpen())
	assert.Equal(t, 1, diag.OrphanOuts)
	assert.Equal(t, 0, diag.NegativeDurations)
}

func TestReconstruct_TieBreakFirstOutInInputOrder(t *testing.T) {
	opts := Options{Location: time.UTC}.At(at("2024-01-02T00:00"))
	events, _ := Normalize([]RawEvent{
		ev("u1", ActionIn, "2024-01-01T08:00"),
		{ID: "first", UserID: "u1", Action: "out", Timestamp: "2024-01-01T16:00", Location: "Gate A"},
		{ID: "second", UserID: "u1", Action: "out", Timestamp: "2024-01-01T16:00", Location: "Gate B"},
	}, opts)

	shifts, diag := Reconstruct(events, opts)

	require.Len(t, shifts["u1"], 1)
	assert.Equal(t, "Gate A", shifts["u1"][0].ClockOutLocation)
	assert.Equal(t, 1, diag.OrphanOuts)
}

func TestReconstruct_MultiDaySpan(t *testing.T) {
	shifts, _ := build(t, "2024-01-03T00:00", DefaultPolicy(),
		ev("u1", ActionIn, "2024-01-01T22:00"),
		ev("u1", ActionOut, "2024-01-02T06:00"),
		ev("u1", ActionIn, "2024-01-02T08:00"),
		ev("u1", ActionOut, "2024-01-02T10:00"),
	)

	require.Len(t, shifts["u1"], 2)
	assert.True(t, shifts["u1"][0].MultiDaySpan)
	assert.InDelta(t, 8.0, shifts["u1"][0].DurationHours, 1e-9)
	assert.False(t, shifts["u1"][1].MultiDaySpan)
}

func TestReconstruct_MultiDaySpanUsesLocation(t *testing.T) {
	// 22:00-23:30 UTC is 00:00-01:30 the next day at UTC+2: same day there.
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	opts := Options{Location: plus2}.At(at("2024-01-03T00:00"))
	events, _ := Normalize([]RawEvent{
		ev("u1", ActionIn, "2024-01-01T22:00:00Z"),
		ev("u1", ActionOut, "2024-01-01T23:30:00Z"),
	}, opts)

	shifts, _ := Reconstruct(events, opts)
	require.Len(t, shifts["u1"], 1)
	assert.False(t, shifts["u1"][0].MultiDaySpan)
}

func TestReconstruct_CarriesLocationsAndCoordinates(t *testing.T) {
	opts := Options{Location: time.UTC}.At(at("2024-01-02T00:00"))
	events, _ := Normalize([]RawEvent{
		{UserID: "u1", Action: "in", Timestamp: "2024-01-01T08:00", Location: "Depot", Latitude: 51.5, Longitude: -0.1},
		{UserID: "u1", Action: "out", Timestamp: "2024-01-01T16:00", Location: "Site 4", Comment: "left early"},
	}, opts)

	shifts, _ := Reconstruct(events, opts)
	require.Len(t, shifts["u1"], 1)
	s := shifts["u1"][0]
	assert.Equal(t, "Depot", s.ClockInLocation)
	assert.Equal(t, "Site 4", s.ClockOutLocation)
	require.NotNil(t, s.ClockInCoordinates)
	assert.Equal(t, 51.5, s.ClockInCoordinates.Latitude)
	assert.Nil(t, s.ClockOutCoordinates)
	assert.Equal(t, "left early", s.Comment)
}

func TestReconstruct_DoesNotMutateInput(t *testing.T) {
	opts := Options{Location: time.UTC}.At(at("2024-01-02T00:00"))
	events, _ := Normalize([]RawEvent{
		ev("u1", ActionOut, "2024-01-01T17:00"),
		ev("u1", ActionIn, "2024-01-01T08:00"),
	}, opts)
	before := append([]NormalizedEvent(nil), events...)

	Reconstruct(events, opts)
	assert.Equal(t, before, events)
}

func TestReconstructUser_IgnoresOtherUsers(t *testing.T) {
	opts := Options{Location: time.UTC}.At(at("2024-01-02T00:00"))
	events, _ := Normalize([]RawEvent{
		ev("u1", ActionIn, "2024-01-01T08:00"),
		ev("u2", ActionOut, "2024-01-01T10:00"),
		ev("u1", ActionOut, "2024-01-01T09:00"),
	}, opts)

	shifts, diag := ReconstructUser("u1", events, opts)
	require.Len(t, shifts, 1)
	assert.True(t, diag.Clean())
}
