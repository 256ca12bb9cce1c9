package service

import (
	"testing"

	"timeclock/internal/models"
	"timeclock/internal/shift"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockService_InOut(t *testing.T) {
	f := newFixture(t, at("2024-03-04T17:30"), shift.DefaultPolicy())
	u := f.user(t, 10, "Ada", "Lovelace")

	_, err := f.clock.ClockOut(u.ID, Punch{At: at("2024-03-04T08:00")})
	assert.ErrorIs(t, err, ErrNotClockedIn)

	lat, lon := 51.5, -0.12
	event, err := f.clock.ClockIn(u.ID, Punch{At: at("2024-03-04T08:00"), Location: "Office", Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)
	assert.Equal(t, models.SourceTelegram, event.Source)

	_, err = f.clock.ClockIn(u.ID, Punch{At: at("2024-03-04T09:00")})
	assert.ErrorIs(t, err, ErrAlreadyClockedIn)

	open, err := f.clock.Status(u.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.InDelta(t, 9.5, open.DurationHours, 1e-9, "open shift measured against now")
	require.NotNil(t, open.ClockInCoordinates)

	_, err = f.clock.ClockOut(u.ID, Punch{At: at("2024-03-04T07:00")})
	assert.ErrorIs(t, err, ErrClockOutBeforeIn)

	closed, err := f.clock.ClockOut(u.ID, Punch{At: at("2024-03-04T16:30"), Location: "Office"})
	require.NoError(t, err)
	require.NotNil(t, closed.ClockOut)
	assert.InDelta(t, 8.5, closed.DurationHours, 1e-9)
	assert.Equal(t, "Office", closed.ClockOutLocation)

	open, err = f.clock.Status(u.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestClockService_StatusIgnoresLeave(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"), shift.DefaultPolicy())
	u := f.user(t, 10, "Ada", "")

	_, err := f.leave.BookLeave(u.ID, at("2024-03-05T00:00"), at("2024-03-05T00:00"), models.LeaveTypeVacation, "")
	require.NoError(t, err)
	_, err = f.clock.ClockIn(u.ID, Punch{At: at("2024-03-04T08:00")})
	require.NoError(t, err)

	open, err := f.clock.Status(u.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, at("2024-03-04T08:00"), open.ClockIn.UTC())
}

func TestClockService_Ingest(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"), shift.DefaultPolicy())
	u := f.user(t, 10, "Ada", "")
	key := models.UserKey(u.ID)
	id := "6f1c1f55-6a55-4bd7-9a39-0c1b1f0c6a11"

	res, err := f.clock.Ingest([]shift.RawEvent{
		{ID: id, UserID: key, Action: "in", Timestamp: "2024-03-04T08:00"},
		{ID: id, UserID: key, Action: "in", Timestamp: "2024-03-04T08:00"},
		{UserID: "999", Action: "in", Timestamp: "2024-03-04T08:00"},
		{UserID: "abc", Action: "in", Timestamp: "2024-03-04T08:00"},
		{UserID: key, Action: "nap", Timestamp: "2024-03-04T09:00"},
		{ID: "not-a-uuid", UserID: key, Action: "out", Timestamp: "2024-03-04T10:00"},
		{UserID: key, Action: "out", Timestamp: "2024-03-04T11:00", Latitude: "51.5", Longitude: -0.1},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, res.Received)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 4, res.Rejected)
	assert.Equal(t, 1, res.Diagnostics.BadAction)

	res, err = f.clock.Ingest([]shift.RawEvent{{ID: id, UserID: key, Action: "in", Timestamp: "2024-03-04T08:00"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 1, res.Duplicates)

	shifts, diag, err := f.reports.Shifts(u.ID)
	require.NoError(t, err)
	assert.True(t, diag.Clean())
	require.Len(t, shifts, 1)
	assert.InDelta(t, 3.0, shifts[0].DurationHours, 1e-9)
	require.NotNil(t, shifts[0].ClockOutCoordinates)
	assert.InDelta(t, 51.5, shifts[0].ClockOutCoordinates.Latitude, 1e-9)
}

func TestClockService_Ingest_BadEventDoesNotSinkBatch(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"), shift.DefaultPolicy())
	u := f.user(t, 10, "Ada", "")
	key := models.UserKey(u.ID)

	res, err := f.clock.Ingest([]shift.RawEvent{
		{UserID: key, Action: "in", Timestamp: "2024-03-04T08:00"},
		{UserID: key, Action: "out", Timestamp: "0001-01-01T00:00:00Z"},
		{UserID: key, Action: "out", Timestamp: "2024-03-04T10:00"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 1, res.Diagnostics.BadTimestamp)

	shifts, _, err := f.reports.Shifts(u.ID)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.InDelta(t, 2.0, shifts[0].DurationHours, 1e-9)
}
