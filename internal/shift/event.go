package shift

import (
	"fmt"
	"time"
)

type Action string

const (
	ActionIn  Action = "in"
	ActionOut Action = "out"
)

// RawEvent is a clock action exactly as the document store hands it over.
// User ids, actions, timestamps and coordinates may arrive as numbers or
// strings, so they stay untyped and a bad value drops only its own event.
type RawEvent struct {
	ID         string `json:"id,omitempty"`
	UserID     any    `json:"userId"`
	Action     any    `json:"action"`
	Timestamp  any    `json:"timestamp"`
	Location   string `json:"location,omitempty"`
	Latitude   any    `json:"latitude,omitempty"`
	Longitude  any    `json:"longitude,omitempty"`
	IsLeaveDay bool   `json:"isLeaveDay,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// NormalizedEvent is a RawEvent that passed validation.
type NormalizedEvent struct {
	ID         string
	UserID     string
	Action     Action
	Timestamp  time.Time
	Location   string
	Latitude   *float64
	Longitude  *float64
	IsLeaveDay bool
	Comment    string
	// Seq is the position of the event in the normalizer input, used to break timestamp ties.
	Seq int
}

// Coordinates returns nil unless both latitude and longitude are known.
func (e NormalizedEvent) Coordinates() *Coordinates {
	if e.Latitude == nil || e.Longitude == nil {
		return nil
	}
	return &Coordinates{Latitude: *e.Latitude, Longitude: *e.Longitude}
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Shift is one reconstructed work interval. ClockOut is nil while the shift is open.
type Shift struct {
	UserID              string       `json:"userId"`
	ClockIn             time.Time    `json:"clockIn"`
	ClockOut            *time.Time   `json:"clockOut"`
	ClockInLocation     string       `json:"clockInLocation,omitempty"`
	ClockOutLocation    string       `json:"clockOutLocation,omitempty"`
	ClockInCoordinates  *Coordinates `json:"clockInCoordinates,omitempty"`
	ClockOutCoordinates *Coordinates `json:"clockOutCoordinates,omitempty"`
	DurationHours       float64      `json:"durationHours"`
	IsLeaveDay          bool         `json:"isLeaveDay"`
	MultiDaySpan        bool         `json:"multiDaySpan"`
	// NegativeDuration marks a clock-out stamped before its clock-in; DurationHours is clamped to 0.
	NegativeDuration bool   `json:"negativeDuration,omitempty"`
	AutoClosed       bool   `json:"autoClosed,omitempty"`
	Comment          string `json:"comment,omitempty"`
}

func (s Shift) IsOpen() bool {
	return s.ClockOut == nil
}

// Key identifies a shift across recomputations of the same event set.
func (s Shift) Key() string {
	return fmt.Sprintf("%s@%d", s.UserID, s.ClockIn.UnixNano())
}

// Diagnostics counts every event the pipeline could not use.
type Diagnostics struct {
	MissingUser       int `json:"missingUser"`
	BadTimestamp      int `json:"badTimestamp"`
	BadAction         int `json:"badAction"`
	OrphanOuts        int `json:"orphanOuts"`
	SupersededIns     int `json:"supersededIns"`
	AutoClosedIns     int `json:"autoClosedIns"`
	OrphanLeave       int `json:"orphanLeave"`
	NegativeDurations int `json:"negativeDurations"`
}

// Add returns the field-wise sum of d and o.
func (d Diagnostics) Add(o Diagnostics) Diagnostics {
	return Diagnostics{
		MissingUser:       d.MissingUser + o.MissingUser,
		BadTimestamp:      d.BadTimestamp + o.BadTimestamp,
		BadAction:         d.BadAction + o.BadAction,
		OrphanOuts:        d.OrphanOuts + o.OrphanOuts,
		SupersededIns:     d.SupersededIns + o.SupersededIns,
		AutoClosedIns:     d.AutoClosedIns + o.AutoClosedIns,
		OrphanLeave:       d.OrphanLeave + o.OrphanLeave,
		NegativeDurations: d.NegativeDurations + o.NegativeDurations,
	}
}

// Malformed is the number of events dropped by the normalizer.
func (d Diagnostics) Malformed() int {
	return d.MissingUser + d.BadTimestamp + d.BadAction
}

// Unpaired is the number of events the reconstructor could not pair.
func (d Diagnostics) Unpaired() int {
	return d.OrphanOuts + d.SupersededIns + d.OrphanLeave
}

func (d Diagnostics) Clean() bool {
	return d == Diagnostics{}
}
