// Package shift turns raw clock events into work shifts, anomaly reports,
// windowed totals and timesheet rows.
//
// Every function here is a pure transformation of its arguments: no I/O, no
// package state, and no clock reads except through Options.Now. Callers
// rebuild the whole pipeline from the authoritative event list whenever it
// changes:
//
//	events, d1 := shift.Normalize(raw, opts)
//	shifts, d2 := shift.Reconstruct(events, opts)
//	totals := shift.Aggregate(shifts[userID], opts.Now(), opts.Location)
package shift

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultLongShiftThresholdHours = 12.0
	DefaultLeaveDayFixedHours      = 8.0
)

// DoubleClockInPolicy decides what happens to a pending clock-in when a
// second clock-in arrives before any clock-out.
type DoubleClockInPolicy string

const (
	// DropStale discards the older clock-in and keeps the newer one pending.
	DropStale DoubleClockInPolicy = "drop-stale"
	// AutoClose closes the older clock-in at the newer clock-in's timestamp.
	AutoClose DoubleClockInPolicy = "auto-close"
)

// ParseDoubleClockInPolicy accepts the policy names used in config files.
func ParseDoubleClockInPolicy(s string) (DoubleClockInPolicy, error) {
	switch DoubleClockInPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DropStale:
		return DropStale, nil
	case AutoClose:
		return AutoClose, nil
	}
	return "", fmt.Errorf("unknown double clock-in policy %q", s)
}

// Policy holds the business rules applied while building and checking shifts.
type Policy struct {
	LongShiftThresholdHours float64             `yaml:"long_shift_threshold_hours" json:"longShiftThresholdHours"`
	LeaveDayFixedHours      float64             `yaml:"leave_day_fixed_hours" json:"leaveDayFixedHours"`
	DoubleClockIn           DoubleClockInPolicy `yaml:"double_clock_in" json:"doubleClockIn"`
	// LongShiftSkipsLeave keeps leave days out of the long-shift report. By
	// default every closed shift is compared against the threshold, so a
	// threshold at or below LeaveDayFixedHours flags leave days too.
	LongShiftSkipsLeave     bool                `yaml:"long_shift_skips_leave" json:"longShiftSkipsLeave"`
}

// DefaultPolicy returns 12h long shifts, 8h leave days and drop-stale.
func DefaultPolicy() Policy {
	return Policy{
		LongShiftThresholdHours: DefaultLongShiftThresholdHours,
		LeaveDayFixedHours:      DefaultLeaveDayFixedHours,
		DoubleClockIn:           DropStale,
	}
}

// withDefaults fills zero fields so a zero Policy behaves like DefaultPolicy.
func (p Policy) withDefaults() Policy {
	if p.LongShiftThresholdHours <= 0 {
		p.LongShiftThresholdHours = DefaultLongShiftThresholdHours
	}
	if p.LeaveDayFixedHours <= 0 {
		p.LeaveDayFixedHours = DefaultLeaveDayFixedHours
	}
	if p.DoubleClockIn == "" {
		p.DoubleClockIn = DropStale
	}
	return p
}

// Validate reports policies that cannot be applied.
func (p Policy) Validate() error {
	if p.LongShiftThresholdHours <= 0 {
		return fmt.Errorf("long shift threshold must be positive, got %v", p.LongShiftThresholdHours)
	}
	if p.LeaveDayFixedHours <= 0 || p.LeaveDayFixedHours > 24 {
		return fmt.Errorf("leave day hours must be within (0, 24], got %v", p.LeaveDayFixedHours)
	}
	if _, err := ParseDoubleClockInPolicy(string(p.DoubleClockIn)); err != nil {
		return err
	}
	return nil
}

// Options carries everything the pipeline needs besides the events.
type Options struct {
	Policy Policy
	// Location defines calendar days (midnights, multi-day spans). Defaults to time.Local.
	Location *time.Location
	// Now returns the reference instant used for open shifts. Defaults to time.Now.
	Now    func() time.Time
	Logger logrus.FieldLogger
}

// At returns a copy of o whose reference instant is fixed to ref.
func (o Options) At(ref time.Time) Options {
	o.Now = func() time.Time { return ref }
	return o
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now().In(o.location())
	}
	return o.Now().In(o.location())
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return discardLogger
	}
	return o.Logger
}

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()
