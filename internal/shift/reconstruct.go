package shift

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Reconstruct pairs each user's events into shifts.
//
// Leave markers become fixed-length leave shifts. Regular events are folded
// in timestamp order with at most one pending clock-in; what a second
// clock-in does to it is decided by Policy.DoubleClockIn. A clock-in still
// pending at the end becomes an open shift measured against Options.Now.
// Unusable events are counted in the returned Diagnostics, never fatal.
func Reconstruct(events []NormalizedEvent, opts Options) (map[string][]Shift, Diagnostics) {
	byUser := make(map[string][]NormalizedEvent)
	for _, ev := range events {
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}

	var diag Diagnostics
	result := make(map[string][]Shift, len(byUser))
	for userID, userEvents := range byUser {
		shifts, d := reconstructUser(userID, userEvents, opts)
		diag = diag.Add(d)
		if len(shifts) > 0 {
			result[userID] = shifts
		}
	}
	return result, diag
}

// ReconstructUser is Reconstruct for a single user's events.
func ReconstructUser(userID string, events []NormalizedEvent, opts Options) ([]Shift, Diagnostics) {
	own := make([]NormalizedEvent, 0, len(events))
	for _, ev := range events {
		if ev.UserID == userID {
			own = append(own, ev)
		}
	}
	return reconstructUser(userID, own, opts)
}

func reconstructUser(userID string, events []NormalizedEvent, opts Options) ([]Shift, Diagnostics) {
	sorted := make([]NormalizedEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	var leave, regular []NormalizedEvent
	for _, ev := range sorted {
		if ev.IsLeaveDay {
			leave = append(leave, ev)
		} else {
			regular = append(regular, ev)
		}
	}

	log := opts.logger().WithField("user_id", userID)
	policy := opts.Policy.withDefaults()

	shifts, diag := pairLeave(userID, leave, policy, log)
	worked, d := foldRegular(userID, regular, opts, log)
	diag = diag.Add(d)
	shifts = append(shifts, worked...)

	sort.SliceStable(shifts, func(i, j int) bool {
		return shifts[i].ClockIn.Before(shifts[j].ClockIn)
	})
	return shifts, diag
}

// pairLeave turns leave in/out markers into shifts credited with a full workday.
func pairLeave(userID string, events []NormalizedEvent, policy Policy, log logrus.FieldLogger) ([]Shift, Diagnostics) {
	var (
		shifts  []Shift
		diag    Diagnostics
		pending *NormalizedEvent
	)

	for i := range events {
		ev := events[i]
		switch ev.Action {
		case ActionIn:
			if pending != nil {
				diag.OrphanLeave++
				log.WithField("timestamp", pending.Timestamp).Warn("Dropping unpaired leave-day marker")
			}
			pending = &ev
		case ActionOut:
			if pending == nil {
				diag.OrphanLeave++
				log.WithField("timestamp", ev.Timestamp).Warn("Dropping unpaired leave-day marker")
				continue
			}
			out := ev.Timestamp
			shifts = append(shifts, Shift{
				UserID:              userID,
				ClockIn:             pending.Timestamp,
				ClockOut:            &out,
				ClockInLocation:     pending.Location,
				ClockOutLocation:    ev.Location,
				ClockInCoordinates:  pending.Coordinates(),
				ClockOutCoordinates: ev.Coordinates(),
				DurationHours:       policy.LeaveDayFixedHours,
				IsLeaveDay:          true,
				Comment:             firstNonEmpty(pending.Comment, ev.Comment),
			})
			pending = nil
		}
	}

	if pending != nil {
		diag.OrphanLeave++
		log.WithField("timestamp", pending.Timestamp).Warn("Dropping unpaired leave-day marker")
	}
	return shifts, diag
}

// foldRegular pairs clock-skewed events first, then folds the rest in time order.
func foldRegular(userID string, events []NormalizedEvent, opts Options, log logrus.FieldLogger) ([]Shift, Diagnostics) {
	_, _, loose := fold(userID, events, opts, discardLogger)
	skewed := skewedPairs(events, loose)
	if len(skewed) == 0 {
		shifts, diag, _ := fold(userID, events, opts, log)
		return shifts, diag
	}

	var (
		shifts []Shift
		diag   Diagnostics
		used   = make(map[int]bool, 2*len(skewed))
	)
	loc := opts.location()
	for _, p := range skewed {
		in, out := events[p[0]], events[p[1]]
		used[p[0]], used[p[1]] = true, true
		shifts = append(shifts, closedShift(userID, in, out, loc))
		diag.NegativeDurations++
		log.WithFields(logrus.Fields{
			"clock_in":  in.Timestamp,
			"clock_out": out.Timestamp,
		}).Warn("Clock-out stamped before clock-in, clamping duration to zero")
	}

	rest := make([]NormalizedEvent, 0, len(events)-len(used))
	for i, ev := range events {
		if !used[i] {
			rest = append(rest, ev)
		}
	}
	worked, d, _ := fold(userID, rest, opts, log)
	return append(shifts, worked...), diag.Add(d)
}

// fold walks clock events in time order carrying one optional pending
// clock-in. It also returns the positions of the events it could not pair
// normally: orphan outs and superseded, auto-closed or still open ins.
func fold(userID string, events []NormalizedEvent, opts Options, log logrus.FieldLogger) ([]Shift, Diagnostics, map[int]bool) {
	var (
		shifts     []Shift
		diag       Diagnostics
		pending    *NormalizedEvent
		pendingPos int
		loose      = make(map[int]bool)
	)
	loc := opts.location()
	policy := opts.Policy.withDefaults()

	for i := range events {
		ev := events[i]
		switch ev.Action {
		case ActionIn:
			if pending != nil {
				loose[pendingPos] = true
				if policy.DoubleClockIn == AutoClose {
					s := closedShift(userID, *pending, ev, loc)
					s.AutoClosed = true
					shifts = append(shifts, s)
					diag.AutoClosedIns++
					log.WithFields(logrus.Fields{
						"clock_in":  pending.Timestamp,
						"closed_at": ev.Timestamp,
					}).Warn("Auto-closing shift on repeated clock-in")
				} else {
					diag.SupersededIns++
					log.WithFields(logrus.Fields{
						"dropped_clock_in": pending.Timestamp,
						"new_clock_in":     ev.Timestamp,
					}).Warn("Dropping superseded clock-in")
				}
			}
			pending, pendingPos = &ev, i

		case ActionOut:
			if pending == nil {
				diag.OrphanOuts++
				loose[i] = true
				log.WithField("timestamp", ev.Timestamp).Warn("Dropping clock-out without matching clock-in")
				continue
			}
			shifts = append(shifts, closedShift(userID, *pending, ev, loc))
			pending = nil
		}
	}

	if pending != nil {
		loose[pendingPos] = true
		shifts = append(shifts, openShift(userID, *pending, opts.now()))
	}
	return shifts, diag, loose
}

// skewedPairs finds clock-outs submitted right after a clock-in stamped
// later than them, where neither event formed a normal shift in time order.
// Such a pair is one shift recorded with a skewed clock. Positions index events.
func skewedPairs(events []NormalizedEvent, loose map[int]bool) [][2]int {
	if len(loose) == 0 {
		return nil
	}

	byInput := make([]int, len(events))
	for i := range byInput {
		byInput[i] = i
	}
	sort.SliceStable(byInput, func(a, b int) bool {
		return events[byInput[a]].Seq < events[byInput[b]].Seq
	})

	var pairs [][2]int
	for k := 1; k < len(byInput); k++ {
		in, out := byInput[k-1], byInput[k]
		if events[in].Action != ActionIn || events[out].Action != ActionOut {
			continue
		}
		if !loose[in] || !loose[out] {
			continue
		}
		if events[out].Timestamp.Before(events[in].Timestamp) {
			pairs = append(pairs, [2]int{in, out})
		}
	}
	return pairs
}

func closedShift(userID string, in, out NormalizedEvent, loc *time.Location) Shift {
	clockOut := out.Timestamp
	s := Shift{
		UserID:              userID,
		ClockIn:             in.Timestamp,
		ClockOut:            &clockOut,
		ClockInLocation:     in.Location,
		ClockOutLocation:    out.Location,
		ClockInCoordinates:  in.Coordinates(),
		ClockOutCoordinates: out.Coordinates(),
		Comment:             firstNonEmpty(in.Comment, out.Comment),
	}

	elapsed := out.Timestamp.Sub(in.Timestamp)
	if elapsed < 0 {
		s.NegativeDuration = true
		elapsed = 0
	}
	s.DurationHours = elapsed.Hours()
	s.MultiDaySpan = !sameDay(in.Timestamp, out.Timestamp, loc)
	return s
}

func openShift(userID string, in NormalizedEvent, now time.Time) Shift {
	elapsed := now.Sub(in.Timestamp)
	if elapsed < 0 {
		elapsed = 0
	}
	return Shift{
		UserID:             userID,
		ClockIn:            in.Timestamp,
		ClockInLocation:    in.Location,
		ClockInCoordinates: in.Coordinates(),
		DurationHours:      elapsed.Hours(),
		Comment:            in.Comment,
	}
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
