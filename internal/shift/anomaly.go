package shift

import (
	"sort"
	"time"
)

// Anomalies groups shifts that need an administrator's attention.
type Anomalies struct {
	Unclosed []Shift `json:"unclosedShifts"`
	Long     []Shift `json:"longShifts"`
	Negative []Shift `json:"negativeShifts"`
}

func (a Anomalies) Empty() bool {
	return a.Count() == 0
}

func (a Anomalies) Count() int {
	return len(a.Unclosed) + len(a.Long) + len(a.Negative)
}

// DetectAnomalies lists open shifts, closed shifts lasting at least
// Policy.LongShiftThresholdHours, and shifts whose duration was clamped.
// Leave days count as closed shifts of LeaveDayFixedHours unless
// Policy.LongShiftSkipsLeave is set. Results are ordered by user id, then
// clock-in.
func DetectAnomalies(shifts map[string][]Shift, policy Policy) Anomalies {
	policy = policy.withDefaults()

	var a Anomalies
	for _, userID := range sortedUserIDs(shifts) {
		for _, s := range shifts[userID] {
			switch {
			case s.IsOpen():
				a.Unclosed = append(a.Unclosed, s)
			case s.NegativeDuration:
				a.Negative = append(a.Negative, s)
			case s.IsLeaveDay && policy.LongShiftSkipsLeave:
			case s.DurationHours >= policy.LongShiftThresholdHours:
				a.Long = append(a.Long, s)
			}
		}
	}
	return a
}

// StartedBetween keeps the shifts whose clock-in falls in [from, to).
func StartedBetween(shifts map[string][]Shift, from, to time.Time) map[string][]Shift {
	scoped := make(map[string][]Shift)
	for userID, userShifts := range shifts {
		for _, s := range userShifts {
			if inWindow(s.ClockIn, from, to) {
				scoped[userID] = append(scoped[userID], s)
			}
		}
	}
	return scoped
}

// StartedOn keeps the shifts that started on the calendar day of day in loc.
func StartedOn(shifts map[string][]Shift, day time.Time, loc *time.Location) map[string][]Shift {
	start := midnight(day, loc)
	return StartedBetween(shifts, start, start.AddDate(0, 0, 1))
}

func sortedUserIDs(shifts map[string][]Shift) []string {
	ids := make([]string, 0, len(shifts))
	for id := range shifts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
