package shift

import "time"

type Window string

const (
	WindowToday     Window = "today"
	WindowYesterday Window = "yesterday"
	WindowThisWeek  Window = "thisWeek"
	WindowThisMonth Window = "thisMonth"
	WindowAllTime   Window = "allTime"
)

// Totals holds hours worked per named window.
type Totals struct {
	Today     float64 `json:"today"`
	Yesterday float64 `json:"yesterday"`
	ThisWeek  float64 `json:"thisWeek"`
	ThisMonth float64 `json:"thisMonth"`
	AllTime   float64 `json:"allTime"`
}

// Get returns the total for w.
func (t Totals) Get(w Window) float64 {
	switch w {
	case WindowToday:
		return t.Today
	case WindowYesterday:
		return t.Yesterday
	case WindowThisWeek:
		return t.ThisWeek
	case WindowThisMonth:
		return t.ThisMonth
	case WindowAllTime:
		return t.AllTime
	}
	return 0
}

// Add returns the field-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Today:     t.Today + o.Today,
		Yesterday: t.Yesterday + o.Yesterday,
		ThisWeek:  t.ThisWeek + o.ThisWeek,
		ThisMonth: t.ThisMonth + o.ThisMonth,
		AllTime:   t.AllTime + o.AllTime,
	}
}

// Bounds is a half-open [Start, End) interval.
type Bounds struct {
	Start time.Time
	End   time.Time
}

// Windows computes the aggregation windows relative to ref.
// Week and month are rolling, not calendar aligned.
func Windows(ref time.Time, loc *time.Location) map[Window]Bounds {
	if loc == nil {
		loc = time.Local
	}
	ref = ref.In(loc)
	today := midnight(ref, loc)

	return map[Window]Bounds{
		WindowToday:     {Start: today, End: ref},
		WindowYesterday: {Start: today.AddDate(0, 0, -1), End: today},
		WindowThisWeek:  {Start: ref.AddDate(0, 0, -7), End: ref},
		WindowThisMonth: {Start: ref.AddDate(0, -1, 0), End: ref},
		WindowAllTime:   {Start: time.Unix(0, 0).In(loc), End: ref},
	}
}

// Aggregate sums shift durations into windows by clock-in. A shift crossing a
// window boundary counts entirely toward the window it started in.
func Aggregate(shifts []Shift, ref time.Time, loc *time.Location) Totals {
	w := Windows(ref, loc)

	var t Totals
	for _, s := range shifts {
		h := s.DurationHours
		if in := w[WindowToday]; inWindow(s.ClockIn, in.Start, in.End) {
			t.Today += h
		}
		if in := w[WindowYesterday]; inWindow(s.ClockIn, in.Start, in.End) {
			t.Yesterday += h
		}
		if in := w[WindowThisWeek]; inWindow(s.ClockIn, in.Start, in.End) {
			t.ThisWeek += h
		}
		if in := w[WindowThisMonth]; inWindow(s.ClockIn, in.Start, in.End) {
			t.ThisMonth += h
		}
		if in := w[WindowAllTime]; inWindow(s.ClockIn, in.Start, in.End) {
			t.AllTime += h
		}
	}
	return t
}

// AggregateByUser returns per-user totals and their sum across all users.
func AggregateByUser(shifts map[string][]Shift, ref time.Time, loc *time.Location) (map[string]Totals, Totals) {
	perUser := make(map[string]Totals, len(shifts))
	var all Totals
	for _, userID := range sortedUserIDs(shifts) {
		t := Aggregate(shifts[userID], ref, loc)
		perUser[userID] = t
		all = all.Add(t)
	}
	return perUser, all
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
