package shift

import (
	"strings"
	"time"
)

type ShiftType string

const (
	TypeRegular ShiftType = "Regular"
	TypeLeave   ShiftType = "Leave"
	TypeNoShift ShiftType = "No Shift"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Days lists the midnights of every day in r. A reversed range is read backwards.
func (r DateRange) Days(loc *time.Location) []time.Time {
	from, to := midnight(r.From, loc), midnight(r.To, loc)
	if to.Before(from) {
		from, to = to, from
	}

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DayCount is len(r.Days(loc)) computed without building the slice, so
// callers can bound a range before expanding it.
func (r DateRange) DayCount(loc *time.Location) int {
	from, to := civilDay(r.From, loc), civilDay(r.To, loc)
	if to < from {
		from, to = to, from
	}
	return int((to-from)/secondsPerDay) + 1
}

const secondsPerDay = 24 * 60 * 60

// civilDay returns the unix seconds of t's calendar day at UTC midnight,
// which steps by exactly one day across DST changes in loc.
func civilDay(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// LastDays returns the n calendar days ending on ref's day.
func LastDays(ref time.Time, n int, loc *time.Location) DateRange {
	if n < 1 {
		n = 1
	}
	return DateRange{From: midnight(ref, loc).AddDate(0, 0, -(n - 1)), To: ref}
}

// ExportRow is one timesheet line. Shift is nil for placeholder days.
type ExportRow struct {
	Date          time.Time
	Shift         *Shift
	DurationHours float64
	Type          ShiftType
	Comment       string
}

func (r ExportRow) Placeholder() bool {
	return r.Shift == nil
}

type ExportOptions struct {
	Location *time.Location
	// IsNonWorkingDay marks placeholder rows that fall on weekends or holidays.
	IsNonWorkingDay func(day time.Time) bool
}

// ToExportRows emits exactly one row per day of r: the longest closed or
// leave shift that started that day, or a zero-hour placeholder.
func ToExportRows(shifts []Shift, r DateRange, opts ExportOptions) []ExportRow {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	best := make(map[string]Shift)
	for _, s := range shifts {
		if s.IsOpen() {
			continue
		}
		day := dayKey(s.ClockIn, loc)
		cur, ok := best[day]
		if !ok || s.DurationHours > cur.DurationHours ||
			(s.DurationHours == cur.DurationHours && s.ClockIn.Before(cur.ClockIn)) {
			best[day] = s
		}
	}

	days := r.Days(loc)
	rows := make([]ExportRow, 0, len(days))
	for _, day := range days {
		s, ok := best[dayKey(day, loc)]
		if !ok {
			row := ExportRow{Date: day, Type: TypeNoShift}
			if opts.IsNonWorkingDay != nil && opts.IsNonWorkingDay(day) {
				row.Comment = "Non-working day"
			}
			rows = append(rows, row)
			continue
		}

		shift := s
		row := ExportRow{
			Date:          day,
			Shift:         &shift,
			DurationHours: s.DurationHours,
			Type:          TypeRegular,
			Comment:       shiftComment(s),
		}
		if s.IsLeaveDay {
			row.Type = TypeLeave
		}
		rows = append(rows, row)
	}
	return rows
}

func shiftComment(s Shift) string {
	var notes []string
	if s.Comment != "" {
		notes = append(notes, s.Comment)
	}
	if s.MultiDaySpan {
		notes = append(notes, "Spans multiple days")
	}
	if s.NegativeDuration {
		notes = append(notes, "Clock-out before clock-in")
	}
	if s.AutoClosed {
		notes = append(notes, "Auto-closed")
	}
	return strings.Join(notes, "; ")
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
