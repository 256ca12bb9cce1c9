package service

import (
	"fmt"
	"strings"
	"time"

	"timeclock/internal/models"
	"timeclock/internal/shift"
)

// FormatHours renders fractional hours as "7h 30m".
func FormatHours(hours float64) string {
	minutes := int(hours*60 + 0.5)
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func FormatShift(s shift.Shift, loc *time.Location) string {
	in := s.ClockIn.In(loc)

	if s.IsLeaveDay {
		return fmt.Sprintf("🌴 %s leave (%s)", in.Format("02.01.2006"), FormatHours(s.DurationHours))
	}

	if s.IsOpen() {
		return fmt.Sprintf("🟢 %s %s - ... (%s so far)", in.Format("02.01.2006"), in.Format("15:04"), FormatHours(s.DurationHours))
	}

	out := s.ClockOut.In(loc)
	outStr := out.Format("15:04")
	if s.MultiDaySpan {
		outStr = out.Format("02.01 15:04")
	}

	line := fmt.Sprintf("✅ %s %s - %s (%s)", in.Format("02.01.2006"), in.Format("15:04"), outStr, FormatHours(s.DurationHours))
	if s.NegativeDuration {
		line += " ⚠️ clock-out before clock-in"
	}
	if s.AutoClosed {
		line += " ⚠️ auto-closed"
	}
	return line
}

// FormatShiftList renders the last limit shifts, newest first.
func FormatShiftList(shifts []shift.Shift, limit int, loc *time.Location) string {
	if len(shifts) == 0 {
		return "📭 No shifts yet"
	}

	var result strings.Builder
	result.WriteString("📋 Shift history:\n\n")

	n := 0
	for i := len(shifts) - 1; i >= 0; i-- {
		if limit > 0 && n == limit {
			break
		}
		n++
		fmt.Fprintf(&result, "%d. %s\n", n, FormatShift(shifts[i], loc))
	}

	return result.String()
}

func FormatTotals(t shift.Totals) string {
	return fmt.Sprintf(
		`📊 Worked hours:

📅 Today: %s
⏪ Yesterday: %s
🗓 Last 7 days: %s
📆 Last month: %s
∑ All time: %s`,
		FormatHours(t.Today),
		FormatHours(t.Yesterday),
		FormatHours(t.ThisWeek),
		FormatHours(t.ThisMonth),
		FormatHours(t.AllTime),
	)
}

func FormatAllTotals(rows []UserTotals, sum shift.Totals) string {
	if len(rows) == 0 {
		return "📭 No users yet."
	}

	var result strings.Builder
	result.WriteString("📊 Hours per user (today / 7 days / month):\n\n")
	for i, row := range rows {
		fmt.Fprintf(&result, "%d. %s: %s / %s / %s\n",
			i+1,
			row.User.FullName(),
			FormatHours(row.Totals.Today),
			FormatHours(row.Totals.ThisWeek),
			FormatHours(row.Totals.ThisMonth))
	}
	fmt.Fprintf(&result, "\n∑ Everyone: %s / %s / %s",
		FormatHours(sum.Today), FormatHours(sum.ThisWeek), FormatHours(sum.ThisMonth))

	return result.String()
}

// FormatAnomalies lists anomalies, naming users through names where known.
func FormatAnomalies(a shift.Anomalies, names map[string]string, loc *time.Location) string {
	if a.Empty() {
		return "✅ No anomalies"
	}

	name := func(userID string) string {
		if n, ok := names[userID]; ok && n != "" {
			return n
		}
		return "user " + userID
	}

	var result strings.Builder
	fmt.Fprintf(&result, "🚨 Anomalies: %d\n", a.Count())

	if len(a.Unclosed) > 0 {
		result.WriteString("\n🔓 Unclosed shifts:\n")
		for _, s := range a.Unclosed {
			fmt.Fprintf(&result, "• %s: since %s (%s)\n", name(s.UserID), s.ClockIn.In(loc).Format("02.01 15:04"), FormatHours(s.DurationHours))
		}
	}
	if len(a.Long) > 0 {
		result.WriteString("\n⏰ Long shifts:\n")
		for _, s := range a.Long {
			fmt.Fprintf(&result, "• %s: %s on %s\n", name(s.UserID), FormatHours(s.DurationHours), s.ClockIn.In(loc).Format("02.01.2006"))
		}
	}
	if len(a.Negative) > 0 {
		result.WriteString("\n⚠️ Clock-out before clock-in:\n")
		for _, s := range a.Negative {
			fmt.Fprintf(&result, "• %s: %s\n", name(s.UserID), s.ClockIn.In(loc).Format("02.01.2006 15:04"))
		}
	}

	return strings.TrimRight(result.String(), "\n")
}

// FormatDiagnostics returns "" when nothing was dropped.
func FormatDiagnostics(d shift.Diagnostics) string {
	if d.Clean() {
		return ""
	}

	var parts []string
	add := func(n int, label string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", label, n))
		}
	}
	add(d.Malformed(), "malformed")
	add(d.OrphanOuts, "clock-outs without clock-in")
	add(d.SupersededIns, "repeated clock-ins")
	add(d.AutoClosedIns, "auto-closed")
	add(d.OrphanLeave, "unpaired leave markers")
	add(d.NegativeDurations, "clock-out before clock-in")

	return "ℹ️ Data issues: " + strings.Join(parts, ", ")
}

func FormatLeave(b models.LeaveBooking) string {
	return fmt.Sprintf("#%d %s %s - %s (%d days)",
		b.ID,
		leaveEmoji(b.Type),
		b.StartDate.Format("02.01.2006"),
		b.EndDate.Format("02.01.2006"),
		b.Days())
}

func leaveEmoji(t string) string {
	switch t {
	case models.LeaveTypeSickLeave:
		return "🤒"
	case models.LeaveTypeDayOff:
		return "🏖"
	default:
		return "🌴"
	}
}
