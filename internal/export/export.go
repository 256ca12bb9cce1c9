// Package export renders shift export rows as CSV and XLSX timesheets.
package export

import (
	"fmt"
	"time"

	"timeclock/internal/shift"
)

const (
	DateLayout = "01/02/2006"
	TimeLayout = "03:04 PM"
	SheetName  = "Timesheet"
)

// Columns is the fixed timesheet header.
var Columns = []string{
	"User Name",
	"Surname",
	"Email Address",
	"Clock In Date",
	"Clock In Time",
	"Clock Out Date",
	"Clock Out Time",
	"Duration (hours)",
	"Shift Type",
	"Comment",
}

// Person identifies the employee a block of rows belongs to.
type Person struct {
	FirstName string
	LastName  string
	Email     string
}

// Timesheet is one employee's rows for a date range.
type Timesheet struct {
	Person Person
	Rows   []shift.ExportRow
}

// Record formats a single row. Placeholder rows carry only the day in the
// clock-in date column.
func Record(p Person, row shift.ExportRow, loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}

	rec := []string{
		p.FirstName,
		p.LastName,
		p.Email,
		row.Date.In(loc).Format(DateLayout),
		"",
		"",
		"",
		FormatHours(row.DurationHours),
		string(row.Type),
		row.Comment,
	}

	if row.Shift != nil {
		in := row.Shift.ClockIn.In(loc)
		rec[3] = in.Format(DateLayout)
		rec[4] = in.Format(TimeLayout)
		if row.Shift.ClockOut != nil {
			out := row.Shift.ClockOut.In(loc)
			rec[5] = out.Format(DateLayout)
			rec[6] = out.Format(TimeLayout)
		}
	}

	return rec
}

func FormatHours(h float64) string {
	return fmt.Sprintf("%.2f", h)
}
