package export

import (
	"encoding/csv"
	"io"
	"time"
)

// WriteCSV writes the header followed by every sheet's rows in order.
func WriteCSV(w io.Writer, sheets []Timesheet, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}

	for _, sheet := range sheets {
		for _, row := range sheet.Rows {
			if err := cw.Write(Record(sheet.Person, row, loc)); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
