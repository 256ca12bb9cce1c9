package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes the same columns as WriteCSV to a single-sheet workbook.
// Durations are stored as numbers so they can be summed in a spreadsheet.
func WriteXLSX(w io.Writer, sheets []Timesheet, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	line := 2
	for _, sheet := range sheets {
		for _, row := range sheet.Rows {
			rec := Record(sheet.Person, row, loc)
			values := make([]interface{}, len(rec))
			for i, v := range rec {
				values[i] = v
			}
			// Duration column as a number.
			if hours, err := strconv.ParseFloat(rec[7], 64); err == nil {
				values[7] = hours
			}

			cell, err := excelize.CoordinatesToCellName(1, line)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", line, err)
			}
			line++
		}
	}

	if err := f.SetColWidth(SheetName, "A", "J", 16); err != nil {
		return err
	}

	return f.Write(w)
}
