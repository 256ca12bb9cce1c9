package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"timeclock/internal/export"
	"timeclock/internal/shift"
	"timeclock/pkg/validator"
	"timeclock/pkg/weekends"
)

const (
	defaultExportDays = 7
	maxExportDays     = 366
)

var totalsCmd = &cobra.Command{
	Use:   "totals <events.json>",
	Short: "Print hours per window for every user",
	Long: `Print today, yesterday, rolling week, rolling month and all-time hours.

Examples:
  timesheet totals events.json
  timesheet totals events.json --ref 2024-03-15T18:00 --tz Europe/Berlin
  cat events.json | timesheet totals - --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTotals,
}

var shiftsCmd = &cobra.Command{
	Use:   "shifts <events.json>",
	Short: "List reconstructed shifts",
	Args:  cobra.ExactArgs(1),
	RunE:  runShifts,
}

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies <events.json>",
	Short: "List unclosed, long and negative-duration shifts",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnomalies,
}

var exportCmd = &cobra.Command{
	Use:   "export <events.json>",
	Short: "Write a one-row-per-day timesheet",
	Long: `Write a timesheet with exactly one row per user per day of the range.

Examples:
  timesheet export events.json -o march.csv --from 2024-03-01 --to 2024-03-31
  timesheet export events.json -f xlsx -o march.xlsx --calendar calendar.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

type report struct {
	opts        shift.Options
	shifts      map[string][]shift.Shift
	diagnostics shift.Diagnostics
}

// load reads events from path ("-" for stdin) and rebuilds shifts.
func load(cmd *cobra.Command, path string) (*report, error) {
	opts, err := options()
	if err != nil {
		return nil, err
	}

	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open events: %w", err)
		}
		defer f.Close()
		r = f
	}

	raw, err := decodeEvents(r)
	if err != nil {
		return nil, err
	}

	normalized, d1 := shift.Normalize(raw, opts)
	shifts, d2 := shift.Reconstruct(normalized, opts)

	if userFilter != "" {
		shifts = map[string][]shift.Shift{userFilter: shifts[userFilter]}
	}

	return &report{opts: opts, shifts: shifts, diagnostics: d1.Add(d2)}, nil
}

func decodeEvents(r io.Reader) ([]shift.RawEvent, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []shift.RawEvent
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return raw, nil
}

func (r *report) userIDs() []string {
	ids := make([]string, 0, len(r.shifts))
	for id := range r.shifts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func runTotals(cmd *cobra.Command, args []string) error {
	rep, err := load(cmd, args[0])
	if err != nil {
		return err
	}

	ref := rep.opts.Now()
	perUser, sum := shift.AggregateByUser(rep.shifts, ref, rep.opts.Location)

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"referenceInstant": ref,
			"users":            perUser,
			"sum":              sum,
			"diagnostics":      rep.diagnostics,
		})
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tTODAY\tYESTERDAY\tWEEK\tMONTH\tALL TIME")
	row := func(name string, t shift.Totals) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", name,
			export.FormatHours(t.Today), export.FormatHours(t.Yesterday),
			export.FormatHours(t.ThisWeek), export.FormatHours(t.ThisMonth),
			export.FormatHours(t.AllTime))
	}
	for _, id := range rep.userIDs() {
		row(id, perUser[id])
	}
	if len(perUser) > 1 {
		row("TOTAL", sum)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	printDiagnostics(cmd.ErrOrStderr(), rep.diagnostics)
	return nil
}

func runShifts(cmd *cobra.Command, args []string) error {
	rep, err := load(cmd, args[0])
	if err != nil {
		return err
	}

	if limit > 0 {
		for id, list := range rep.shifts {
			if len(list) > limit {
				rep.shifts[id] = list[len(list)-limit:]
			}
		}
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), rep.shifts)
	}

	loc := rep.opts.Location
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tCLOCK IN\tCLOCK OUT\tHOURS\tFLAGS")
	for _, id := range rep.userIDs() {
		for _, s := range rep.shifts[id] {
			out := "open"
			if s.ClockOut != nil {
				out = s.ClockOut.In(loc).Format("2006-01-02 15:04")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id,
				s.ClockIn.In(loc).Format("2006-01-02 15:04"), out,
				export.FormatHours(s.DurationHours), flags(s))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	printDiagnostics(cmd.ErrOrStderr(), rep.diagnostics)
	return nil
}

func runAnomalies(cmd *cobra.Command, args []string) error {
	rep, err := load(cmd, args[0])
	if err != nil {
		return err
	}

	a := shift.DetectAnomalies(rep.shifts, rep.opts.Policy)

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), a)
	}

	w := cmd.OutOrStdout()
	if a.Empty() {
		fmt.Fprintln(w, "No anomalies")
		return nil
	}

	loc := rep.opts.Location
	section := func(title string, list []shift.Shift) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(w, "%s (%d):\n", title, len(list))
		for _, s := range list {
			fmt.Fprintf(w, "  %s  %s  %sh\n", s.UserID, s.ClockIn.In(loc).Format("2006-01-02 15:04"), export.FormatHours(s.DurationHours))
		}
	}
	section("Unclosed shifts", a.Unclosed)
	section(fmt.Sprintf("Shifts of %gh or more", rep.opts.Policy.LongShiftThresholdHours), a.Long)
	section("Clock-out before clock-in", a.Negative)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	write, err := exportWriter(formatFlag)
	if err != nil {
		return err
	}

	rep, err := load(cmd, args[0])
	if err != nil {
		return err
	}

	loc := rep.opts.Location
	dates, err := exportRange(rep.opts.Now(), loc)
	if err != nil {
		return err
	}

	exportOpts := shift.ExportOptions{Location: loc}
	if calendarFile != "" {
		cal, err := weekends.ParseFile(calendarFile)
		if err != nil {
			return err
		}
		exportOpts.IsNonWorkingDay = cal.Contains
	}

	var sheets []export.Timesheet
	for _, id := range rep.userIDs() {
		sheets = append(sheets, export.Timesheet{
			Person: export.Person{FirstName: id},
			Rows:   shift.ToExportRows(rep.shifts[id], dates, exportOpts),
		})
	}

	if outputFile == "" {
		return write(cmd.OutOrStdout(), sheets, loc)
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f, sheets, loc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d users x %d days to %s\n", len(sheets), dates.DayCount(loc), outputFile)
	return nil
}

func exportWriter(format string) (func(io.Writer, []export.Timesheet, *time.Location) error, error) {
	switch strings.ToLower(format) {
	case "csv":
		return export.WriteCSV, nil
	case "xlsx":
		return export.WriteXLSX, nil
	}
	return nil, fmt.Errorf("unsupported format %q (use csv or xlsx)", format)
}

func exportRange(ref time.Time, loc *time.Location) (shift.DateRange, error) {
	dates := shift.LastDays(ref, defaultExportDays, loc)

	if fromFlag != "" {
		from, ok := validator.ParseDate(fromFlag, loc)
		if !ok {
			return dates, fmt.Errorf("invalid --from %q, expected YYYY-MM-DD", fromFlag)
		}
		dates.From = from
	}
	if toFlag != "" {
		to, ok := validator.ParseDate(toFlag, loc)
		if !ok {
			return dates, fmt.Errorf("invalid --to %q, expected YYYY-MM-DD", toFlag)
		}
		dates.To = to
	}

	if dates.To.Before(dates.From) {
		return dates, fmt.Errorf("--from must not be after --to")
	}
	if n := dates.DayCount(loc); n > maxExportDays {
		return dates, fmt.Errorf("range of %d days exceeds %d", n, maxExportDays)
	}
	return dates, nil
}

func flags(s shift.Shift) string {
	var f []string
	if s.IsLeaveDay {
		f = append(f, "leave")
	}
	if s.MultiDaySpan {
		f = append(f, "multi-day")
	}
	if s.NegativeDuration {
		f = append(f, "negative")
	}
	if s.AutoClosed {
		f = append(f, "auto-closed")
	}
	return strings.Join(f, ",")
}

func printDiagnostics(w io.Writer, d shift.Diagnostics) {
	if d.Clean() {
		return
	}
	fmt.Fprintf(w, "Skipped %d malformed and %d unpaired events (use -v for details)\n", d.Malformed(), d.Unpaired())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
