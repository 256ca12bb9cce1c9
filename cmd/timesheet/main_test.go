package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"timeclock/internal/export"
)

const sampleEvents = `[
  {"userId": "alice", "action": "in",  "timestamp": "2024-03-14T08:00:00Z"},
  {"userId": "alice", "action": "out", "timestamp": "2024-03-14T21:00:00Z"},
  {"userId": "alice", "action": "in",  "timestamp": "2024-03-15T09:00:00Z", "latitude": "51.5", "longitude": -0.12},
  {"userId": "bob",   "action": "out", "timestamp": "2024-03-15T07:00:00Z"},
  {"userId": "bob",   "action": "in",  "timestamp": "2024-03-13T09:00:00Z", "isLeaveDay": true},
  {"userId": "bob",   "action": "out", "timestamp": "2024-03-13T09:01:00Z", "isLeaveDay": true},
  {"userId": "",      "action": "in",  "timestamp": "2024-03-15T09:00:00Z"}
]`

func resetFlags() {
	verbose = false
	refFlag, tzFlag, policyFile = "", "UTC", ""
	longShiftHours, leaveDayHours, doubleClockIn = 0, 0, ""
	userFilter, jsonOutput, limit = "", false, 0
	formatFlag, outputFile, fromFlag, toFlag, calendarFile = "csv", "", "", "", ""
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	// later flags win, so a test may still override --tz or --ref
	full := append([]string{args[0], "--tz", "UTC", "--ref", "2024-03-15T12:00"}, args[1:]...)
	rootCmd.SetArgs(full)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeEvents(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleEvents), 0o644))
	return path
}

func TestTotalsCommand(t *testing.T) {
	out, errOut, err := execute(t, sampleEvents, "totals", "-", "--json")
	require.NoError(t, err)
	assert.Empty(t, errOut)

	var got struct {
		Users map[string]struct {
			Today     float64 `json:"today"`
			Yesterday float64 `json:"yesterday"`
			AllTime   float64 `json:"allTime"`
		} `json:"users"`
		Diagnostics struct {
			MissingUser int `json:"missingUser"`
			OrphanOuts  int `json:"orphanOuts"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.InDelta(t, 3.0, got.Users["alice"].Today, 1e-9, "open shift measured at --ref")
	assert.InDelta(t, 13.0, got.Users["alice"].Yesterday, 1e-9)
	assert.InDelta(t, 8.0, got.Users["bob"].AllTime, 1e-9, "leave day credited with fixed hours")
	assert.Equal(t, 1, got.Diagnostics.MissingUser)
	assert.Equal(t, 1, got.Diagnostics.OrphanOuts)
}

func TestTotalsCommand_Text(t *testing.T) {
	out, errOut, err := execute(t, "", "totals", writeEvents(t))
	require.NoError(t, err)

	assert.Contains(t, out, "USER")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, errOut, "Skipped 1 malformed and 1 unpaired events")
}

func TestShiftsCommand(t *testing.T) {
	out, _, err := execute(t, sampleEvents, "shifts", "-", "--user", "alice", "-n", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "2024-03-15 09:00")
	assert.Contains(t, out, "open")
	assert.NotContains(t, out, "2024-03-14 08:00")
	assert.NotContains(t, out, "bob")
}

func TestAnomaliesCommand(t *testing.T) {
	out, _, err := execute(t, sampleEvents, "anomalies", "-", "--long-shift-hours", "12")
	require.NoError(t, err)

	assert.Contains(t, out, "Unclosed shifts (1)")
	assert.Contains(t, out, "Shifts of 12h or more (1)")
	assert.NotContains(t, out, "Clock-out before clock-in")

	out, _, err = execute(t, sampleEvents, "anomalies", "-", "--long-shift-hours", "14", "--user", "bob")
	require.NoError(t, err)
	assert.Equal(t, "No anomalies\n", out)
}

func TestExportCommand_CSV(t *testing.T) {
	out, _, err := execute(t, sampleEvents, "export", "-", "--from", "2024-03-13", "--to", "2024-03-15")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+2*3)
	assert.Equal(t, export.Columns, records[0])

	// alice: 13th placeholder, 14th regular, 15th open (placeholder)
	assert.Equal(t, "alice", records[1][0])
	assert.Equal(t, "No Shift", records[1][8])
	assert.Equal(t, "13.00", records[2][7])
	assert.Equal(t, "No Shift", records[3][8])
	// bob: leave on the 13th
	assert.Equal(t, "bob", records[4][0])
	assert.Equal(t, "Leave", records[4][8])
	assert.Equal(t, "8.00", records[4][7])
}

func TestExportCommand_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	_, errOut, err := execute(t, sampleEvents, "export", "-", "-f", "xlsx", "-o", path, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Wrote 1 users x 7 days")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1+7)
}

func TestExportCommand_Errors(t *testing.T) {
	cases := map[string][]string{
		"bad format":     {"export", "-", "-f", "pdf"},
		"bad from":       {"export", "-", "--from", "15.03.2024"},
		"reversed range": {"export", "-", "--from", "2024-03-15", "--to", "2024-03-01"},
		"too long":       {"export", "-", "--from", "2022-01-01", "--to", "2024-01-01"},
		"bad policy":     {"export", "-", "--double-clock-in", "merge"},
		"bad tz":         {"export", "-", "--tz", "Mars/Olympus"},
		"missing file":   {"totals", "does-not-exist.json"},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := execute(t, sampleEvents, args...)
			assert.Error(t, err)
		})
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	_, _, err := execute(t, `{"userId": "alice"}`, "totals", "-")
	assert.ErrorContains(t, err, "failed to decode events")
}
