// timesheet rebuilds shifts from a JSON dump of clock events and prints
// totals, shifts and anomalies, or exports a timesheet, without a database.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"timeclock/internal/config"
	"timeclock/internal/shift"
)

var version = "dev"

var (
	// Global flags
	verbose        bool
	refFlag        string
	tzFlag         string
	policyFile     string
	longShiftHours float64
	leaveDayHours  float64
	doubleClockIn  string

	// Report flags
	userFilter string
	jsonOutput bool
	limit      int

	// Export flags
	formatFlag   string
	outputFile   string
	fromFlag     string
	toFlag       string
	calendarFile string
)

var rootCmd = &cobra.Command{
	Use:   "timesheet",
	Short: "Offline shift reports from clock event dumps",
	Long: `timesheet reads clock events as a JSON array (the same shape the
HTTP API accepts) and rebuilds shifts from them.

Open shifts are measured against --ref, which defaults to the current time.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		logrus.SetLevel(logrus.ErrorLevel)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log dropped and repaired events to stderr")
	rootCmd.PersistentFlags().StringVar(&refFlag, "ref", "", "Reference instant (RFC 3339 or 2006-01-02T15:04), defaults to now")
	rootCmd.PersistentFlags().StringVar(&tzFlag, "tz", "Local", "IANA time zone defining calendar days")
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "YAML file with shift policy overrides")
	rootCmd.PersistentFlags().Float64Var(&longShiftHours, "long-shift-hours", 0, "Long shift threshold in hours (overrides --policy)")
	rootCmd.PersistentFlags().Float64Var(&leaveDayHours, "leave-hours", 0, "Hours credited per leave day (overrides --policy)")
	rootCmd.PersistentFlags().StringVar(&doubleClockIn, "double-clock-in", "", "Double clock-in policy: drop-stale or auto-close (overrides --policy)")

	for _, cmd := range []*cobra.Command{totalsCmd, shiftsCmd, anomaliesCmd} {
		cmd.Flags().StringVarP(&userFilter, "user", "u", "", "Only report this user ID")
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of text")
	}
	shiftsCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the last N shifts per user (0 for all)")

	exportCmd.Flags().StringVarP(&formatFlag, "format", "f", "csv", "Export format (csv, xlsx)")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (defaults to stdout)")
	exportCmd.Flags().StringVar(&fromFlag, "from", "", "First day, YYYY-MM-DD (defaults to 7 days before --ref)")
	exportCmd.Flags().StringVar(&toFlag, "to", "", "Last day, YYYY-MM-DD (defaults to the day of --ref)")
	exportCmd.Flags().StringVar(&calendarFile, "calendar", "", "Production calendar JSON marking non-working days")
	exportCmd.Flags().StringVarP(&userFilter, "user", "u", "", "Only export this user ID")

	rootCmd.AddCommand(totalsCmd)
	rootCmd.AddCommand(shiftsCmd)
	rootCmd.AddCommand(anomaliesCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// options assembles pipeline options from the global flags.
func options() (shift.Options, error) {
	loc, err := time.LoadLocation(tzFlag)
	if err != nil {
		return shift.Options{}, fmt.Errorf("invalid --tz: %w", err)
	}

	policy := shift.DefaultPolicy()
	if policyFile != "" {
		policy, err = config.LoadPolicyFile(policyFile, policy)
		if err != nil {
			return shift.Options{}, err
		}
	}
	if longShiftHours > 0 {
		policy.LongShiftThresholdHours = longShiftHours
	}
	if leaveDayHours > 0 {
		policy.LeaveDayFixedHours = leaveDayHours
	}
	if doubleClockIn != "" {
		policy.DoubleClockIn, err = shift.ParseDoubleClockInPolicy(doubleClockIn)
		if err != nil {
			return shift.Options{}, err
		}
	}
	if err := policy.Validate(); err != nil {
		return shift.Options{}, err
	}

	ref := time.Now().In(loc)
	if refFlag != "" {
		var ok bool
		ref, ok = shift.ParseTimestamp(refFlag, loc)
		if !ok {
			return shift.Options{}, fmt.Errorf("invalid --ref %q", refFlag)
		}
	}

	return shift.Options{
		Policy:   policy,
		Location: loc,
		Logger:   logrus.StandardLogger(),
	}.At(ref), nil
}
