package main

import (
	"github.com/spf13/cobra"

	"github.com/tnsecretariat/regadmin/internal/reports"
)

var reportFlags struct {
	sheet     string
	headerRow int
	startCol  string
	endCol    string
	out       string
}

func sheetOptions(path string) reports.SheetOptions {
	return reports.SheetOptions{
		Path:      path,
		Sheet:     reportFlags.sheet,
		HeaderRow: reportFlags.headerRow,
		StartCol:  reportFlags.startCol,
		EndCol:    reportFlags.endCol,
	}
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.xlsx>",
	Short: "Analyze the attendance column before importing",
	Long: `Histograms the raw attendance values, flags attended rows with blank
names, lists duplicate names among attendees, and predicts how many distinct
records an attendance-filtered import would create.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reports.Analyze(cfg.ImportDir, sheetOptions(args[0]), cmd.OutOrStdout())
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare-attendance <file.xlsx>",
	Short: "Reconcile sheet attendance against the database",
	Long: `Partitions attended names into matched, sheet-only, and database-only
sets, shows duplicate sheet rows, and prints the arithmetic behind the unique
name count so discrepancies can be traced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reports.CompareAttendance(st(), cfg.ImportDir, sheetOptions(args[0]), cmd.OutOrStdout())
	},
}

var findMissingCmd = &cobra.Command{
	Use:   "find-missing <file.xlsx>",
	Short: "Export attended sheet rows that are absent from the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reports.FindMissing(st(), cfg.ImportDir, sheetOptions(args[0]), reportFlags.out, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, compareCmd, findMissingCmd} {
		c.Flags().StringVar(&reportFlags.sheet, "sheet", "", "sheet name (default: first sheet)")
		c.Flags().IntVar(&reportFlags.headerRow, "header-row", 2, "1-based row containing column headers")
		c.Flags().StringVar(&reportFlags.startCol, "start-col", "A", "first column of the data span")
		c.Flags().StringVar(&reportFlags.endCol, "end-col", "Z", "last column of the data span")
	}
	findMissingCmd.Flags().StringVar(&reportFlags.out, "out", "missing_attendees.txt", "report file to write")

	rootCmd.AddCommand(analyzeCmd, compareCmd, findMissingCmd)
}
