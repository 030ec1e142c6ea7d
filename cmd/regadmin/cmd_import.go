package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tnsecretariat/regadmin/internal/importer"
	"github.com/tnsecretariat/regadmin/internal/models"
)

var importFlags struct {
	sheet        string
	headerRow    int
	startCol     string
	endCol       string
	startRow     int
	resume       bool
	skipExisting bool
	eventID      uint
	dryRun       bool
	interactive  bool
}

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import registrants from a spreadsheet",
	Long: `Reads a registration sheet and reconciles it against the database.

Rows whose first and last name match an existing registrant are diffed
column by column: changed or newly filled columns update the record, sphere
labels are merged additively, and identical rows are left alone. Names the
database has never seen are inserted in full.

Use --dry-run to see exactly what a run would do, including the header
mapping audit and previews of the first rows, without writing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := importer.Options{
			Path:         args[0],
			Sheet:        importFlags.sheet,
			HeaderRow:    importFlags.headerRow,
			StartCol:     importFlags.startCol,
			EndCol:       importFlags.endCol,
			StartRow:     importFlags.startRow,
			Resume:       importFlags.resume,
			SkipExisting: importFlags.skipExisting,
			EventID:      importFlags.eventID,
			DryRun:       importFlags.dryRun,
			Interactive:  importFlags.interactive,
			Stdin:        os.Stdin,
		}
		res, err := importer.Run(st(), cfg.ImportDir, opts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		res.Print(cmd.OutOrStdout(), importFlags.dryRun)
		return nil
	},
}

var undoFlags struct {
	sheet   string
	fromRow int
	toRow   int
	dryRun  bool
}

var undoImportCmd = &cobra.Command{
	Use:   "undo-import",
	Short: "Delete registrants created by a previous import",
	Long: `Removes registrants recorded as coming from the given sheet,
optionally limited to a source row range. Deletion is soft; the rows stay
recoverable in the database but leave every list and export.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if undoFlags.sheet == "" {
			return fmt.Errorf("--sheet is required")
		}
		q := st().DB.Model(&models.User{}).
			Where("source_sheet = ? AND role = ?", undoFlags.sheet, models.RoleUser)
		if undoFlags.fromRow > 0 {
			q = q.Where("source_row >= ?", undoFlags.fromRow)
		}
		if undoFlags.toRow > 0 {
			q = q.Where("source_row <= ?", undoFlags.toRow)
		}

		var n int64
		if err := q.Count(&n).Error; err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d registrant(s) match sheet %q", n, undoFlags.sheet)
		if undoFlags.fromRow > 0 || undoFlags.toRow > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " rows %d..%d", undoFlags.fromRow, undoFlags.toRow)
		}
		fmt.Fprintln(cmd.OutOrStdout())

		if n == 0 || undoFlags.dryRun {
			return nil
		}
		if !confirm(fmt.Sprintf("Soft-delete %d registrant(s)?", n)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}

		res := q.Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d registrant(s).\n", res.RowsAffected)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFlags.sheet, "sheet", "", "sheet name (default: first sheet)")
	importCmd.Flags().IntVar(&importFlags.headerRow, "header-row", 2, "1-based row containing column headers")
	importCmd.Flags().StringVar(&importFlags.startCol, "start-col", "A", "first column of the data span")
	importCmd.Flags().StringVar(&importFlags.endCol, "end-col", "Z", "last column of the data span")
	importCmd.Flags().IntVar(&importFlags.startRow, "start-row", 0, "first data row to process (default: after the header)")
	importCmd.Flags().BoolVar(&importFlags.resume, "resume", false, "continue after the last imported row of this sheet")
	importCmd.Flags().BoolVar(&importFlags.skipExisting, "skip-existing", false, "skip rows whose row number was already imported from this sheet")
	importCmd.Flags().UintVar(&importFlags.eventID, "event", 0, "attach processed registrants to this event ID")
	importCmd.Flags().BoolVar(&importFlags.dryRun, "dry-run", false, "classify and report without writing")
	importCmd.Flags().BoolVar(&importFlags.interactive, "interactive", false, "review and adjust the header mapping before running")

	undoImportCmd.Flags().StringVar(&undoFlags.sheet, "sheet", "", "source sheet name recorded at import time")
	undoImportCmd.Flags().IntVar(&undoFlags.fromRow, "from-row", 0, "lowest source row to remove")
	undoImportCmd.Flags().IntVar(&undoFlags.toRow, "to-row", 0, "highest source row to remove")
	undoImportCmd.Flags().BoolVar(&undoFlags.dryRun, "dry-run", false, "count matches without deleting")

	rootCmd.AddCommand(importCmd, undoImportCmd)
}
