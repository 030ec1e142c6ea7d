package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/importer"
	"github.com/tnsecretariat/regadmin/internal/models"
	"github.com/tnsecretariat/regadmin/internal/store"
	"github.com/tnsecretariat/regadmin/internal/xlsx"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Bulk registrant maintenance",
}

var sheetUpdateFlags struct {
	sheet     string
	headerRow int
	startCol  string
	endCol    string
	dryRun    bool
}

// forEachNamedRow walks data rows that have a real name and hands the header
// index plus row number to fn.
func forEachNamedRow(path string, fn func(sheet *xlsx.Sheet, idx *importer.HeaderIndex, row int, first, last string) error) error {
	f, err := xlsx.Open(path, cfg.ImportDir)
	if err != nil {
		return err
	}
	defer f.Close()

	sheetName, err := f.ResolveSheet(sheetUpdateFlags.sheet)
	if err != nil {
		return err
	}
	sheet := f.Sheet(sheetName)

	cols, err := xlsx.ColumnSpan(sheetUpdateFlags.startCol, sheetUpdateFlags.endCol)
	if err != nil {
		return err
	}
	idx := importer.ReadHeaders(sheet, sheetUpdateFlags.headerRow, cols, importer.DefaultColumnMap())
	for _, required := range []string{importer.FieldFirstName, importer.FieldLastName} {
		if idx.Column(required) == "" {
			return fmt.Errorf("required column %q not found in header row %d", required, sheetUpdateFlags.headerRow)
		}
	}

	firstCol := idx.Column(importer.FieldFirstName)
	lastCol := idx.Column(importer.FieldLastName)
	for row := sheetUpdateFlags.headerRow + 1; row <= sheet.LastRow(); row++ {
		first := strings.TrimSpace(sheet.Cell(firstCol, row))
		last := strings.TrimSpace(sheet.Cell(lastCol, row))
		if first == "" && last == "" {
			continue
		}
		if strings.EqualFold(first, importer.NameSentinel) && strings.EqualFold(last, importer.NameSentinel) {
			continue
		}
		if err := fn(sheet, idx, row, first, last); err != nil {
			return err
		}
	}
	return nil
}

var updateWorkingCmd = &cobra.Command{
	Use:   "update-working-status <file.xlsx>",
	Short: "Set working/student from a sheet by name match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		updated, unchanged, notFound, blank := 0, 0, 0, 0
		err := forEachNamedRow(args[0], func(sheet *xlsx.Sheet, idx *importer.HeaderIndex, row int, first, last string) error {
			col := idx.Column(importer.FieldWorkingOrStudent)
			if col == "" {
				return fmt.Errorf("no working/student column found")
			}
			status := importer.NormalizeWorkingStudent(sheet.Cell(col, row))
			if status == nil {
				blank++
				return nil
			}
			u, err := st().FindUserByName(first, last)
			if err != nil {
				return err
			}
			if u == nil {
				notFound++
				return nil
			}
			if u.WorkingOrStudent != nil && *u.WorkingOrStudent == *status {
				unchanged++
				return nil
			}
			updated++
			if sheetUpdateFlags.dryRun {
				return nil
			}
			return db.Conn().Model(u).Update("working_or_student", *status).Error
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated=%d unchanged=%d not_found=%d blank=%d\n",
			updated, unchanged, notFound, blank)
		if sheetUpdateFlags.dryRun {
			fmt.Fprintln(cmd.OutOrStdout(), "DRY RUN - nothing was written")
		}
		return nil
	},
}

var importAgeRangesCmd = &cobra.Command{
	Use:   "import-age-ranges <file.xlsx>",
	Short: "Set age ranges from a sheet by name match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		updated, unchanged, notFound, blank := 0, 0, 0, 0
		err := forEachNamedRow(args[0], func(sheet *xlsx.Sheet, idx *importer.HeaderIndex, row int, first, last string) error {
			col := idx.Column(importer.FieldAgeRange)
			if col == "" {
				return fmt.Errorf("no age range column found")
			}
			age := strings.TrimSpace(sheet.Cell(col, row))
			if age == "" {
				blank++
				return nil
			}
			u, err := st().FindUserByName(first, last)
			if err != nil {
				return err
			}
			if u == nil {
				notFound++
				return nil
			}
			if u.AgeRange == age {
				unchanged++
				return nil
			}
			updated++
			if sheetUpdateFlags.dryRun {
				return nil
			}
			return db.Conn().Model(u).Update("age_range", age).Error
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated=%d unchanged=%d not_found=%d blank=%d\n",
			updated, unchanged, notFound, blank)
		if sheetUpdateFlags.dryRun {
			fmt.Fprintln(cmd.OutOrStdout(), "DRY RUN - nothing was written")
		}
		return nil
	},
}

var (
	cleanupDryRun bool
	cleanupForce  bool
)

var cleanupNullCmd = &cobra.Command{
	Use:   "cleanup-null",
	Short: "Remove registrants that have no name at all",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn := db.Conn()
		if cleanupForce {
			// includes rows a previous soft-delete pass already hid
			conn = conn.Unscoped()
		}
		q := conn.Model(&models.User{}).
			Where("role = ? AND TRIM(first_name) = '' AND TRIM(last_name) = ''", models.RoleUser)
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d nameless registrant(s) found\n", n)
		if n == 0 || cleanupDryRun {
			if cleanupDryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "DRY RUN - nothing was deleted")
			}
			return nil
		}
		verb := "Soft-delete"
		if cleanupForce {
			verb = "PERMANENTLY delete"
		}
		if !confirm(fmt.Sprintf("%s %d registrant(s)?", verb, n)) {
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

var cleanupEventID uint

var cleanupEventCmd = &cobra.Command{
	Use:   "cleanup-event",
	Short: "Detach placeholder registrants from an event",
	Long: `Removes event links for registrants whose names are blank or the
placeholder value. Such rows come from attendance bookkeeping artifacts and
inflate attendee counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanupEventID == 0 {
			return fmt.Errorf("--event is required")
		}
		e, err := st().EventByID(cleanupEventID)
		if err != nil {
			return err
		}
		var users []models.User
		err = db.Conn().Model(&models.User{}).
			Select("users.id", "users.first_name", "users.last_name").
			Joins("JOIN event_user eu ON eu.user_id = users.id AND eu.event_id = ?", e.ID).
			Where("role = ? AND (TRIM(first_name) = '' AND TRIM(last_name) = '' OR (LOWER(first_name) = ? AND LOWER(last_name) = ?))",
				models.RoleUser, strings.ToLower(importer.NameSentinel), strings.ToLower(importer.NameSentinel)).
			Find(&users).Error
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d placeholder registrant(s) linked to %q\n", len(users), e.Name)
		if len(users) == 0 || cleanupDryRun {
			if cleanupDryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "DRY RUN - nothing was detached")
			}
			return nil
		}
		if !confirm(fmt.Sprintf("Detach %d registrant(s) from %q?", len(users), e.Name)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		// One transaction for the whole sweep; a mid-loop error detaches
		// nobody.
		detached, deleted := 0, 0
		err = db.Conn().Transaction(func(tx *gorm.DB) error {
			txs := store.New(tx)
			for _, u := range users {
				// a placeholder linked to nothing else is pure noise
				n, err := txs.UserEventCount(u.ID)
				if err != nil {
					return err
				}
				if err := txs.DetachUserFromEvent(e.ID, u.ID); err != nil {
					return err
				}
				detached++
				if n <= 1 {
					if err := tx.Delete(&models.User{}, u.ID).Error; err != nil {
						return err
					}
					deleted++
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Detached %d registrant(s); %d with no other event were deleted.\n",
			detached, deleted)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{updateWorkingCmd, importAgeRangesCmd} {
		c.Flags().StringVar(&sheetUpdateFlags.sheet, "sheet", "", "sheet name (default: first sheet)")
		c.Flags().IntVar(&sheetUpdateFlags.headerRow, "header-row", 2, "1-based row containing column headers")
		c.Flags().StringVar(&sheetUpdateFlags.startCol, "start-col", "A", "first column of the data span")
		c.Flags().StringVar(&sheetUpdateFlags.endCol, "end-col", "Z", "last column of the data span")
		c.Flags().BoolVar(&sheetUpdateFlags.dryRun, "dry-run", false, "report without writing")
	}
	cleanupNullCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "count without deleting")
	cleanupNullCmd.Flags().BoolVar(&cleanupForce, "force", false, "delete permanently instead of soft-deleting")
	cleanupEventCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "count without detaching")
	cleanupEventCmd.Flags().UintVar(&cleanupEventID, "event", 0, "event ID to clean")

	usersCmd.AddCommand(updateWorkingCmd, cleanupNullCmd, cleanupEventCmd)
	rootCmd.AddCommand(usersCmd, importAgeRangesCmd)
}
