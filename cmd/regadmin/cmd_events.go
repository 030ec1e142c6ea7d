package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage event membership from the command line",
}

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events with attendee counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		var events []models.Event
		if err := db.Conn().Order("id asc").Find(&events).Error; err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSTART\tATTENDEES")
		for _, e := range events {
			start := "-"
			if e.StartTime != nil {
				start = e.StartTime.Format("2006-01-02 15:04")
			}
			n, err := st().EventAttendeeCount(e.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", e.ID, e.Name, e.Status, start, n)
		}
		return tw.Flush()
	},
}

var addUsersFlags struct {
	eventID      uint
	userIDs      []uint
	attendedOnly bool
	sourceSheet  string
	dryRun       bool
}

var eventAddUsersCmd = &cobra.Command{
	Use:   "add-users",
	Short: "Attach existing registrants to an event in bulk",
	Long: `Attaches every registrant matching the filters to the event. Links
that already exist are counted but not duplicated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addUsersFlags.eventID == 0 {
			return fmt.Errorf("--event is required")
		}
		e, err := st().EventByID(addUsersFlags.eventID)
		if err != nil {
			return err
		}

		q := db.Conn().Model(&models.User{}).Where("role = ?", models.RoleUser)
		if len(addUsersFlags.userIDs) > 0 {
			q = q.Where("id IN ?", addUsersFlags.userIDs)
		}
		if addUsersFlags.attendedOnly {
			q = q.Where("attendance = ?", true)
		}
		if addUsersFlags.sourceSheet != "" {
			q = q.Where("source_sheet = ?", addUsersFlags.sourceSheet)
		}
		var users []models.User
		if err := q.Select("id", "first_name", "last_name").Find(&users).Error; err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d registrant(s) match for event %q (ID %d)\n",
			len(users), e.Name, e.ID)
		if addUsersFlags.dryRun {
			fmt.Fprintln(cmd.OutOrStdout(), "DRY RUN - nothing was written")
			return nil
		}
		if len(users) == 0 {
			return nil
		}
		if !confirm(fmt.Sprintf("Attach %d registrant(s) to %q?", len(users), e.Name)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}

		attached, already := 0, 0
		for _, u := range users {
			ok, err := st().AttachUserToEvent(e.ID, u.ID)
			if err != nil {
				return err
			}
			if ok {
				attached++
			} else {
				already++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Attached %d; %d were already linked.\n", attached, already)
		return nil
	},
}

var removeUsersFlags struct {
	eventID uint
	userIDs []uint
	dryRun  bool
}

var eventRemoveUsersCmd = &cobra.Command{
	Use:   "remove-users",
	Short: "Detach registrants from an event by ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		if removeUsersFlags.eventID == 0 {
			return fmt.Errorf("--event is required")
		}
		if len(removeUsersFlags.userIDs) == 0 {
			return fmt.Errorf("--users is required")
		}
		e, err := st().EventByID(removeUsersFlags.eventID)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Detaching %d registrant(s) from %q (ID %d)\n",
			len(removeUsersFlags.userIDs), e.Name, e.ID)
		if removeUsersFlags.dryRun {
			fmt.Fprintln(cmd.OutOrStdout(), "DRY RUN - nothing was written")
			return nil
		}
		if !confirm(fmt.Sprintf("Detach %d registrant(s) from %q?", len(removeUsersFlags.userIDs), e.Name)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		for _, id := range removeUsersFlags.userIDs {
			if err := st().DetachUserFromEvent(e.ID, id); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Done.")
		return nil
	},
}

func init() {
	eventAddUsersCmd.Flags().UintVar(&addUsersFlags.eventID, "event", 0, "event ID to attach to")
	eventAddUsersCmd.Flags().UintSliceVar(&addUsersFlags.userIDs, "users", nil, "specific registrant IDs (default: all matching the filters)")
	eventAddUsersCmd.Flags().BoolVar(&addUsersFlags.attendedOnly, "attended-only", false, "only registrants flagged as attended")
	eventAddUsersCmd.Flags().StringVar(&addUsersFlags.sourceSheet, "source-sheet", "", "only registrants imported from this sheet")
	eventAddUsersCmd.Flags().BoolVar(&addUsersFlags.dryRun, "dry-run", false, "count matches without attaching")

	eventRemoveUsersCmd.Flags().UintVar(&removeUsersFlags.eventID, "event", 0, "event ID to detach from")
	eventRemoveUsersCmd.Flags().UintSliceVar(&removeUsersFlags.userIDs, "users", nil, "registrant IDs to detach")
	eventRemoveUsersCmd.Flags().BoolVar(&removeUsersFlags.dryRun, "dry-run", false, "report without detaching")

	eventCmd.AddCommand(eventListCmd, eventAddUsersCmd, eventRemoveUsersCmd)
	rootCmd.AddCommand(eventCmd)
}
