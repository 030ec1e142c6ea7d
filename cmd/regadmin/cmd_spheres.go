package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/importer"
	"github.com/tnsecretariat/regadmin/internal/models"
)

var spheresCmd = &cobra.Command{
	Use:   "spheres",
	Short: "Maintain the canonical sphere set and user links",
}

var spheresSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Seed or refresh the canonical spheres",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.SeedSpheres(db.Conn()); err != nil {
			return err
		}
		idx, err := st().LoadSphereIndex()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Canonical spheres:")
		for _, s := range idx.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %2d  %-40s %s\n", s.ID, s.Name, s.Slug)
		}
		return nil
	},
}

var spheresDryRun bool

// legacyIDs parses a comma-joined numeric ID list; ok is false when any part
// is not a number.
func legacyIDs(raw string) ([]uint, bool) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, false
		}
		ids = append(ids, uint(n))
	}
	return ids, true
}

var spheresAttachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Backfill pivot links from the legacy sphere ID column",
	Long: `Older imports stored sphere IDs as a comma-joined string on the
registrant. This walks those values and creates the missing pivot links.
Values that are not numeric ID lists are left for "spheres fix".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := st().LoadSphereIndex()
		if err != nil {
			return err
		}
		known := make(map[uint]bool)
		for _, s := range idx.All() {
			known[s.ID] = true
		}

		var users []models.User
		err = db.Conn().
			Where("role = ? AND vocation_work_sphere IS NOT NULL AND vocation_work_sphere != ''", models.RoleUser).
			Find(&users).Error
		if err != nil {
			return err
		}

		linked, skippedText, badIDs := 0, 0, 0
		for i := range users {
			u := &users[i]
			ids, ok := legacyIDs(*u.VocationWorkSphere)
			if !ok {
				skippedText++
				continue
			}
			valid := ids[:0]
			for _, id := range ids {
				if known[id] {
					valid = append(valid, id)
				} else {
					badIDs++
				}
			}
			if len(valid) == 0 {
				continue
			}
			existing, err := st().SphereIDsForUser(u.ID)
			if err != nil {
				return err
			}
			have := make(map[uint]bool, len(existing))
			for _, id := range existing {
				have[id] = true
			}
			var missing []uint
			for _, id := range valid {
				if !have[id] {
					missing = append(missing, id)
				}
			}
			if len(missing) == 0 {
				continue
			}
			linked += len(missing)
			if !spheresDryRun {
				if err := st().AttachSpheres(u.ID, missing); err != nil {
					return err
				}
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"Checked %d registrant(s): %d link(s) created, %d text value(s) left for fix, %d unknown ID(s) ignored\n",
			len(users), linked, skippedText, badIDs)
		if spheresDryRun {
			fmt.Fprintln(cmd.OutOrStdout(), "DRY RUN - nothing was written")
		}
		return nil
	},
}

var spheresFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Resolve free-text sphere labels left in the legacy column",
	Long: `Registrants whose legacy sphere column holds label text rather than
IDs get the labels resolved against the canonical set, the pivot links
created, and the column rewritten to the resolved ID list. Labels that do not
resolve are reported and the value is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := st().LoadSphereIndex()
		if err != nil {
			return err
		}

		var users []models.User
		err = db.Conn().
			Where("role = ? AND vocation_work_sphere IS NOT NULL AND vocation_work_sphere != ''", models.RoleUser).
			Find(&users).Error
		if err != nil {
			return err
		}

		fixed, unresolvedUsers := 0, 0
		unresolvedLabels := make(map[string]int)
		for i := range users {
			u := &users[i]
			if _, ok := legacyIDs(*u.VocationWorkSphere); ok {
				continue // numeric values belong to "spheres attach"
			}
			labels := importer.SplitLabels(*u.VocationWorkSphere)
			ids, unresolved := importer.ResolveLabels(labels, idx)
			for _, l := range unresolved {
				unresolvedLabels[l]++
			}
			if len(unresolved) > 0 {
				unresolvedUsers++
				continue
			}
			if len(ids) == 0 {
				continue
			}
			fixed++
			if spheresDryRun {
				continue
			}
			if err := st().AttachSpheres(u.ID, ids); err != nil {
				return err
			}
			parts := make([]string, len(ids))
			for j, id := range ids {
				parts[j] = strconv.FormatUint(uint64(id), 10)
			}
			joined := strings.Join(parts, ", ")
			err := db.Conn().Model(u).Update("vocation_work_sphere", joined).Error
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Fixed %d registrant(s); %d left with unresolved labels\n",
			fixed, unresolvedUsers)
		for l, n := range unresolvedLabels {
			fmt.Fprintf(cmd.OutOrStdout(), "  unresolved %q (%d)\n", l, n)
		}
		if spheresDryRun {
			fmt.Fprintln(cmd.OutOrStdout(), "DRY RUN - nothing was written")
		}
		return nil
	},
}

func init() {
	spheresAttachCmd.Flags().BoolVar(&spheresDryRun, "dry-run", false, "report without writing")
	spheresFixCmd.Flags().BoolVar(&spheresDryRun, "dry-run", false, "report without writing")
	spheresCmd.AddCommand(spheresSyncCmd, spheresAttachCmd, spheresFixCmd)
	rootCmd.AddCommand(spheresCmd)
}
