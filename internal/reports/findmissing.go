package reports

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tnsecretariat/regadmin/internal/store"
)

// FindMissing lists sheet rows marked attended whose names have no stored
// record, and writes them to a fixed-width report file for manual follow-up.
// Placeholder and blank-name rows are skipped; they are attendance
// bookkeeping artifacts, not people to chase.
func FindMissing(st *store.Store, importDir string, opts SheetOptions, outPath string, w io.Writer) error {
	sheetName, rows, err := scanSheet(importDir, opts)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = "missing_attendees.txt"
	}

	var missing []attendee
	checked := 0
	for _, a := range rows {
		if !a.Attended || a.placeholder() || a.blankName() {
			continue
		}
		checked++
		exists, err := st.UserExistsByName(a.FirstName, a.LastName)
		if err != nil {
			return err
		}
		if !exists {
			missing = append(missing, a)
		}
	}

	fmt.Fprintf(w, "Checked %d attended row(s) in sheet %q: %d missing from the database\n",
		checked, sheetName, len(missing))

	if len(missing) == 0 {
		fmt.Fprintln(w, "Nothing to write.")
		return nil
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Fprintf(out, "%-6s %-25s %-25s %s\n", "ROW", "FIRST NAME", "LAST NAME", "EMAIL")
	for _, a := range missing {
		fmt.Fprintf(out, "%-6d %-25s %-25s %s\n", a.Row, a.FirstName, a.LastName, a.Email)
	}

	fmt.Fprintf(w, "Wrote %d row(s) to %s\n", len(missing), outPath)
	printCapped(func(i int) {
		fmt.Fprintf(w, "  row %d: %s %s\n", missing[i].Row, missing[i].FirstName, missing[i].LastName)
	}, len(missing), func(hidden int) {
		fmt.Fprintf(w, "  ...and %d more\n", hidden)
	})
	return nil
}
