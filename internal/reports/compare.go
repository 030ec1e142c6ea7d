package reports

import (
	"fmt"
	"io"
	"sort"

	"github.com/tnsecretariat/regadmin/internal/models"
	"github.com/tnsecretariat/regadmin/internal/store"
)

// CompareAttendance reconciles the sheet's attendance column against the
// database's attendance flags. Placeholder rows (sentinel in both name
// fields) are excluded before comparison; they can never match a stored
// record and would only inflate the sheet-only list.
func CompareAttendance(st *store.Store, importDir string, opts SheetOptions, w io.Writer) error {
	sheetName, rows, err := scanSheet(importDir, opts)
	if err != nil {
		return err
	}

	// Every named row goes into the map, attended or not, so a stored
	// attendee whose sheet row is unmarked shows up as a mismatch rather
	// than as missing.
	excluded := 0
	blanks := 0
	attendedTotal := 0
	sheetKeys := make(map[string][]attendee)
	for _, a := range rows {
		if a.placeholder() {
			if a.Attended {
				attendedTotal++
				excluded++
			}
			continue
		}
		if a.blankName() {
			if a.Attended {
				attendedTotal++
				blanks++
			}
			continue
		}
		if a.Attended {
			attendedTotal++
		}
		k := store.MatchKey(a.FirstName, a.LastName)
		sheetKeys[k] = append(sheetKeys[k], a)
	}

	// Extra attended rows per key beyond the first.
	extraDups := 0
	attendedKeys := 0
	sheetAttended := make(map[string]bool, len(sheetKeys))
	for k, group := range sheetKeys {
		n := 0
		for _, a := range group {
			if a.Attended {
				n++
			}
		}
		if n > 0 {
			sheetAttended[k] = true
			attendedKeys++
			extraDups += n - 1
		}
	}

	type dbRec struct {
		user     models.User
		attended bool
	}
	var dbUsers []models.User
	err = st.DB.Where("role = ?", models.RoleUser).
		Select("id", "first_name", "last_name", "attendance").
		Find(&dbUsers).Error
	if err != nil {
		return err
	}
	dbKeys := make(map[string]dbRec, len(dbUsers))
	dbAttendedTotal := 0
	for _, u := range dbUsers {
		dbKeys[store.MatchKey(u.FirstName, u.LastName)] = dbRec{user: u, attended: u.Attendance}
		if u.Attendance {
			dbAttendedTotal++
		}
	}

	var matched, mismatch, sheetOnly, dbOnly []string
	for k := range sheetKeys {
		rec, inDB := dbKeys[k]
		switch {
		case inDB && sheetAttended[k] == rec.attended:
			if sheetAttended[k] {
				matched = append(matched, k)
			}
		case inDB:
			mismatch = append(mismatch, k)
		case sheetAttended[k]:
			sheetOnly = append(sheetOnly, k)
		}
	}
	for k, rec := range dbKeys {
		if _, inSheet := sheetKeys[k]; !inSheet && rec.attended {
			dbOnly = append(dbOnly, k)
		}
	}
	sort.Strings(matched)
	sort.Strings(mismatch)
	sort.Strings(sheetOnly)
	sort.Strings(dbOnly)

	fmt.Fprintf(w, "Comparing attendance in sheet %q against the database\n\n", sheetName)
	fmt.Fprintf(w, "Sheet rows marked attended:          %d\n", attendedTotal)
	fmt.Fprintf(w, "  excluded placeholder rows:         %d\n", excluded)
	fmt.Fprintf(w, "  excluded blank-name rows:          %d\n", blanks)
	fmt.Fprintf(w, "  duplicate extra rows:              %d\n", extraDups)
	fmt.Fprintf(w, "  unique attendee names in sheet:    %d (= %d - %d - %d - %d)\n",
		attendedKeys, attendedTotal, excluded, blanks, extraDups)
	fmt.Fprintf(w, "Database users flagged attended:     %d\n\n", dbAttendedTotal)
	fmt.Fprintf(w, "Attended in both sheet and database: %d\n", len(matched))
	fmt.Fprintf(w, "In both with differing attendance:   %d\n", len(mismatch))
	fmt.Fprintf(w, "Attended in sheet, not in database:  %d\n", len(sheetOnly))
	fmt.Fprintf(w, "Attended in database, not in sheet:  %d\n", len(dbOnly))

	var dupKeys []string
	for k, group := range sheetKeys {
		n := 0
		for _, a := range group {
			if a.Attended {
				n++
			}
		}
		if n > 1 {
			dupKeys = append(dupKeys, k)
		}
	}
	sort.Strings(dupKeys)
	if len(dupKeys) > 0 {
		fmt.Fprintf(w, "\nDuplicate attended names in sheet:\n")
		printCapped(func(i int) {
			group := sheetKeys[dupKeys[i]]
			rowNums := make([]int, 0, len(group))
			for _, a := range group {
				if a.Attended {
					rowNums = append(rowNums, a.Row)
				}
			}
			fmt.Fprintf(w, "  %s %s: rows %v\n", group[0].FirstName, group[0].LastName, rowNums)
		}, len(dupKeys), func(hidden int) {
			fmt.Fprintf(w, "  ...and %d more\n", hidden)
		})
	}

	if len(mismatch) > 0 {
		fmt.Fprintf(w, "\nDiffering attendance (sheet vs database):\n")
		printCapped(func(i int) {
			k := mismatch[i]
			a := sheetKeys[k][0]
			fmt.Fprintf(w, "  row %d: %s %s (sheet=%v db=%v)\n",
				a.Row, a.FirstName, a.LastName, sheetAttended[k], dbKeys[k].attended)
		}, len(mismatch), func(hidden int) {
			fmt.Fprintf(w, "  ...and %d more\n", hidden)
		})
	}

	if len(sheetOnly) > 0 {
		fmt.Fprintf(w, "\nAttended in sheet, missing from database:\n")
		printCapped(func(i int) {
			a := sheetKeys[sheetOnly[i]][0]
			fmt.Fprintf(w, "  row %d: %s %s\n", a.Row, a.FirstName, a.LastName)
		}, len(sheetOnly), func(hidden int) {
			fmt.Fprintf(w, "  ...and %d more\n", hidden)
		})
	}

	if len(dbOnly) > 0 {
		fmt.Fprintf(w, "\nFlagged attended in database, absent from sheet:\n")
		printCapped(func(i int) {
			u := dbKeys[dbOnly[i]].user
			fmt.Fprintf(w, "  user %d: %s %s\n", u.ID, u.FirstName, u.LastName)
		}, len(dbOnly), func(hidden int) {
			fmt.Fprintf(w, "  ...and %d more\n", hidden)
		})
	}

	return nil
}
