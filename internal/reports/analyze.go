package reports

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/tnsecretariat/regadmin/internal/importer"
	"github.com/tnsecretariat/regadmin/internal/store"
)

// Analyze inspects the attendance column of a sheet before an import: it
// histograms the raw cell values, flags attended rows with blank names,
// lists duplicate names among the attendees, and predicts how many distinct
// records an attendance-filtered import would produce.
func Analyze(importDir string, opts SheetOptions, w io.Writer) error {
	sheetName, rows, err := scanSheet(importDir, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Analyzing attendance in sheet %q (%d data row(s))\n\n", sheetName, len(rows))

	hist := make(map[string]int)
	var attended []attendee
	for _, a := range rows {
		v := a.AttendanceRaw
		if v == "" {
			v = "(blank)"
		}
		hist[v]++
		if a.Attended {
			attended = append(attended, a)
		}
	}

	values := make([]string, 0, len(hist))
	for v := range hist {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if hist[values[i]] != hist[values[j]] {
			return hist[values[i]] > hist[values[j]]
		}
		return values[i] < values[j]
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VALUE\tCOUNT\tCOUNTS AS ATTENDED")
	for _, v := range values {
		attendedMark := "no"
		if v != "(blank)" && importer.ParseBool(v) {
			attendedMark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", v, hist[v], attendedMark)
	}
	tw.Flush()

	var blanks []attendee
	byKey := make(map[string][]attendee)
	for _, a := range attended {
		if a.blankName() {
			blanks = append(blanks, a)
			continue
		}
		k := store.MatchKey(a.FirstName, a.LastName)
		byKey[k] = append(byKey[k], a)
	}

	fmt.Fprintf(w, "\nRows counted as attended: %d\n", len(attended))

	if len(blanks) > 0 {
		fmt.Fprintf(w, "\nAttended rows with blank names: %d\n", len(blanks))
		printCapped(func(i int) {
			fmt.Fprintf(w, "  row %d (attendance=%q)\n", blanks[i].Row, blanks[i].AttendanceRaw)
		}, len(blanks), func(hidden int) {
			fmt.Fprintf(w, "  ...and %d more\n", hidden)
		})
	}

	var dupKeys []string
	extraDups := 0
	for k, group := range byKey {
		if len(group) > 1 {
			dupKeys = append(dupKeys, k)
			extraDups += len(group) - 1
		}
	}
	sort.Strings(dupKeys)

	if len(dupKeys) > 0 {
		fmt.Fprintf(w, "\nDuplicate names among attendees: %d name(s), %d extra row(s)\n",
			len(dupKeys), extraDups)
		printCapped(func(i int) {
			group := byKey[dupKeys[i]]
			rowNums := make([]int, len(group))
			for j, a := range group {
				rowNums[j] = a.Row
			}
			fmt.Fprintf(w, "  %s %s: rows %v\n", group[0].FirstName, group[0].LastName, rowNums)
		}, len(dupKeys), func(hidden int) {
			fmt.Fprintf(w, "  ...and %d more\n", hidden)
		})
	}

	expected := len(attended) - len(blanks) - extraDups
	fmt.Fprintf(w, "\nExpected distinct attendees after import: %d (%d attended - %d blank - %d duplicate)\n",
		expected, len(attended), len(blanks), extraDups)
	return nil
}
