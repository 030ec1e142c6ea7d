// Package reports implements the read-only reconciliation reports that
// compare a registration spreadsheet against the database: the attendance
// column analysis, the sheet/database attendance comparison, and the
// missing-attendee export.
package reports

import (
	"fmt"
	"strings"

	"github.com/tnsecretariat/regadmin/internal/importer"
	"github.com/tnsecretariat/regadmin/internal/xlsx"
)

// SheetOptions locates the attendance data inside a spreadsheet. The
// defaults mirror the import defaults so the two tools agree on what a data
// row is.
type SheetOptions struct {
	Path      string
	Sheet     string
	HeaderRow int
	StartCol  string
	EndCol    string
}

func (o SheetOptions) withDefaults() SheetOptions {
	if o.HeaderRow == 0 {
		o.HeaderRow = 2
	}
	if o.StartCol == "" {
		o.StartCol = "A"
	}
	if o.EndCol == "" {
		o.EndCol = "Z"
	}
	return o
}

// attendee is one scanned sheet row reduced to the columns the reports need.
type attendee struct {
	Row           int
	FirstName     string
	LastName      string
	Email         string
	AttendanceRaw string
	Attended      bool
}

func (a attendee) placeholder() bool {
	return strings.EqualFold(a.FirstName, importer.NameSentinel) &&
		strings.EqualFold(a.LastName, importer.NameSentinel)
}

func (a attendee) blankName() bool {
	return a.FirstName == "" && a.LastName == ""
}

// scanSheet reads every data row and returns the attendance-relevant slice of
// it. Rows with no name and no attendance mark are dropped as trailing noise.
func scanSheet(importDir string, opts SheetOptions) (string, []attendee, error) {
	o := opts.withDefaults()

	f, err := xlsx.Open(o.Path, importDir)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	sheetName, err := f.ResolveSheet(o.Sheet)
	if err != nil {
		return "", nil, err
	}
	sheet := f.Sheet(sheetName)

	cols, err := xlsx.ColumnSpan(o.StartCol, o.EndCol)
	if err != nil {
		return "", nil, err
	}

	idx := importer.ReadHeaders(sheet, o.HeaderRow, cols, importer.DefaultColumnMap())
	for _, required := range []string{importer.FieldFirstName, importer.FieldLastName, importer.FieldAttendance} {
		if idx.Column(required) == "" {
			return "", nil, fmt.Errorf("required column %q not found in header row %d of %q",
				required, o.HeaderRow, sheetName)
		}
	}

	firstCol := idx.Column(importer.FieldFirstName)
	lastCol := idx.Column(importer.FieldLastName)
	attCol := idx.Column(importer.FieldAttendance)
	emailCol := idx.Column(importer.FieldEmail)

	var rows []attendee
	for row := o.HeaderRow + 1; row <= sheet.LastRow(); row++ {
		a := attendee{
			Row:           row,
			FirstName:     strings.TrimSpace(sheet.Cell(firstCol, row)),
			LastName:      strings.TrimSpace(sheet.Cell(lastCol, row)),
			AttendanceRaw: strings.TrimSpace(sheet.Cell(attCol, row)),
		}
		if emailCol != "" {
			a.Email = strings.TrimSpace(sheet.Cell(emailCol, row))
		}
		if a.blankName() && a.AttendanceRaw == "" {
			continue
		}
		a.Attended = importer.ParseBool(a.AttendanceRaw)
		rows = append(rows, a)
	}
	return sheetName, rows, nil
}

// listCap bounds printed row lists. Reports stay readable even when a sheet
// has hundreds of anomalies.
const listCap = 20

func printCapped(print func(i int), n int, more func(hidden int)) {
	shown := n
	if shown > listCap {
		shown = listCap
	}
	for i := 0; i < shown; i++ {
		print(i)
	}
	if n > listCap {
		more(n - listCap)
	}
}
