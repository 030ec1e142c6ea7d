// Package xlsx wraps excelize with the small surface the import and
// reconciliation commands need: path resolution against the configured import
// directory, case-insensitive sheet lookup, and cell access by column letter
// and 1-based row.
package xlsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type File struct {
	f *excelize.File
}

// Open resolves path and opens the workbook. A path that exists as given (or
// is absolute) is used directly; otherwise it is looked up under importDir.
func Open(path, importDir string) (*File, error) {
	resolved := path
	if _, err := os.Stat(resolved); err != nil {
		if filepath.IsAbs(path) {
			return nil, fmt.Errorf("spreadsheet not found: %s", path)
		}
		resolved = filepath.Join(importDir, path)
		if _, err := os.Stat(resolved); err != nil {
			return nil, fmt.Errorf("spreadsheet not found: %s (also tried %s)", path, resolved)
		}
	}
	f, err := excelize.OpenFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", resolved, err)
	}
	return &File{f: f}, nil
}

func (x *File) Close() error { return x.f.Close() }

// SheetNames returns the workbook's sheet names in order.
func (x *File) SheetNames() []string { return x.f.GetSheetList() }

// ResolveSheet finds a sheet by case-insensitive, whitespace-trimmed name.
// An empty wanted selects the first sheet. The returned name is the sheet's
// real (exact) name.
func (x *File) ResolveSheet(wanted string) (string, error) {
	names := x.f.GetSheetList()
	if len(names) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if strings.TrimSpace(wanted) == "" {
		return names[0], nil
	}
	w := strings.TrimSpace(wanted)
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), w) {
			return n, nil
		}
	}
	return "", &SheetNotFoundError{Wanted: wanted, Available: names}
}

// SheetNotFoundError lets callers list the available sheets before exiting.
type SheetNotFoundError struct {
	Wanted    string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet %q not found (available: %s)", e.Wanted, strings.Join(e.Available, ", "))
}

// Sheet is a handle on one worksheet.
type Sheet struct {
	x    *File
	Name string
}

func (x *File) Sheet(name string) *Sheet { return &Sheet{x: x, Name: name} }

// Cell returns the calculated, formatted value at e.g. ("B", 3). Errors from
// excelize only occur for invalid references, which the column helpers below
// never produce, so the value is returned bare.
func (s *Sheet) Cell(col string, row int) string {
	v, _ := s.x.f.GetCellValue(s.Name, fmt.Sprintf("%s%d", col, row))
	return v
}

// LastRow reports the highest populated row number (1-based), 0 for an empty
// sheet.
func (s *Sheet) LastRow() int {
	rows, err := s.x.f.GetRows(s.Name)
	if err != nil {
		return 0
	}
	return len(rows)
}

// NextColumn returns the column letter after col ("A"→"B", "Z"→"AA").
func NextColumn(col string) string {
	n, err := excelize.ColumnNameToNumber(col)
	if err != nil {
		return ""
	}
	name, _ := excelize.ColumnNumberToName(n + 1)
	return name
}

// ColumnSpan expands an inclusive letter range into its column names.
func ColumnSpan(start, end string) ([]string, error) {
	a, err := excelize.ColumnNameToNumber(strings.ToUpper(start))
	if err != nil {
		return nil, fmt.Errorf("bad start column %q: %w", start, err)
	}
	b, err := excelize.ColumnNameToNumber(strings.ToUpper(end))
	if err != nil {
		return nil, fmt.Errorf("bad end column %q: %w", end, err)
	}
	if b < a {
		return nil, fmt.Errorf("end column %s before start column %s", end, start)
	}
	cols := make([]string, 0, b-a+1)
	for i := a; i <= b; i++ {
		name, _ := excelize.ColumnNumberToName(i)
		cols = append(cols, name)
	}
	return cols, nil
}
