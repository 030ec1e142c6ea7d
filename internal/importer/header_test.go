package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tnsecretariat/regadmin/internal/xlsx"
)

func openFixture(t *testing.T, path string) (*xlsx.File, *xlsx.Sheet) {
	t.Helper()
	f, err := xlsx.Open(path, "")
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	name, err := f.ResolveSheet("")
	if err != nil {
		t.Fatalf("resolve sheet: %v", err)
	}
	return f, f.Sheet(name)
}

func TestReadHeaders(t *testing.T) {
	path := writeWorkbook(t, map[string]string{
		"A": "First Name",
		"B": "LAST NAME", // case must not matter
		"C": "Email Confrimation\nTN Secretariat", // sheet typo, wrapped
		"D": "Favorite Color",                     // unmapped
		"E": "First Name",                         // duplicate: first wins
	}, nil)
	_, sheet := openFixture(t, path)

	cols, err := xlsx.ColumnSpan("A", "Z")
	if err != nil {
		t.Fatalf("column span: %v", err)
	}
	idx := ReadHeaders(sheet, 2, cols, DefaultColumnMap())

	if got := idx.Column(FieldFirstName); got != "A" {
		t.Errorf("first_name at %q, want A (duplicate header must not win)", got)
	}
	if got := idx.Column(FieldLastName); got != "B" {
		t.Errorf("last_name at %q, want B", got)
	}
	if got := idx.Column(FieldEmailConfirmed); got != "C" {
		t.Errorf("email_confirmed at %q, want C", got)
	}
	if len(idx.Unmapped) != 1 || idx.Unmapped[0] != "favorite color" {
		t.Errorf("unmapped = %v, want [favorite color]", idx.Unmapped)
	}
}

func TestOverrideInteractiveRemapAndUnmap(t *testing.T) {
	path := writeWorkbook(t, map[string]string{
		"A": "First Name",
		"B": "Last Name",
		"C": "Favorite Color",
	}, nil)
	_, sheet := openFixture(t, path)

	cols, _ := xlsx.ColumnSpan("A", "Z")
	idx := ReadHeaders(sheet, 2, cols, DefaultColumnMap())

	// Keep A, unmap B, map the unmapped C to notes, confirm.
	in := bytes.NewBufferString("\n-\nnotes\ny\n")
	var out bytes.Buffer
	ok, err := idx.OverrideInteractive(in, &out)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if !ok {
		t.Fatal("confirmed mapping reported as declined")
	}
	if got := idx.Column(FieldFirstName); got != "A" {
		t.Errorf("first_name at %q after keep", got)
	}
	if got := idx.Column(FieldLastName); got != "" {
		t.Errorf("last_name still mapped to %q after unmap", got)
	}
	if got := idx.Column(FieldNotes); got != "C" {
		t.Errorf("notes at %q, want C", got)
	}
	if !strings.Contains(out.String(), "Effective column map:") {
		t.Error("effective map was not echoed")
	}
}

func TestOverrideInteractiveRejectsDoubleMapping(t *testing.T) {
	path := writeWorkbook(t, map[string]string{
		"A": "First Name",
		"B": "Last Name",
	}, nil)
	_, sheet := openFixture(t, path)

	cols, _ := xlsx.ColumnSpan("A", "Z")
	idx := ReadHeaders(sheet, 2, cols, DefaultColumnMap())

	// Remap B to first_name, which A already holds.
	in := bytes.NewBufferString("\nfirst_name\ny\n")
	var out bytes.Buffer
	if _, err := idx.OverrideInteractive(in, &out); err == nil {
		t.Fatal("mapping one field to two columns must error")
	}
}

func TestPrintAuditListsMissingHeaders(t *testing.T) {
	path := writeWorkbook(t, map[string]string{"A": "First Name"}, nil)
	_, sheet := openFixture(t, path)

	cols, _ := xlsx.ColumnSpan("A", "Z")
	idx := ReadHeaders(sheet, 2, cols, DefaultColumnMap())

	var out bytes.Buffer
	idx.PrintAudit(&out, DefaultColumnMap())
	s := out.String()
	if !strings.Contains(s, `"first name" (first_name) -> found at column A`) {
		t.Errorf("audit missing found line:\n%s", s)
	}
	if !strings.Contains(s, `"last name" (last_name) -> MISSING`) {
		t.Errorf("audit missing MISSING line:\n%s", s)
	}
}
