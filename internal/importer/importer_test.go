package importer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/tnsecretariat/regadmin/internal/models"
)

const testSheet = "Registrations"

// writeWorkbook builds a fixture spreadsheet: headers in row 2, data from
// row 3. A nil row map leaves the row blank.
func writeWorkbook(t *testing.T, headers map[string]string, rows []map[string]string) string {
	t.Helper()
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", testSheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for col, h := range headers {
		if err := f.SetCellValue(testSheet, col+"2", h); err != nil {
			t.Fatalf("set header %s: %v", col, err)
		}
	}
	for i, row := range rows {
		for col, v := range row {
			cell := fmt.Sprintf("%s%d", col, 3+i)
			if err := f.SetCellValue(testSheet, cell, v); err != nil {
				t.Fatalf("set cell %s: %v", cell, err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "registrations.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

var fixtureHeaders = map[string]string{
	"A": "First Name",
	"B": "Last Name",
	"C": "Email Address",
	"D": "Mobile Number",
	"E": "Vocation/Work Sphere",
	"F": "Attendance",
	"G": "Group",
	"H": "Reference Number",
}

func TestImportInsertThenUnchanged(t *testing.T) {
	st := newTestStore(t)
	path := writeWorkbook(t, fixtureHeaders, []map[string]string{
		{"A": "Maria", "B": "Santos", "C": "maria@example.com", "D": "0917 123 4567",
			"E": "Education; Government", "F": "1", "G": "Victory Pampanga", "H": "TN-001"},
		{"A": "Jose", "B": "Cruz", "C": "jose@example.com", "E": "Business/Economics"},
		nil, // blank row
		{"B": "Reyes", "F": "1"}, // no first name: sentinel insert
	})

	var out bytes.Buffer
	res, err := Run(st, "", Options{Path: path}, &out)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if res.Inserted != 3 || res.Updated != 0 || res.Unchanged != 0 || res.SkippedEmpty != 1 {
		t.Fatalf("first run counts: %+v", res)
	}

	maria, err := st.FindUserByName("Maria", "Santos")
	if err != nil || maria == nil {
		t.Fatalf("maria not found after import: %v", err)
	}
	if maria.Email != "maria@example.com" || !maria.Attendance {
		t.Errorf("maria fields wrong: %+v", maria)
	}
	if maria.SourceSheet != testSheet || maria.SourceRow == nil || *maria.SourceRow != 3 {
		t.Errorf("maria source bookkeeping wrong: sheet=%q row=%v", maria.SourceSheet, maria.SourceRow)
	}
	if maria.GroupID == nil {
		t.Error("maria group was not created")
	}
	spheres, err := st.SphereIDsForUser(maria.ID)
	if err != nil {
		t.Fatalf("maria spheres: %v", err)
	}
	if len(spheres) != 2 {
		t.Errorf("maria should have 2 spheres, got %v", spheres)
	}

	// A repeat run finds both named rows unchanged; the sentinel row can
	// never match and inserts again.
	res2, err := Run(st, "", Options{Path: path}, &out)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res2.Inserted != 1 || res2.Updated != 0 || res2.Unchanged != 2 {
		t.Fatalf("second run counts: %+v", res2)
	}
}

func TestImportDryRunMatchesRealRun(t *testing.T) {
	st := newTestStore(t)
	event := models.Event{Name: "TN Conference"}
	if err := st.DB.Create(&event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}

	// Row 5 repeats Maria with a different email, so the batch must classify
	// it as an update against the row-3 insert in both modes.
	path := writeWorkbook(t, fixtureHeaders, []map[string]string{
		{"A": "Maria", "B": "Santos", "C": "maria@example.com", "E": "Education"},
		{"A": "Jose", "B": "Cruz", "C": "jose@example.com"},
		{"A": "Maria", "B": "Santos", "C": "maria.santos@example.com", "E": "Education; Government"},
		nil,
		{"A": "Ana", "B": "Lim", "G": "Victory Taguig"},
	})

	var out bytes.Buffer
	dry, err := Run(st, "", Options{Path: path, EventID: event.ID, DryRun: true}, &out)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}

	live, err := Run(st, "", Options{Path: path, EventID: event.ID}, &out)
	if err != nil {
		t.Fatalf("real run: %v", err)
	}

	if diff := cmp.Diff(live, dry); diff != "" {
		t.Errorf("dry run diverged from real run (-real +dry):\n%s", diff)
	}
	if live.Inserted != 3 || live.Updated != 1 || live.AttachedToEvent != 3 {
		t.Fatalf("real run counts: %+v", live)
	}

	// The duplicate row's update landed on the inserted record.
	maria, err := st.FindUserByName("maria", "santos")
	if err != nil || maria == nil {
		t.Fatalf("maria not found: %v", err)
	}
	if maria.Email != "maria.santos@example.com" {
		t.Errorf("duplicate row update not applied: email=%q", maria.Email)
	}
	n, err := st.EventAttendeeCount(event.ID)
	if err != nil {
		t.Fatalf("attendee count: %v", err)
	}
	if n != 3 {
		t.Errorf("event should have 3 attendees, got %d", n)
	}
}

func TestImportDryRunParityForExistingRecord(t *testing.T) {
	st := newTestStore(t)
	seed := models.User{
		FirstName: "Maria", LastName: "Santos",
		Email: "old@example.com", Role: models.RoleUser, IsActive: true,
	}
	if err := st.DB.Create(&seed).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	event := models.Event{Name: "TN Conference"}
	if err := st.DB.Create(&event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}

	// Two identical rows for a record that predates the batch. The first is
	// an update; the second must diff against the post-update state in both
	// modes and come out unchanged.
	path := writeWorkbook(t, fixtureHeaders, []map[string]string{
		{"A": "Maria", "B": "Santos", "C": "new@example.com"},
		{"A": "Maria", "B": "Santos", "C": "new@example.com"},
	})

	var out bytes.Buffer
	dry, err := Run(st, "", Options{Path: path, EventID: event.ID, DryRun: true}, &out)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	live, err := Run(st, "", Options{Path: path, EventID: event.ID}, &out)
	if err != nil {
		t.Fatalf("real run: %v", err)
	}
	if diff := cmp.Diff(live, dry); diff != "" {
		t.Errorf("dry run diverged from real run (-real +dry):\n%s", diff)
	}
	if live.Updated != 1 || live.Unchanged != 1 || live.AttachedToEvent != 1 {
		t.Fatalf("real run counts: %+v", live)
	}

	// The record is now updated and linked; a fresh dry run sees no work.
	again, err := Run(st, "", Options{Path: path, EventID: event.ID, DryRun: true}, &out)
	if err != nil {
		t.Fatalf("repeat dry run: %v", err)
	}
	if again.Updated != 0 || again.Unchanged != 2 || again.AttachedToEvent != 0 {
		t.Fatalf("repeat dry run counts: %+v", again)
	}
}

func TestImportUpdatesExistingRecord(t *testing.T) {
	st := newTestStore(t)
	origRow := 42
	seed := models.User{
		FirstName: "Maria", LastName: "Santos",
		Email: "old@example.com", Role: models.RoleUser, IsActive: true,
		SourceSheet: "June Batch", SourceRow: &origRow,
	}
	if err := st.DB.Create(&seed).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	path := writeWorkbook(t, fixtureHeaders, []map[string]string{
		{"A": "maria", "B": "SANTOS", "C": "new@example.com", "E": "Education"},
	})
	var out bytes.Buffer
	res, err := Run(st, "", Options{Path: path}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Inserted != 0 || res.Updated != 1 {
		t.Fatalf("counts: %+v", res)
	}

	var got models.User
	if err := st.DB.First(&got, seed.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Email != "new@example.com" {
		t.Errorf("email not updated: %q", got.Email)
	}
	// Source bookkeeping names the row that produced the record; an update
	// never rewrites it.
	if got.SourceSheet != "June Batch" || got.SourceRow == nil || *got.SourceRow != 42 {
		t.Errorf("update rewrote source bookkeeping: sheet=%q row=%v", got.SourceSheet, got.SourceRow)
	}
	spheres, err := st.SphereIDsForUser(got.ID)
	if err != nil || len(spheres) != 1 {
		t.Errorf("sphere not attached: %v %v", spheres, err)
	}
}

func TestImportSkipExistingAndResume(t *testing.T) {
	st := newTestStore(t)
	path := writeWorkbook(t, fixtureHeaders, []map[string]string{
		{"A": "Maria", "B": "Santos"},
		{"A": "Jose", "B": "Cruz"},
	})

	var out bytes.Buffer
	if _, err := Run(st, "", Options{Path: path}, &out); err != nil {
		t.Fatalf("first run: %v", err)
	}

	res, err := Run(st, "", Options{Path: path, SkipExisting: true}, &out)
	if err != nil {
		t.Fatalf("skip-existing run: %v", err)
	}
	if res.SkippedExisting != 2 || res.Inserted != 0 || res.Unchanged != 0 {
		t.Fatalf("skip-existing counts: %+v", res)
	}

	res, err = Run(st, "", Options{Path: path, Resume: true}, &out)
	if err != nil {
		t.Fatalf("resume run: %v", err)
	}
	if res.StartRow != 5 {
		t.Errorf("resume should start past the last imported row, got %d", res.StartRow)
	}
	if res.Inserted != 0 || res.Unchanged != 0 || res.SkippedEmpty != 0 {
		t.Errorf("resume should process nothing: %+v", res)
	}
}

func TestImportStartRowPrecedence(t *testing.T) {
	st := newTestStore(t)
	path := writeWorkbook(t, fixtureHeaders, []map[string]string{
		{"A": "Maria", "B": "Santos"},
		{"A": "Jose", "B": "Cruz"},
	})

	var out bytes.Buffer
	res, err := Run(st, "", Options{Path: path, StartRow: 4}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Inserted != 1 {
		t.Fatalf("start-row run should only insert row 4: %+v", res)
	}
	if u, _ := st.FindUserByName("Maria", "Santos"); u != nil {
		t.Error("row 3 should have been skipped by --start-row")
	}

	// An explicit start below the first data row cannot reach the header.
	res, err = Run(st, "", Options{Path: path, StartRow: 1}, &out)
	if err != nil {
		t.Fatalf("low start-row run: %v", err)
	}
	if res.StartRow != 3 {
		t.Errorf("start row clamped to first data row, got %d", res.StartRow)
	}
}

func TestImportMissingRequiredColumn(t *testing.T) {
	st := newTestStore(t)
	path := writeWorkbook(t, map[string]string{"A": "Email Address"}, []map[string]string{
		{"A": "maria@example.com"},
	})
	var out bytes.Buffer
	if _, err := Run(st, "", Options{Path: path}, &out); err == nil {
		t.Fatal("import without name columns should fail")
	}
}

func TestImportInteractiveDecline(t *testing.T) {
	st := newTestStore(t)
	path := writeWorkbook(t, fixtureHeaders, []map[string]string{
		{"A": "Maria", "B": "Santos"},
	})
	// Keep every mapping, then answer "n" at the confirmation.
	in := bytes.NewBufferString("\n\n\n\n\n\n\n\nn\n")
	var out bytes.Buffer
	res, err := Run(st, "", Options{Path: path, Interactive: true, Stdin: in}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Aborted {
		t.Fatal("declined mapping should abort the batch")
	}
	if u, _ := st.FindUserByName("Maria", "Santos"); u != nil {
		t.Error("aborted batch must not write")
	}
}

func TestPayloadToUserLegacySphereColumn(t *testing.T) {
	p := &RowPayload{FirstName: "Maria", LastName: "Santos", Row: 7}
	u := payloadToUser(p, nil, []uint{2, 5}, testSheet)
	if u.VocationWorkSphere == nil || *u.VocationWorkSphere != "2, 5" {
		t.Errorf("legacy sphere column = %v, want \"2, 5\"", u.VocationWorkSphere)
	}
	if u.SourceRow == nil || *u.SourceRow != 7 || u.SourceSheet != testSheet {
		t.Errorf("source bookkeeping wrong: %+v", u)
	}
}
