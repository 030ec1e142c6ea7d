package importer

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/store"
	"github.com/tnsecretariat/regadmin/internal/xlsx"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	if err := db.Init(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("db init: %v", err)
	}
	if err := db.SeedSpheres(db.Conn()); err != nil {
		t.Fatalf("seed spheres: %v", err)
	}
	return store.New(db.Conn())
}

func TestSplitLabels(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Education; Government", []string{"Education", "Government"}},
		{"Education, Government", []string{"Education", "Government"}},
		{"Education | Government", []string{"Education", "Government"}},
		{"Education\nGovernment", []string{"Education", "Government"}},
		{"Education or Government", []string{"Education", "Government"}},
		{"Education OR Government", []string{"Education", "Government"}},
		{"Education; ; Education", []string{"Education"}},
		{"  ", nil},
		{"Doctorate", []string{"Doctorate"}},
	}
	for _, c := range cases {
		got := SplitLabels(c.in)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("SplitLabels(%q) mismatch (-want +got):\n%s", c.in, diff)
		}
	}
}

// "or" must only split as a standalone word; names containing the letters
// keep their meaning.
func TestSplitLabelsWordBoundary(t *testing.T) {
	got := SplitLabels("Government")
	if len(got) != 1 || got[0] != "Government" {
		t.Fatalf("SplitLabels(\"Government\") = %v, want the label intact", got)
	}
}

func TestResolveLabels(t *testing.T) {
	st := newTestStore(t)
	idx, err := st.LoadSphereIndex()
	if err != nil {
		t.Fatalf("load sphere index: %v", err)
	}

	edu, ok := idx.ByNameFold("education")
	if !ok {
		t.Fatal("seeded Education sphere not found by folded name")
	}
	gov, ok := idx.BySlug("government")
	if !ok {
		t.Fatal("seeded Government sphere not found by slug")
	}

	ids, unresolved := ResolveLabels([]string{"Education", "education", "Government", "Sports"}, idx)
	if diff := cmp.Diff([]uint{edu.ID, gov.ID}, ids); diff != "" {
		t.Errorf("resolved IDs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Sports"}, unresolved); diff != "" {
		t.Errorf("unresolved labels mismatch (-want +got):\n%s", diff)
	}
}

// Slug resolution and case-insensitive name resolution both reach the same
// canonical rows.
func TestResolveLabelsSlugAndName(t *testing.T) {
	st := newTestStore(t)
	idx, err := st.LoadSphereIndex()
	if err != nil {
		t.Fatalf("load sphere index: %v", err)
	}

	bySlug, _ := ResolveLabels([]string{"business-economics"}, idx)
	byName, _ := ResolveLabels([]string{"BUSINESS/ECONOMICS"}, idx)
	if len(bySlug) != 1 || len(byName) != 1 || bySlug[0] != byName[0] {
		t.Fatalf("slug and folded-name resolution disagree: %v vs %v", bySlug, byName)
	}
}

// Checkbox columns only contribute when the multi-select cell is empty, and
// each contributes the label after the header separator.
func TestRowSphereLabelsCheckboxFallback(t *testing.T) {
	path := writeWorkbook(t, map[string]string{
		"A": "First Name",
		"B": "Last Name",
		"C": "Vocation/Work Sphere",
		"D": "Vocation/Work Sphere - Education",
		"E": "Vocation/Work Sphere: Government",
	}, []map[string]string{
		{"A": "Maria", "B": "Santos", "D": "1", "E": "x"},
		{"A": "Jose", "B": "Cruz", "C": "Media/Arts/Entertainment", "D": "1"},
		{"A": "Ana", "B": "Lim", "D": "no", "E": ""},
	})
	_, sheet := openFixture(t, path)
	cols, _ := xlsx.ColumnSpan("A", "Z")
	idx := ReadHeaders(sheet, 2, cols, DefaultColumnMap())

	p := BuildPayload(sheet, 3, idx)
	got := RowSphereLabels(sheet, p, idx)
	if diff := cmp.Diff([]string{"education", "government"}, got); diff != "" {
		t.Errorf("checkbox labels mismatch (-want +got):\n%s", diff)
	}

	p = BuildPayload(sheet, 4, idx)
	got = RowSphereLabels(sheet, p, idx)
	if diff := cmp.Diff([]string{"Media/Arts/Entertainment"}, got); diff != "" {
		t.Errorf("multi-select should win over checkboxes (-want +got):\n%s", diff)
	}

	p = BuildPayload(sheet, 5, idx)
	if got = RowSphereLabels(sheet, p, idx); len(got) != 0 {
		t.Errorf("unchecked boxes produced labels: %v", got)
	}
}
