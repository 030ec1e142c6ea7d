package importer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tnsecretariat/regadmin/internal/models"
)

func strPtr(s string) *string { return &s }
func uintPtr(n uint) *uint    { return &n }

func TestDiffEmptyIncomingNeverOverwrites(t *testing.T) {
	stored := &models.User{
		Email:        "maria@example.com",
		MobileNumber: "0917 123 4567",
		ChurchName:   "Victory Pampanga",
	}
	p := &RowPayload{FirstName: "Maria", LastName: "Santos"} // all scalars blank

	cs := Diff(stored, p, nil, nil, nil)
	if len(cs.Fields) != 0 {
		t.Errorf("blank incoming scalars produced field changes: %+v", cs.Fields)
	}
}

func TestDiffDetectsScalarAndEnumChanges(t *testing.T) {
	stored := &models.User{
		Email:            "old@example.com",
		WorkingOrStudent: strPtr("student"),
	}
	p := &RowPayload{
		FirstName:        "Maria",
		LastName:         "Santos",
		Email:            "new@example.com",
		WorkingOrStudent: strPtr("working"),
	}

	cs := Diff(stored, p, nil, nil, nil)
	want := []FieldChange{
		{Column: "email", Old: "old@example.com", New: "new@example.com"},
		{Column: "working_or_student", Old: "student", New: "working"},
	}
	if diff := cmp.Diff(want, cs.Fields); diff != "" {
		t.Errorf("field changes mismatch (-want +got):\n%s", diff)
	}
}

// Flags are two-way: a cleared attendance mark in the source clears the
// stored flag, unlike scalars.
func TestDiffFlagsClearAndSet(t *testing.T) {
	stored := &models.User{Attendance: true, Reconciled: false}
	p := &RowPayload{FirstName: "Maria", LastName: "Santos", Attendance: false, Reconciled: true}

	cs := Diff(stored, p, nil, nil, nil)
	want := []FlagChange{
		{Column: "reconciled", Old: false, New: true},
		{Column: "attendance", Old: true, New: false},
	}
	if diff := cmp.Diff(want, cs.Flags); diff != "" {
		t.Errorf("flag changes mismatch (-want +got):\n%s", diff)
	}
}

// Sphere merges are additive: stored links absent from the row survive.
func TestDiffSpheresAdditive(t *testing.T) {
	stored := &models.User{}
	p := &RowPayload{FirstName: "Maria", LastName: "Santos"}

	cs := Diff(stored, p, []uint{1, 2}, []uint{2, 5}, nil)
	if diff := cmp.Diff([]uint{5}, cs.SpheresToAttach); diff != "" {
		t.Errorf("spheres to attach mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffGroupChange(t *testing.T) {
	stored := &models.User{GroupID: uintPtr(3)}
	p := &RowPayload{FirstName: "Maria", LastName: "Santos"}

	if cs := Diff(stored, p, nil, nil, uintPtr(3)); cs.NewGroupID != nil {
		t.Error("same group should not produce a change")
	}
	cs := Diff(stored, p, nil, nil, uintPtr(7))
	if cs.NewGroupID == nil || *cs.NewGroupID != 7 {
		t.Errorf("group change not detected: %+v", cs.NewGroupID)
	}
	if cs2 := Diff(stored, p, nil, nil, nil); cs2.NewGroupID != nil {
		t.Error("row without a group should leave the stored group alone")
	}
}

func TestChangeSetEmptyAndUpdates(t *testing.T) {
	cs := &ChangeSet{}
	if !cs.Empty() {
		t.Error("zero change set should be empty")
	}
	if cs.Updates() != nil {
		t.Error("empty change set should render no updates")
	}

	cs = &ChangeSet{
		Fields:     []FieldChange{{Column: "email", Old: "a", New: "b"}},
		Flags:      []FlagChange{{Column: "attendance", Old: false, New: true}},
		NewGroupID: uintPtr(4),
	}
	got := cs.Updates()
	want := map[string]any{"email": "b", "attendance": true, "group_id": uint(4)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
}
