package importer

import (
	"fmt"
	"io"

	"github.com/tnsecretariat/regadmin/internal/models"
)

// FieldChange is one scalar column whose incoming value is non-empty and
// differs from the stored value.
type FieldChange struct {
	Column string
	Old    string
	New    string
}

// FlagChange is a boolean column mismatch. Flags are compared directly, so a
// cleared checkbox in the sheet does clear the stored flag.
type FlagChange struct {
	Column string
	Old    bool
	New    bool
}

// ChangeSet is the typed diff between a stored registrant and an incoming
// row. Only changed-or-newly-populated columns appear; applying an empty set
// is a no-op.
type ChangeSet struct {
	Fields []FieldChange
	Flags  []FlagChange

	// Sphere IDs in the incoming row that the stored record lacks. The merge
	// is additive: stored spheres absent from the sheet are never detached.
	SpheresToAttach []uint

	// Group resolved from the incoming row when it differs from the stored
	// association.
	NewGroupID *uint
}

func (c *ChangeSet) Empty() bool {
	return len(c.Fields) == 0 && len(c.Flags) == 0 &&
		len(c.SpheresToAttach) == 0 && c.NewGroupID == nil
}

// Updates renders the change-set as gorm column updates (spheres excluded;
// those go through the pivot).
func (c *ChangeSet) Updates() map[string]any {
	if c.Empty() {
		return nil
	}
	u := make(map[string]any, len(c.Fields)+len(c.Flags)+1)
	for _, f := range c.Fields {
		u[f.Column] = f.New
	}
	for _, f := range c.Flags {
		u[f.Column] = f.New
	}
	if c.NewGroupID != nil {
		u["group_id"] = *c.NewGroupID
	}
	return u
}

// Describe writes a one-line-per-change summary, used by dry-run previews.
func (c *ChangeSet) Describe(w io.Writer) {
	for _, f := range c.Fields {
		fmt.Fprintf(w, "    %s: %q -> %q\n", f.Column, f.Old, f.New)
	}
	for _, f := range c.Flags {
		fmt.Fprintf(w, "    %s: %v -> %v\n", f.Column, f.Old, f.New)
	}
	if len(c.SpheresToAttach) > 0 {
		fmt.Fprintf(w, "    spheres: attach %v\n", c.SpheresToAttach)
	}
	if c.NewGroupID != nil {
		fmt.Fprintf(w, "    group_id: -> %d\n", *c.NewGroupID)
	}
}

// Diff compares a stored registrant against an incoming payload under the
// one-directional merge policy: an empty incoming scalar never overwrites a
// stored value. existingSpheres must be the stored record's sphere ID set;
// incomingSpheres the row's resolved IDs; incomingGroup the resolved group ID
// (nil when the row names no group).
func Diff(stored *models.User, p *RowPayload, existingSpheres, incomingSpheres []uint, incomingGroup *uint) *ChangeSet {
	c := &ChangeSet{}

	scalar := func(column, old, incoming string) {
		if incoming != "" && incoming != old {
			c.Fields = append(c.Fields, FieldChange{Column: column, Old: old, New: incoming})
		}
	}
	scalar("email", stored.Email, p.Email)
	scalar("title", stored.Title, p.Title)
	scalar("middle_initial", stored.MiddleInitial, p.MiddleInitial)
	scalar("mobile_number", stored.MobileNumber, p.MobileNumber)
	scalar("home_address", stored.HomeAddress, p.HomeAddress)
	scalar("church_name", stored.ChurchName, p.ChurchName)
	scalar("church_address", stored.ChurchAddress, p.ChurchAddress)
	scalar("proof_of_payment_url", stored.ProofOfPaymentURL, p.ProofOfPayment)
	scalar("notes", stored.Notes, p.Notes)
	scalar("reference_number", stored.ReferenceNumber, p.ReferenceNumber)
	scalar("age_range", stored.AgeRange, p.AgeRange)

	enum := func(column string, old *string, incoming *string) {
		if incoming == nil {
			return
		}
		if old == nil || *old != *incoming {
			var oldV string
			if old != nil {
				oldV = *old
			}
			c.Fields = append(c.Fields, FieldChange{Column: column, Old: oldV, New: *incoming})
		}
	}
	enum("working_or_student", stored.WorkingOrStudent, p.WorkingOrStudent)
	enum("mode_of_payment", stored.ModeOfPayment, p.ModeOfPayment)

	flag := func(column string, old, incoming bool) {
		if old != incoming {
			c.Flags = append(c.Flags, FlagChange{Column: column, Old: old, New: incoming})
		}
	}
	flag("reconciled", stored.Reconciled, p.Reconciled)
	flag("finance_checked", stored.FinanceChecked, p.FinanceChecked)
	flag("email_confirmed", stored.EmailConfirmed, p.EmailConfirmed)
	flag("attendance", stored.Attendance, p.Attendance)
	flag("id_issued", stored.IDIssued, p.IDIssued)
	flag("book_given", stored.BookGiven, p.BookGiven)

	have := make(map[uint]bool, len(existingSpheres))
	for _, id := range existingSpheres {
		have[id] = true
	}
	for _, id := range incomingSpheres {
		if !have[id] {
			c.SpheresToAttach = append(c.SpheresToAttach, id)
		}
	}

	if incomingGroup != nil && (stored.GroupID == nil || *stored.GroupID != *incomingGroup) {
		c.NewGroupID = incomingGroup
	}

	return c
}
