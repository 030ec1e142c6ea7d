// Package importer implements the spreadsheet import pipeline: header
// normalization and column mapping, row classification, sphere label
// resolution, duplicate matching with field-level diffing, and the batch
// orchestrator that drives them.
package importer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tnsecretariat/regadmin/internal/models"
	"github.com/tnsecretariat/regadmin/internal/store"
	"github.com/tnsecretariat/regadmin/internal/xlsx"
)

// Options configures one import batch. All knobs are orthogonal.
type Options struct {
	Path      string // spreadsheet path, resolved against the import dir
	Sheet     string // case-insensitive sheet name; "" selects the first sheet
	HeaderRow int    // 1-based row holding headers (default 2)
	StartCol  string // first column of the data span (default "A")
	EndCol    string // last column of the data span (default "Z")

	// StartRow overrides where the scan begins. Resume raises the start to
	// one past the sheet's last imported source_row. The effective start is
	// max(headerRow+1, StartRow, resume point); an explicit StartRow can
	// raise but never lower it below the first data row.
	StartRow int
	Resume   bool

	// SkipExisting skips rows whose row number was already recorded as
	// imported for this sheet, independent of name matching and of where the
	// scan starts.
	SkipExisting bool

	EventID uint // attach processed registrants to this event (0 = none)

	DryRun      bool
	Interactive bool // per-column mapping override before the batch runs

	ColumnMap map[string]string // nil means DefaultColumnMap
	Stdin     io.Reader         // interactive input; defaults to os.Stdin

	MaxErrorDetails int // verbatim error samples to keep (default 10)
	PreviewRows     int // dry-run payload previews to print (default 5)
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.HeaderRow == 0 {
		out.HeaderRow = 2
	}
	if out.StartCol == "" {
		out.StartCol = "A"
	}
	if out.EndCol == "" {
		out.EndCol = "Z"
	}
	if out.ColumnMap == nil {
		out.ColumnMap = DefaultColumnMap()
	}
	if out.Stdin == nil {
		out.Stdin = os.Stdin
	}
	if out.MaxErrorDetails == 0 {
		out.MaxErrorDetails = 10
	}
	if out.PreviewRows == 0 {
		out.PreviewRows = 5
	}
	return out
}

// Result accumulates everything a batch decided. Dry-run and real runs
// produce identical Results for the same input; only persistence differs.
type Result struct {
	Sheet    string
	StartRow int
	LastRow  int

	Inserted        int
	Updated         int
	Unchanged       int
	SkippedEmpty    int
	SkippedExisting int
	AttachedToEvent int
	Failed          int

	Errors     []string       // first MaxErrorDetails verbatim row errors
	Unresolved map[string]int // sphere label -> occurrence count

	Aborted bool // operator declined the interactive mapping
}

// Print writes the end-of-batch summary.
func (r *Result) Print(w io.Writer, dryRun bool) {
	if r.Aborted {
		fmt.Fprintln(w, "Import cancelled.")
		return
	}
	if dryRun {
		fmt.Fprintln(w, "DRY RUN COMPLETE - no data was saved")
	}
	fmt.Fprintf(w, "Done. inserted=%d updated=%d unchanged=%d skipped_blank=%d skipped_existing=%d attached_to_event=%d failed=%d\n",
		r.Inserted, r.Updated, r.Unchanged, r.SkippedEmpty, r.SkippedExisting, r.AttachedToEvent, r.Failed)
	if len(r.Unresolved) > 0 {
		labels := make([]string, 0, len(r.Unresolved))
		for l := range r.Unresolved {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		fmt.Fprintf(w, "WARN: %d sphere label(s) could not be resolved:\n", len(labels))
		for _, l := range labels {
			fmt.Fprintf(w, "  %q (%d row(s))\n", l, r.Unresolved[l])
		}
	}
}

// simRecord stands in for a would-be-inserted row during dry-run, so that a
// later row with the same name diffs against it exactly as it would against
// the persisted record in a real run.
type simRecord struct {
	user    models.User
	spheres []uint
	event   bool
}

// Run executes one import batch against the store. The canonical semantics
// are diff-and-update: an existing registrant with detected changes is
// partially updated, an identical one is left alone, and a new name is
// inserted with the full payload. Every outcome still attaches the row to the
// requested event when not already linked.
func Run(st *store.Store, importDir string, opts Options, out io.Writer) (*Result, error) {
	o := opts.withDefaults()

	var event *models.Event
	if o.EventID != 0 {
		var err error
		event, err = st.EventByID(o.EventID)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "Registrants will be attached to event: %s (ID: %d)\n", event.Name, event.ID)
	}

	f, err := xlsx.Open(o.Path, importDir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName, err := f.ResolveSheet(o.Sheet)
	if err != nil {
		return nil, err
	}
	sheet := f.Sheet(sheetName)

	cols, err := xlsx.ColumnSpan(o.StartCol, o.EndCol)
	if err != nil {
		return nil, err
	}

	idx := ReadHeaders(sheet, o.HeaderRow, cols, o.ColumnMap)
	res := &Result{Sheet: sheetName, Unresolved: make(map[string]int)}

	if o.Interactive {
		ok, err := idx.OverrideInteractive(o.Stdin, out)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Aborted = true
			return res, nil
		}
	}

	for _, required := range []string{FieldFirstName, FieldLastName} {
		if idx.Column(required) == "" {
			return nil, fmt.Errorf("required column %q not found in header row %d", required, o.HeaderRow)
		}
	}

	if o.DryRun {
		fmt.Fprintln(out, "DRY RUN MODE - no data will be saved")
		idx.PrintAudit(out, o.ColumnMap)
	}
	if len(idx.Unmapped) > 0 {
		fmt.Fprintf(out, "WARN: ignoring %d unmapped header(s): %s\n",
			len(idx.Unmapped), strings.Join(idx.Unmapped, "; "))
	}

	firstDataRow := o.HeaderRow + 1
	startRow := firstDataRow
	if o.StartRow > startRow {
		startRow = o.StartRow
	}
	if o.Resume {
		last, err := st.MaxSourceRow(sheetName)
		if err != nil {
			return nil, err
		}
		if last+1 > startRow {
			startRow = last + 1
		}
	}

	var existingRows map[int]bool
	if o.SkipExisting {
		existingRows, err = st.ImportedRows(sheetName)
		if err != nil {
			return nil, err
		}
	}

	spheres, err := st.LoadSphereIndex()
	if err != nil {
		return nil, err
	}

	lastRow := sheet.LastRow()
	res.StartRow, res.LastRow = startRow, lastRow
	fmt.Fprintf(out, "Processing rows %d..%d from %q (data rows begin at %d)\n",
		startRow, lastRow, sheetName, firstDataRow)

	// Dry-run overlays: rows this batch would have written, keyed the same
	// way a real second pass would find them. Matched store records are
	// snapshotted in on first contact so every key resolves to batch-local
	// state from then on.
	pending := make(map[string]*simRecord)
	pendingGroups := make(map[string]uint)
	nextFakeGroup := uint(1 << 30)

	previewed := 0

	for row := startRow; row <= lastRow; row++ {
		if RowEmpty(sheet, row, cols) {
			res.SkippedEmpty++
			continue
		}
		if o.SkipExisting && existingRows[row] {
			res.SkippedExisting++
			continue
		}

		err := func() error {
			p := BuildPayload(sheet, row, idx)

			labels := RowSphereLabels(sheet, p, idx)
			sphereIDs, unresolved := ResolveLabels(labels, spheres)
			for _, l := range unresolved {
				res.Unresolved[l]++
			}

			// Group get-or-create is a write; dry-run resolves by lookup and
			// simulates creation with a placeholder ID.
			var groupID *uint
			if p.GroupName != "" {
				if o.DryRun {
					if id, ok := pendingGroups[p.GroupName]; ok {
						groupID = &id
					} else {
						var g models.Group
						if st.DB.Where("name = ?", p.GroupName).First(&g).Error == nil {
							groupID = &g.ID
						} else {
							nextFakeGroup++
							pendingGroups[p.GroupName] = nextFakeGroup
							id := nextFakeGroup
							groupID = &id
						}
					}
				} else {
					g, err := st.GetOrCreateGroup(p.GroupName)
					if err != nil {
						return err
					}
					if g != nil {
						groupID = &g.ID
					}
				}
			}

			// Duplicate matching only when both names are real. In dry-run
			// the overlay wins over the store: it holds the state a real run
			// would have persisted by this point.
			var stored *models.User
			var storedSpheres []uint
			var sim *simRecord
			if p.HasRealName() {
				if o.DryRun {
					if s, ok := pending[p.MatchKey()]; ok {
						sim = s
						stored = &s.user
						storedSpheres = s.spheres
					}
				}
				if stored == nil {
					stored, err = st.FindUserByName(p.FirstName, p.LastName)
					if err != nil {
						return err
					}
					if stored != nil {
						storedSpheres, err = st.SphereIDsForUser(stored.ID)
						if err != nil {
							return err
						}
						if o.DryRun {
							// Snapshot the persisted record into the overlay
							// so a later row with the same name diffs against
							// post-update state, not the stale store row.
							linked := false
							if event != nil {
								var n int64
								if err := st.DB.Table("event_user").
									Where("event_id = ? AND user_id = ?", event.ID, stored.ID).
									Count(&n).Error; err != nil {
									return err
								}
								linked = n > 0
							}
							sim = &simRecord{user: *stored, spheres: storedSpheres, event: linked}
							pending[p.MatchKey()] = sim
							stored = &sim.user
							storedSpheres = sim.spheres
						}
					}
				}
			}

			if stored != nil {
				cs := Diff(stored, p, storedSpheres, sphereIDs, groupID)
				if cs.Empty() {
					res.Unchanged++
				} else {
					res.Updated++
					if o.DryRun {
						if previewed < o.PreviewRows {
							fmt.Fprintf(out, "--- Row %d would update user %s (ID %d) ---\n",
								row, stored.FullName(), stored.ID)
							cs.Describe(out)
							previewed++
						}
						if sim != nil {
							applySim(sim, cs)
						}
					} else {
						if err := st.DB.Model(&models.User{}).
							Where("id = ?", stored.ID).
							Updates(cs.Updates()).Error; err != nil {
							return err
						}
						if len(cs.SpheresToAttach) > 0 {
							if err := st.AttachSpheres(stored.ID, cs.SpheresToAttach); err != nil {
								return err
							}
						}
					}
				}

				if event != nil {
					attached, err := attachMaybe(st, o.DryRun, sim, event.ID, stored.ID)
					if err != nil {
						return err
					}
					if attached {
						res.AttachedToEvent++
					}
				}
				return nil
			}

			// New registrant.
			u := payloadToUser(p, groupID, sphereIDs, sheetName)
			if o.DryRun {
				if previewed < o.PreviewRows {
					printPreview(out, row, p, labels, event)
					previewed++
				}
				if p.HasRealName() {
					pending[p.MatchKey()] = &simRecord{
						user:    u,
						spheres: sphereIDs,
						event:   event != nil,
					}
				}
				res.Inserted++
				if event != nil {
					res.AttachedToEvent++
				}
				return nil
			}

			if err := st.DB.Create(&u).Error; err != nil {
				return err
			}
			if len(sphereIDs) > 0 {
				if err := st.AttachSpheres(u.ID, sphereIDs); err != nil {
					return err
				}
			}
			if event != nil {
				if _, err := st.AttachUserToEvent(event.ID, u.ID); err != nil {
					return err
				}
				res.AttachedToEvent++
			}
			res.Inserted++
			return nil
		}()

		if err != nil {
			res.Failed++
			if res.Failed <= o.MaxErrorDetails {
				msg := fmt.Sprintf("Row %d error: %v", row, err)
				res.Errors = append(res.Errors, msg)
				fmt.Fprintln(out, msg)
			}
		}
	}

	return res, nil
}

// attachMaybe performs (or simulates) the idempotent event attach and reports
// whether a new link resulted. In dry-run every matched record carries an
// overlay entry, so the link state lives on sim.
func attachMaybe(st *store.Store, dryRun bool, sim *simRecord, eventID, userID uint) (bool, error) {
	if dryRun {
		if sim.event {
			return false, nil
		}
		sim.event = true
		return true, nil
	}
	return st.AttachUserToEvent(eventID, userID)
}

// applySim keeps the dry-run overlay consistent so a later duplicate row
// diffs against post-update state, matching what a real run would see.
func applySim(sim *simRecord, cs *ChangeSet) {
	for _, f := range cs.Fields {
		switch f.Column {
		case "email":
			sim.user.Email = f.New
		case "title":
			sim.user.Title = f.New
		case "middle_initial":
			sim.user.MiddleInitial = f.New
		case "mobile_number":
			sim.user.MobileNumber = f.New
		case "home_address":
			sim.user.HomeAddress = f.New
		case "church_name":
			sim.user.ChurchName = f.New
		case "church_address":
			sim.user.ChurchAddress = f.New
		case "proof_of_payment_url":
			sim.user.ProofOfPaymentURL = f.New
		case "notes":
			sim.user.Notes = f.New
		case "reference_number":
			sim.user.ReferenceNumber = f.New
		case "age_range":
			sim.user.AgeRange = f.New
		case "working_or_student":
			v := f.New
			sim.user.WorkingOrStudent = &v
		case "mode_of_payment":
			v := f.New
			sim.user.ModeOfPayment = &v
		}
	}
	for _, f := range cs.Flags {
		switch f.Column {
		case "reconciled":
			sim.user.Reconciled = f.New
		case "finance_checked":
			sim.user.FinanceChecked = f.New
		case "email_confirmed":
			sim.user.EmailConfirmed = f.New
		case "attendance":
			sim.user.Attendance = f.New
		case "id_issued":
			sim.user.IDIssued = f.New
		case "book_given":
			sim.user.BookGiven = f.New
		}
	}
	if cs.NewGroupID != nil {
		sim.user.GroupID = cs.NewGroupID
	}
	sim.spheres = append(sim.spheres, cs.SpheresToAttach...)
}

// payloadToUser builds the full insert record, including the legacy
// comma-joined sphere ID column and the source bookkeeping fields.
func payloadToUser(p *RowPayload, groupID *uint, sphereIDs []uint, sheetName string) models.User {
	row := p.Row
	u := models.User{
		Email:             p.Email,
		Title:             p.Title,
		LastName:          p.LastName,
		FirstName:         p.FirstName,
		MiddleInitial:     p.MiddleInitial,
		MobileNumber:      p.MobileNumber,
		HomeAddress:       p.HomeAddress,
		ChurchName:        p.ChurchName,
		ChurchAddress:     p.ChurchAddress,
		WorkingOrStudent:  p.WorkingOrStudent,
		ModeOfPayment:     p.ModeOfPayment,
		ProofOfPaymentURL: p.ProofOfPayment,
		Notes:             p.Notes,
		GroupID:           groupID,
		ReferenceNumber:   p.ReferenceNumber,
		AgeRange:          p.AgeRange,
		Reconciled:        p.Reconciled,
		FinanceChecked:    p.FinanceChecked,
		EmailConfirmed:    p.EmailConfirmed,
		Attendance:        p.Attendance,
		IDIssued:          p.IDIssued,
		BookGiven:         p.BookGiven,
		Role:              models.RoleUser,
		IsActive:          true,
		SourceSheet:       sheetName,
		SourceRow:         &row,
	}
	if len(sphereIDs) > 0 {
		parts := make([]string, len(sphereIDs))
		for i, id := range sphereIDs {
			parts[i] = strconv.FormatUint(uint64(id), 10)
		}
		joined := strings.Join(parts, ", ")
		u.VocationWorkSphere = &joined
	}
	return u
}

func printPreview(w io.Writer, row int, p *RowPayload, labels []string, event *models.Event) {
	fmt.Fprintf(w, "--- Row %d preview ---\n", row)
	fmt.Fprintf(w, "  Name:    %s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(w, "  Email:   %s\n", p.Email)
	fmt.Fprintf(w, "  Mobile:  %s\n", p.MobileNumber)
	fmt.Fprintf(w, "  Church:  %s\n", p.ChurchName)
	if p.GroupName != "" {
		fmt.Fprintf(w, "  Group:   %s\n", p.GroupName)
	}
	if len(labels) > 0 {
		fmt.Fprintf(w, "  Spheres: %s\n", strings.Join(labels, ", "))
	}
	if event != nil {
		fmt.Fprintf(w, "  Will attach to event: %s\n", event.Name)
	}
}
