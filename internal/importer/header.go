package importer

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tnsecretariat/regadmin/internal/xlsx"
)

var whitespaceRun = strings.NewReplacer("\r", " ", "\n", " ")

// NormalizeHeader canonicalizes raw spreadsheet header text: lowercase,
// newlines become spaces, whitespace runs collapse to one space, trimmed.
// Idempotent by construction.
func NormalizeHeader(h string) string {
	h = strings.ToLower(whitespaceRun.Replace(h))
	return strings.Join(strings.Fields(h), " ")
}

// Destination field names for mapped columns. These double as the update keys
// the matcher writes through gorm.
const (
	FieldEmail            = "email"
	FieldTitle            = "title"
	FieldLastName         = "last_name"
	FieldFirstName        = "first_name"
	FieldMiddleInitial    = "middle_initial"
	FieldMobileNumber     = "mobile_number"
	FieldHomeAddress      = "home_address"
	FieldChurchName       = "church_name"
	FieldChurchAddress    = "church_address"
	FieldWorkingOrStudent = "working_or_student"
	FieldSpheresRaw       = "spheres_raw"
	FieldModeOfPayment    = "mode_of_payment"
	FieldProofOfPayment   = "proof_of_payment_url"
	FieldNotes            = "notes"
	FieldGroupName        = "group_name"
	FieldReferenceNumber  = "reference_number"
	FieldAgeRange         = "age_range"
	FieldReconciled       = "reconciled"
	FieldFinanceChecked   = "finance_checked"
	FieldEmailConfirmed   = "email_confirmed"
	FieldAttendance       = "attendance"
	FieldIDIssued         = "id_issued"
	FieldBookGiven        = "book_given"
)

// DefaultColumnMap maps normalized header text to destination fields. Entries
// carry the registration sheet's real-world quirks verbatim, including the
// "confrimation" typo, so lookups stay exact-string with no fuzzy layer.
func DefaultColumnMap() map[string]string {
	return map[string]string{
		"email address":  FieldEmail,
		"title":          FieldTitle,
		"last name":      FieldLastName,
		"first name":     FieldFirstName,
		"middle initial": FieldMiddleInitial,
		"mobile number":  FieldMobileNumber,
		"home address (city/town/province [e.g. taguig city])":   FieldHomeAddress,
		"name of church where you attend":                        FieldChurchName,
		"church address (city/town/province [e.g. taguig city])": FieldChurchAddress,
		"working or student":                                     FieldWorkingOrStudent,
		"vocation/work sphere":                                   FieldSpheresRaw,
		"vocation/work sphere (check all that apply)":            FieldSpheresRaw,
		"mode of payment": FieldModeOfPayment,
		"proof of payment (please upload a clear photo of your deposit slip)": FieldProofOfPayment,
		"notes":                                 FieldNotes,
		"group":                                 FieldGroupName,
		"reference number":                      FieldReferenceNumber,
		"age range":                             FieldAgeRange,
		"reconciled":                            FieldReconciled,
		"victory pampanga finance ms. abbey":    FieldFinanceChecked,
		"email confrimation tn secretariat":     FieldEmailConfirmed, // sheet typo preserved
		"attendance":                            FieldAttendance,
		"id":                                    FieldIDIssued,
		"book":                                  FieldBookGiven,
	}
}

// BoolFields are the destination fields coerced through the truthy-token set.
var BoolFields = []string{
	FieldReconciled, FieldFinanceChecked, FieldEmailConfirmed,
	FieldAttendance, FieldIDIssued, FieldBookGiven,
}

// HeaderIndex is the per-sheet result of reading the header row: which column
// letter holds which normalized header, and how headers map to fields.
type HeaderIndex struct {
	Columns    []string          // the configured column span, in order
	Raw        map[string]string // column letter -> raw header text
	Normalized map[string]string // normalized header -> column letter
	Fields     map[string]string // destination field -> column letter
	Unmapped   []string          // normalized headers with no map entry
}

// ReadHeaders scans the header row across the column span and resolves the
// column map. Blank headers are excluded; headers without a map entry are
// collected as unmapped and otherwise ignored.
func ReadHeaders(sheet *xlsx.Sheet, headerRow int, cols []string, colMap map[string]string) *HeaderIndex {
	idx := &HeaderIndex{
		Columns:    cols,
		Raw:        make(map[string]string, len(cols)),
		Normalized: make(map[string]string, len(cols)),
		Fields:     make(map[string]string, len(colMap)),
	}
	for _, col := range cols {
		raw := sheet.Cell(col, headerRow)
		idx.Raw[col] = raw
		norm := NormalizeHeader(raw)
		if norm == "" {
			continue
		}
		// first occurrence wins for duplicated headers
		if _, seen := idx.Normalized[norm]; !seen {
			idx.Normalized[norm] = col
		}
	}
	for norm, col := range idx.Normalized {
		field, ok := colMap[norm]
		if !ok {
			idx.Unmapped = append(idx.Unmapped, norm)
			continue
		}
		if _, taken := idx.Fields[field]; !taken {
			idx.Fields[field] = col
		}
	}
	sort.Strings(idx.Unmapped)
	return idx
}

// Column reports where a destination field lives, or "" when its header was
// absent from the sheet.
func (h *HeaderIndex) Column(field string) string { return h.Fields[field] }

// PrintAudit writes the header-mapping audit shown in dry-run and interactive
// mode: every raw header with its normalization and destination, then every
// expected header with found/missing status.
func (h *HeaderIndex) PrintAudit(w io.Writer, colMap map[string]string) {
	fmt.Fprintln(w, "=== EXCEL HEADERS FOUND ===")
	for _, col := range h.Columns {
		raw := h.Raw[col]
		if strings.TrimSpace(raw) == "" {
			continue
		}
		norm := NormalizeHeader(raw)
		if field, ok := colMap[norm]; ok {
			fmt.Fprintf(w, "  [%s] %q -> %q -> mapped to %s\n", col, raw, norm, field)
		} else {
			fmt.Fprintf(w, "  [%s] %q -> %q -> NOT MAPPED\n", col, raw, norm)
		}
	}
	fmt.Fprintln(w, "=== EXPECTED HEADERS ===")
	expected := make([]string, 0, len(colMap))
	for norm := range colMap {
		expected = append(expected, norm)
	}
	sort.Strings(expected)
	for _, norm := range expected {
		if col, ok := h.Normalized[norm]; ok {
			fmt.Fprintf(w, "  %q (%s) -> found at column %s\n", norm, colMap[norm], col)
		} else {
			fmt.Fprintf(w, "  %q (%s) -> MISSING\n", norm, colMap[norm])
		}
	}
}

// OverrideInteractive lets an operator remap or unmap columns before the batch
// proceeds. For each populated column the current destination is shown; the
// operator enters a field name to remap, "-" to unmap, or blank to keep. The
// effective map is printed and must be confirmed with "y" before Run writes
// anything.
func (h *HeaderIndex) OverrideInteractive(in io.Reader, out io.Writer) (bool, error) {
	r := bufio.NewReader(in)
	fmt.Fprintln(out, "Interactive column mapping (enter = keep, field name = remap, - = unmap)")

	colField := make(map[string]string, len(h.Fields)) // column -> field
	for field, col := range h.Fields {
		colField[col] = field
	}

	for _, col := range h.Columns {
		raw := strings.TrimSpace(h.Raw[col])
		if raw == "" {
			continue
		}
		current := colField[col]
		if current == "" {
			current = "(ignored)"
		}
		fmt.Fprintf(out, "  %s %q -> %s: ", col, raw, current)
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		answer := strings.TrimSpace(line)
		switch answer {
		case "":
			// keep
		case "-":
			delete(colField, col)
		default:
			colField[col] = answer
		}
		if err == io.EOF {
			break
		}
	}

	h.Fields = make(map[string]string, len(colField))
	for col, field := range colField {
		if prev, taken := h.Fields[field]; taken {
			return false, fmt.Errorf("field %s mapped to both column %s and %s", field, prev, col)
		}
		h.Fields[field] = col
	}

	fmt.Fprintln(out, "Effective column map:")
	fields := make([]string, 0, len(h.Fields))
	for f := range h.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(out, "  %-22s <- column %s (%q)\n", f, h.Fields[f], h.Raw[h.Fields[f]])
	}
	fmt.Fprint(out, "Proceed with this mapping? [y/N]: ")
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
