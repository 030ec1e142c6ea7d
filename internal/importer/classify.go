package importer

import (
	"strings"

	"github.com/tnsecretariat/regadmin/internal/xlsx"
)

// NameSentinel is stored when a source row has no usable value for a name
// field. Two sentinel/sentinel rows are never treated as duplicates.
const NameSentinel = "N/A"

var truthyTokens = map[string]bool{
	"1": true, "y": true, "yes": true, "true": true,
	"t": true, "checked": true, "x": true, "present": true,
}

// ParseBool coerces free-text cell content with the fixed truthy-token set.
// Anything else, including blank, is false.
func ParseBool(v string) bool {
	return truthyTokens[strings.ToLower(strings.TrimSpace(v))]
}

// NormalizeWorkingStudent maps free text onto the working|student enum;
// unrecognized non-empty input and blank both produce nil.
func NormalizeWorkingStudent(v string) *string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return nil
	}
	if strings.Contains(v, "work") {
		s := "working"
		return &s
	}
	if strings.Contains(v, "student") {
		s := "student"
		return &s
	}
	return nil
}

// NormalizeModeOfPayment maps free text onto gcash|bank|cash|other. Blank
// stays nil; anything unrecognized becomes "other". "gcash" is tested before
// "cash" because it contains it.
func NormalizeModeOfPayment(v string) *string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return nil
	}
	var out string
	switch {
	case strings.Contains(v, "gcash"):
		out = "gcash"
	case strings.Contains(v, "bank"):
		out = "bank"
	case strings.Contains(v, "cash"):
		out = "cash"
	default:
		out = "other"
	}
	return &out
}

// RowPayload is one usable data row after mapping and coercion.
type RowPayload struct {
	Row int

	Email            string
	Title            string
	LastName         string
	FirstName        string
	MiddleInitial    string
	MobileNumber     string
	HomeAddress      string
	ChurchName       string
	ChurchAddress    string
	WorkingOrStudent *string
	SpheresRaw       string
	ModeOfPayment    *string
	ProofOfPayment   string
	Notes            string
	GroupName        string
	ReferenceNumber  string
	AgeRange         string

	Reconciled     bool
	FinanceChecked bool
	EmailConfirmed bool
	Attendance     bool
	IDIssued       bool
	BookGiven      bool
}

// HasRealName reports whether both name fields carry actual values rather
// than the sentinel; only such rows participate in duplicate matching.
func (p *RowPayload) HasRealName() bool {
	return p.FirstName != NameSentinel && p.LastName != NameSentinel
}

// MatchKey mirrors store.MatchKey for in-memory maps.
func (p *RowPayload) MatchKey() string {
	return strings.ToLower(strings.TrimSpace(p.FirstName)) + "|" +
		strings.ToLower(strings.TrimSpace(p.LastName))
}

// RowEmpty reports whether every cell in the column span is blank after
// trimming.
func RowEmpty(sheet *xlsx.Sheet, row int, cols []string) bool {
	for _, col := range cols {
		if strings.TrimSpace(sheet.Cell(col, row)) != "" {
			return false
		}
	}
	return true
}

// BuildPayload maps one data row through the header index: trimmed strings
// for scalars, truthy coercion for flags, enum normalization, and the N/A
// sentinel for missing names. Callers must have ruled out empty rows first.
func BuildPayload(sheet *xlsx.Sheet, row int, idx *HeaderIndex) *RowPayload {
	cell := func(field string) string {
		col := idx.Column(field)
		if col == "" {
			return ""
		}
		return strings.TrimSpace(sheet.Cell(col, row))
	}
	flag := func(field string) bool {
		col := idx.Column(field)
		if col == "" {
			return false
		}
		return ParseBool(sheet.Cell(col, row))
	}

	p := &RowPayload{
		Row:              row,
		Email:            cell(FieldEmail),
		Title:            cell(FieldTitle),
		LastName:         cell(FieldLastName),
		FirstName:        cell(FieldFirstName),
		MiddleInitial:    cell(FieldMiddleInitial),
		MobileNumber:     cell(FieldMobileNumber),
		HomeAddress:      cell(FieldHomeAddress),
		ChurchName:       cell(FieldChurchName),
		ChurchAddress:    cell(FieldChurchAddress),
		WorkingOrStudent: NormalizeWorkingStudent(cell(FieldWorkingOrStudent)),
		SpheresRaw:       cell(FieldSpheresRaw),
		ModeOfPayment:    NormalizeModeOfPayment(cell(FieldModeOfPayment)),
		ProofOfPayment:   cell(FieldProofOfPayment),
		Notes:            cell(FieldNotes),
		GroupName:        cell(FieldGroupName),
		ReferenceNumber:  cell(FieldReferenceNumber),
		AgeRange:         cell(FieldAgeRange),

		Reconciled:     flag(FieldReconciled),
		FinanceChecked: flag(FieldFinanceChecked),
		EmailConfirmed: flag(FieldEmailConfirmed),
		Attendance:     flag(FieldAttendance),
		IDIssued:       flag(FieldIDIssued),
		BookGiven:      flag(FieldBookGiven),
	}

	if p.FirstName == "" {
		p.FirstName = NameSentinel
	}
	if p.LastName == "" {
		p.LastName = NameSentinel
	}
	return p
}
