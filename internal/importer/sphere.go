package importer

import (
	"regexp"
	"strings"

	gslug "github.com/gosimple/slug"

	"github.com/tnsecretariat/regadmin/internal/store"
	"github.com/tnsecretariat/regadmin/internal/xlsx"
)

// CheckboxPrefix marks sphere checkbox columns, e.g.
// "Vocation/Work Sphere - Business/Economics".
const CheckboxPrefix = "vocation/work sphere"

var (
	labelDelims    = regexp.MustCompile(`(?i)[;,|\n]+|\s+or\s+`)
	checkboxSuffix = regexp.MustCompile(`^vocation/work sphere\s*[-:–]\s*`)
)

// SplitLabels breaks a multi-select cell into discrete labels: split on
// semicolon, comma, pipe, newline, or the word "or"; trim; drop blanks;
// dedupe preserving first appearance.
func SplitLabels(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := labelDelims.Split(raw, -1)
	seen := make(map[string]bool, len(parts))
	var labels []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		labels = append(labels, p)
	}
	return labels
}

// CheckboxLabels scans the header index for sphere checkbox columns and
// collects the suffix label of every checked cell. Only consulted when the
// multi-select cell yielded nothing.
func CheckboxLabels(sheet *xlsx.Sheet, row int, idx *HeaderIndex) []string {
	seen := make(map[string]bool)
	var labels []string
	// iterate the span in column order so label order is deterministic
	for _, col := range idx.Columns {
		norm := NormalizeHeader(idx.Raw[col])
		if !strings.HasPrefix(norm, CheckboxPrefix) {
			continue
		}
		if !ParseBool(sheet.Cell(col, row)) {
			continue
		}
		label := strings.TrimSpace(checkboxSuffix.ReplaceAllString(norm, ""))
		if label == "" || label == norm || seen[label] {
			// no separator suffix means this is the plain multi-select header
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

// ResolveLabels maps labels to sphere IDs: slug lookup first, then
// case-insensitive display-name lookup. Unresolvable labels are dropped but
// reported, so dry-run can surface them. IDs are deduplicated preserving the
// order in which they first resolved.
func ResolveLabels(labels []string, spheres *store.SphereIndex) (ids []uint, unresolved []string) {
	seen := make(map[uint]bool, len(labels))
	for _, label := range labels {
		sp, ok := spheres.BySlug(gslug.Make(label))
		if !ok {
			sp, ok = spheres.ByNameFold(label)
		}
		if !ok {
			unresolved = append(unresolved, label)
			continue
		}
		if seen[sp.ID] {
			continue
		}
		seen[sp.ID] = true
		ids = append(ids, sp.ID)
	}
	return ids, unresolved
}

// RowSphereLabels applies the two input modes in priority order: the
// multi-select cell wins; checkbox columns are only scanned when it yields
// zero labels.
func RowSphereLabels(sheet *xlsx.Sheet, p *RowPayload, idx *HeaderIndex) []string {
	if labels := SplitLabels(p.SpheresRaw); len(labels) > 0 {
		return labels
	}
	return CheckboxLabels(sheet, p.Row, idx)
}
