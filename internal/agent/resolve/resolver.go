// Package resolve matches fuzzy user-supplied dataset and slice references
// against a structured batch definition. Pure functions, no I/O.
package resolve

import (
	"strings"

	"github.com/batchwatch-poc/server/internal/agent/model"
)

// MatchDataset resolves a user-supplied dataset reference against the
// datasets of a batch definition. Exact identifier equality wins; otherwise
// the first dataset (in declaration order) whose identifier contains the
// reference case-insensitively is returned. A nil result is not an error;
// the caller decides whether a missing target blocks the turn.
func MatchDataset(datasets []model.DatasetDef, ref string) *model.DatasetDef {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	for i := range datasets {
		if datasets[i].DatasetID == ref {
			return &datasets[i]
		}
	}
	lower := strings.ToLower(ref)
	for i := range datasets {
		if strings.Contains(strings.ToLower(datasets[i].DatasetID), lower) {
			return &datasets[i]
		}
	}
	return nil
}

// MatchSlices returns every slice whose normalized name contains the
// normalized reference, preserving original casing and declaration order.
// An unmatched reference yields an empty list, not an error.
func MatchSlices(slices []string, ref string) []string {
	needle := normalize(ref)
	if needle == "" {
		return nil
	}
	var matched []string
	for _, s := range slices {
		if strings.Contains(normalize(s), needle) {
			matched = append(matched, s)
		}
	}
	return matched
}

// EffectiveSlices resolves the slice filter for a targeted dataset. No
// reference means no filter: every slice of the dataset is in scope.
func EffectiveSlices(dataset *model.DatasetDef, ref string) []string {
	if dataset == nil {
		return nil
	}
	all := dataset.AllSlices()
	if strings.TrimSpace(ref) == "" {
		return all
	}
	return MatchSlices(all, ref)
}

// normalize upper-cases and collapses '-' and ' ' runs into a single '_'
// so "otc deriv" matches "OTC-DERIV" and "OTC_DERIV" alike.
func normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	sep := false
	for _, r := range s {
		if r == '-' || r == ' ' || r == '_' {
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('_')
		}
		sep = false
		b.WriteRune(r)
	}
	return b.String()
}
