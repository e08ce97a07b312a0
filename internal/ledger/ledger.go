// Package ledger keeps the append-only, key-deduplicated feed of dated
// update records.
package ledger

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/recency"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeTitle case-folds a title and collapses its whitespace.
func NormalizeTitle(title string) string {
	t := norm.NFKC.String(title)
	t = spaceRe.ReplaceAllString(strings.TrimSpace(t), " ")
	return cases.Fold().String(t)
}

// Key is the dedup key of an entry: normalized title, "|", date.
func Key(e model.LedgerEntry) string {
	return NormalizeTitle(e.Title) + "|" + strings.TrimSpace(e.Date)
}

// Merge appends the candidates whose keys are absent from existing (and
// from earlier candidates), then sorts newest first. Existing entries are
// never dropped. It returns the merged slice and the entries that were
// added.
func Merge(existing, candidates []model.LedgerEntry) ([]model.LedgerEntry, []model.LedgerEntry) {
	keys := make(map[string]bool, len(existing)+len(candidates))
	merged := make([]model.LedgerEntry, 0, len(existing)+len(candidates))
	for _, e := range existing {
		keys[Key(e)] = true
		merged = append(merged, e)
	}

	var added []model.LedgerEntry
	for _, c := range candidates {
		k := Key(c)
		if keys[k] {
			continue
		}
		keys[k] = true
		merged = append(merged, c)
		added = append(added, c)
	}

	SortNewestFirst(merged)
	return merged, added
}

// SortNewestFirst orders entries by announcement date, newest first.
// Entries with unparseable dates keep their relative order at the end.
func SortNewestFirst(entries []model.LedgerEntry) {
	slices.SortStableFunc(entries, func(a, b model.LedgerEntry) int {
		ta, okA := recency.ParseDate(a.Date)
		tb, okB := recency.ParseDate(b.Date)
		switch {
		case okA && okB:
			return tb.Compare(ta)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
}
