// Package feed generates, filters and merges dated update records into the
// ledger.
package feed

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/recency"
	"github.com/sells-group/corpus-refresh/internal/sources"
)

// Rejection is a candidate dropped by a filter.
type Rejection struct {
	Entry  model.LedgerEntry
	Reason string
}

// Filter applies the recency threshold and then the source credibility
// rule to candidate entries.
type Filter struct {
	Recency recency.Filter
	Sources *sources.Filter
}

// Apply splits candidates into accepted and rejected. Order is preserved.
func (f Filter) Apply(candidates []model.LedgerEntry) ([]model.LedgerEntry, []Rejection) {
	var accepted []model.LedgerEntry
	var rejected []Rejection
	for _, c := range candidates {
		if reason, ok := f.check(c); !ok {
			zap.L().Info("feed: candidate rejected",
				zap.String("title", c.Title),
				zap.String("date", c.Date),
				zap.String("reason", reason),
			)
			rejected = append(rejected, Rejection{Entry: c, Reason: reason})
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted, rejected
}

func (f Filter) check(c model.LedgerEntry) (string, bool) {
	if !f.Recency.Accept(c.Date) {
		return fmt.Sprintf("date %q is unparseable or before %s", c.Date, f.Recency.Min.Format("2006-01-02")), false
	}
	if f.Sources == nil {
		return "", true
	}
	v := f.Sources.Evaluate(c.Sources)
	if !v.Accepted {
		return v.Reason, false
	}
	return "", true
}
