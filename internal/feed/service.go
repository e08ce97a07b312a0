package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/changelog"
	"github.com/sells-group/corpus-refresh/internal/ledger"
	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/sources"
)

// ledgerField is the change-log field name for ledger entries.
const ledgerField = "updates"

// Result summarizes one merge into the ledger.
type Result struct {
	Added      []model.LedgerEntry
	Duplicates []model.LedgerEntry
	Rejected   []Rejection
	Declined   []model.LedgerEntry
}

// Changed reports whether the ledger gained entries.
func (r Result) Changed() bool { return len(r.Added) > 0 }

// Service runs filter, approval and merge against a ledger document.
type Service struct {
	Filter    Filter
	Sources   *sources.Filter
	Generator *Generator
	Operator  Operator
	Log       *changelog.Log
	// CoverageThreshold guards requested topics; see Covered.
	CoverageThreshold float64

	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Merge filters candidates and merges the survivors into doc. The document
// is stamped and its sources rebuilt only when entries were added.
func (s *Service) Merge(ctx context.Context, doc *ledger.Document, candidates []model.LedgerEntry) Result {
	accepted, rejected := s.Filter.Apply(candidates)
	res := Result{Rejected: rejected}
	for _, r := range rejected {
		s.log(ctx, r.Entry, changelog.ActionRejected, model.StatusSkipped, r.Reason)
	}
	s.mergeAccepted(ctx, doc, accepted, changelog.ActionImported, &res)
	return res
}

// GenerateAndMerge asks the oracle for new entries, filters them, lets the
// operator pick and merges the picks into doc. A topic that is already
// covered is skipped unless the operator confirms.
func (s *Service) GenerateAndMerge(ctx context.Context, doc *ledger.Document, topic string) (Result, error) {
	if topic != "" && Covered(topic, doc.Updates, s.CoverageThreshold) {
		ok, err := s.Operator.Confirm(ctx, "Topic "+topic+" appears to be covered already. Generate anyway?")
		if err != nil {
			return Result{}, err
		}
		if !ok {
			zap.L().Info("feed: topic already covered, skipping", zap.String("topic", topic))
			return Result{}, nil
		}
	}

	candidates, err := s.Generator.Generate(ctx, Request{
		Existing: doc.Updates,
		Topic:    topic,
		MinDate:  s.Filter.Recency.Min,
	})
	if err != nil {
		return Result{}, err
	}

	accepted, rejected := s.Filter.Apply(candidates)
	res := Result{Rejected: rejected}
	for _, r := range rejected {
		s.log(ctx, r.Entry, changelog.ActionRejected, model.StatusSkipped, r.Reason)
	}
	if len(accepted) == 0 {
		zap.L().Info("feed: no candidates survived filtering", zap.Int("generated", len(candidates)))
		return res, nil
	}

	idx, err := s.Operator.Select(ctx, accepted)
	if err != nil {
		return res, err
	}
	picked := make(map[int]bool, len(idx))
	var approved []model.LedgerEntry
	for _, i := range idx {
		picked[i] = true
		approved = append(approved, accepted[i])
	}
	for i, c := range accepted {
		if !picked[i] {
			res.Declined = append(res.Declined, c)
			s.log(ctx, c, changelog.ActionDenied, model.StatusSkipped, "not approved by operator")
		}
	}

	s.mergeAccepted(ctx, doc, approved, changelog.ActionGenerated, &res)
	return res, nil
}

func (s *Service) mergeAccepted(ctx context.Context, doc *ledger.Document, entries []model.LedgerEntry, action string, res *Result) {
	added := doc.Merge(entries)
	res.Added = added

	fresh := make(map[string]bool, len(added))
	for _, a := range added {
		fresh[ledger.Key(a)] = true
	}
	for _, e := range entries {
		k := ledger.Key(e)
		if fresh[k] {
			delete(fresh, k)
			s.log(ctx, e, action, model.StatusUpdated, "")
			continue
		}
		res.Duplicates = append(res.Duplicates, e)
		s.log(ctx, e, action, model.StatusNoActualChanges, "key already present")
	}

	if len(added) > 0 {
		if s.Sources != nil {
			doc.RebuildSources(s.Sources)
		}
		doc.Stamp(s.clock())
	}
	zap.L().Info("feed: merge complete",
		zap.Int("added", len(added)),
		zap.Int("duplicates", len(res.Duplicates)),
		zap.Int("rejected", len(res.Rejected)),
	)
}

func (s *Service) log(ctx context.Context, e model.LedgerEntry, action string, status model.Status, reason string) {
	if s.Log == nil {
		return
	}
	s.Log.Append(ctx, model.ChangeLogEntry{
		RecordID:    ledger.Key(e),
		Field:       ledgerField,
		Decision:    model.VerdictNeedsUpdate,
		Reason:      reason,
		Action:      action,
		Status:      status,
		AfterDigest: changelog.Digest(e),
	})
}
