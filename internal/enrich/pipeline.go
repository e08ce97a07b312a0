package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/approval"
	"github.com/sells-group/corpus-refresh/internal/changelog"
	"github.com/sells-group/corpus-refresh/internal/corpus"
	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/staleness"
)

// EvidenceSource renders prompt context for a record name.
type EvidenceSource interface {
	Context(name string) string
}

// Detector decides staleness for one section.
type Detector interface {
	Evaluate(ctx context.Context, in staleness.Input) model.Decision
}

// PipelineConfig wires a Pipeline.
type PipelineConfig struct {
	Detector    Detector
	Gate        *approval.Gate
	Generator   *Generator
	Merger      *Merger
	Resolver    *Resolver
	Evidence    EvidenceSource
	Log         *changelog.Log
	Sections    []model.Section
	RecordDelay time.Duration
	// ReenhanceAfter skips records enhanced more recently than this when no
	// IDs are given. Zero disables the check.
	ReenhanceAfter time.Duration
}

// Pipeline runs one sequential enrichment pass over a corpus.
type Pipeline struct {
	cfg   PipelineConfig
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Resolver == nil {
		cfg.Resolver = NewResolver(cfg.Generator, cfg.Merger)
	}
	return &Pipeline{cfg: cfg, now: time.Now, sleep: sleepCtx}
}

// Run processes ids in order, or every due record when ids is empty.
// Records are mutated in doc; the caller saves it. Every section of every
// processed record gets exactly one change log entry.
func (p *Pipeline) Run(ctx context.Context, doc *corpus.Document, ids []string) {
	if len(ids) == 0 {
		ids = p.Due(doc)
	}

	for i, id := range ids {
		rec, ok := doc.Record(id)
		if !ok {
			zap.L().Warn("record not found, skipping", zap.String("record", id))
			continue
		}
		p.processRecord(ctx, rec)
		p.cfg.Log.Flush(ctx)

		if i < len(ids)-1 && !p.cfg.Gate.Skipped() {
			p.sleep(ctx, p.cfg.RecordDelay)
		}
	}
}

// Due returns the records needing analysis: never enhanced, enhanced on an
// unreadable date, or enhanced longer than ReenhanceAfter ago.
func (p *Pipeline) Due(doc *corpus.Document) []string {
	all := doc.IDs()
	if p.cfg.ReenhanceAfter <= 0 {
		return all
	}
	now := p.now()
	due := make([]string, 0, len(all))
	for _, id := range all {
		rec, _ := doc.Record(id)
		last, ok := rec.LastAnalysis()
		if !ok {
			zap.L().Info("record never enhanced", zap.String("record", id))
			due = append(due, id)
			continue
		}
		if age := now.Sub(last); age > p.cfg.ReenhanceAfter {
			zap.L().Info("re-enhancing stale record",
				zap.String("record", id), zap.Int("days_old", int(age.Hours()/24)))
			due = append(due, id)
			continue
		}
		zap.L().Info("skipping recently enhanced record", zap.String("record", id))
	}
	return due
}

func (p *Pipeline) processRecord(ctx context.Context, rec *corpus.Record) {
	name := rec.Name()
	last, hasLast := rec.LastAnalysis()
	window := staleness.SearchWindow(last, hasLast, p.now())

	var evidence string
	if p.cfg.Evidence != nil {
		evidence = p.cfg.Evidence.Context(name)
	}

	zap.L().Info("analyzing record",
		zap.String("record", rec.ID),
		zap.String("name", name),
		zap.String("window", window),
	)

	applied := false
	for _, sec := range p.cfg.Sections {
		if p.processSection(ctx, rec, sec, name, window, evidence) {
			applied = true
		}
	}
	if applied {
		rec.Stamp(p.now())
	}
}

// processSection returns true when new content was written.
func (p *Pipeline) processSection(ctx context.Context, rec *corpus.Record, sec model.Section, name, window, evidence string) bool {
	entry := model.ChangeLogEntry{RecordID: rec.ID, Field: sec.Name}

	if p.cfg.Gate.Skipped() {
		entry.Decision = model.VerdictUnknown
		entry.Action = changelog.ActionSkipAll
		entry.Status = model.StatusSkipped
		entry.Reason = "operator skipped all remaining updates"
		p.cfg.Log.Append(ctx, entry)
		return false
	}

	current, present, err := rec.Section(sec)
	if err != nil {
		zap.L().Warn("existing section unreadable",
			zap.String("record", rec.ID), zap.String("section", sec.Name), zap.Error(err))
		entry.Decision = model.VerdictUnknown
		entry.Action = changelog.ActionNone
		entry.Status = model.StatusError
		entry.Reason = err.Error()
		p.cfg.Log.Append(ctx, entry)
		return false
	}
	if present {
		entry.BeforeDigest = changelog.Digest(current)
	}

	dec := p.cfg.Detector.Evaluate(ctx, staleness.Input{
		RecordID:   rec.ID,
		RecordName: name,
		Section:    sec,
		Content:    current,
		Present:    present,
		Evidence:   evidence,
		Window:     window,
	})
	entry.Decision = dec.Verdict
	entry.Reason = dec.Reason

	if !dec.NeedsUpdate() {
		entry.Action = changelog.ActionNone
		entry.Status = model.StatusNoChangeNeeded
		p.cfg.Log.Append(ctx, entry)
		return false
	}

	res := p.cfg.Gate.Ask(ctx, approval.Request{
		RecordID:    rec.ID,
		RecordName:  name,
		Section:     sec.Name,
		Reason:      dec.Reason,
		Development: developmentLabel(dec),
	})
	if res != approval.Grant {
		entry.Action = changelog.ActionDenied
		if res == approval.SkipAll {
			entry.Action = changelog.ActionSkipAll
		}
		entry.Status = model.StatusSkipped
		p.cfg.Log.Append(ctx, entry)
		return false
	}

	req := Request{
		RecordID:    rec.ID,
		RecordName:  name,
		Section:     sec,
		Current:     current,
		Development: dec.Development,
		Evidence:    evidence,
		Window:      window,
	}
	out := p.enact(ctx, req)
	entry.Action = changelog.ActionGenerated
	if out.Status == model.StatusForcedUpdate || out.Status == model.StatusForceFailed {
		entry.Action = changelog.ActionForced
	}
	entry.Status = out.Status
	if out.Err != nil {
		entry.Reason = out.Err.Error()
	}

	applied := false
	if out.Status.Applied() {
		if err := rec.SetSection(sec.Name, out.Content); err != nil {
			entry.Status = model.StatusError
			entry.Reason = err.Error()
		} else {
			applied = true
			entry.AfterDigest = changelog.Digest(out.Content)
		}
	}
	p.cfg.Log.Append(ctx, entry)
	return applied
}

// enact generates and merges a candidate for an approved section, forcing
// a change when the candidate is a no-op.
func (p *Pipeline) enact(ctx context.Context, req Request) Outcome {
	log := zap.L().With(zap.String("record", req.RecordID), zap.String("section", req.Section.Name))

	resp, err := p.cfg.Generator.Generate(ctx, req)
	if err != nil {
		log.Warn("candidate generation failed", zap.Error(err))
		return Outcome{Content: req.Current, Status: model.StatusError, Err: err}
	}

	out := p.cfg.Merger.Merge(req.Section, req.Current, resp, false)
	switch out.Status {
	case model.StatusNoActualChanges:
		log.Info("approved update produced no diff, forcing")
		return p.cfg.Resolver.Resolve(ctx, req)
	case model.StatusUpdated:
		if hasDevelopment(req.Development) {
			if ratio := Incorporation(out.Content, req.Development); ratio < IncorporationThreshold {
				log.Warn("update may not include the reported development",
					zap.String("development", req.Development),
					zap.Float64("incorporation", ratio),
				)
			}
		}
	case model.StatusError:
		log.Warn("candidate rejected", zap.Error(out.Err))
	}
	return out
}

func developmentLabel(dec model.Decision) string {
	if dec.HasDevelopment() {
		return dec.Development
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
