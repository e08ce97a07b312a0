// Package staleness decides whether one section of one record needs new
// content, either from its size alone or by asking the oracle.
package staleness

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/oracle"
)

// Input describes one (record, section) evaluation.
type Input struct {
	RecordID   string
	RecordName string
	Section    model.Section
	Content    model.FieldContent
	Present    bool
	Evidence   string
	Window     string
}

// Options tunes a Detector. Zero values take the defaults.
type Options struct {
	Parser        ResponseParser
	Restrictions  string
	MinTextLength int
	MaxSparseKeys int
}

// Detector evaluates staleness for one section at a time.
type Detector struct {
	gen           oracle.Generator
	parser        ResponseParser
	restrictions  string
	minText       int
	maxSparseKeys int
}

// NewDetector creates a Detector. Structural thresholds default to 50
// characters and 2 keys.
func NewDetector(gen oracle.Generator, opts Options) *Detector {
	if opts.Parser == nil {
		opts.Parser = MarkerParser{}
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = 50
	}
	if opts.MaxSparseKeys <= 0 {
		opts.MaxSparseKeys = 2
	}
	return &Detector{
		gen:           gen,
		parser:        opts.Parser,
		restrictions:  opts.Restrictions,
		minText:       opts.MinTextLength,
		maxSparseKeys: opts.MaxSparseKeys,
	}
}

// Insufficient reports whether content is too small to keep without
// enrichment.
func (d *Detector) Insufficient(content model.FieldContent, present bool) bool {
	if !present {
		return true
	}
	if content.Kind() == model.FieldText {
		return len(strings.TrimSpace(content.Text())) < d.minText
	}
	return content.Len() <= d.maxSparseKeys
}

// Evaluate returns the staleness decision. It never fails: oracle errors
// and empty answers become NO_UPDATE.
func (d *Detector) Evaluate(ctx context.Context, in Input) model.Decision {
	log := zap.L().With(
		zap.String("record", in.RecordID),
		zap.String("section", in.Section.Name),
	)

	if d.Insufficient(in.Content, in.Present) {
		log.Info("section has insufficient data")
		return model.Decision{
			Verdict:     model.VerdictNeedsUpdate,
			Reason:      ReasonInsufficient,
			Development: model.NoDevelopment,
			Structural:  true,
		}
	}

	window := in.Window
	if window == "" {
		window = DefaultWindow
	}
	prompt := BuildPrompt(PromptInput{
		Restrictions: d.restrictions,
		RecordName:   in.RecordName,
		Section:      in.Section.Name,
		Topic:        in.Section.Topic,
		Content:      renderContent(in.Content),
		Evidence:     in.Evidence,
		Window:       window,
	})

	start := time.Now()
	resp, err := d.gen.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(resp) == "" {
		log.Warn("staleness analysis failed", zap.Error(err))
		return model.Decision{
			Verdict:     model.VerdictNoUpdate,
			Reason:      ReasonAnalysisFailed,
			Development: model.NoDevelopment,
		}
	}

	dec := d.parser.Parse(resp)
	log.Info("staleness analysis complete",
		zap.String("verdict", string(dec.Verdict)),
		zap.String("development", dec.Development),
		zap.Duration("elapsed", time.Since(start)),
	)
	return dec
}

func renderContent(c model.FieldContent) string {
	if c.Kind() == model.FieldText {
		data, _ := json.Marshal(c.Text())
		return string(data)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
