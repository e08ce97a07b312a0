package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/model"
)

// Resolver enacts an approved update that produced no diff.
type Resolver struct {
	gen    *Generator
	merger *Merger
}

// NewResolver creates a Resolver.
func NewResolver(gen *Generator, merger *Merger) *Resolver {
	return &Resolver{gen: gen, merger: merger}
}

// Resolve regenerates under stricter rules and, if that still yields no
// diff, appends the development mechanically. The result is FORCED_UPDATE,
// or FORCE_FAILED with the current content unchanged.
func (r *Resolver) Resolve(ctx context.Context, req Request) Outcome {
	log := zap.L().With(
		zap.String("record", req.RecordID),
		zap.String("section", req.Section.Name),
	)

	resp, err := r.gen.Force(ctx, req)
	if err != nil {
		log.Warn("forced regeneration failed", zap.Error(err))
	} else {
		out := r.merger.Merge(req.Section, req.Current, resp, true)
		if out.Status == model.StatusUpdated {
			log.Info("forced regeneration produced changes")
			return Outcome{Content: out.Content, Status: model.StatusForcedUpdate}
		}
		log.Info("forced regeneration produced no diff", zap.String("status", string(out.Status)))
	}

	if !hasDevelopment(req.Development) {
		return Outcome{Content: req.Current, Status: model.StatusForceFailed}
	}
	content, ok := AppendDevelopment(req.Section, req.Current, req.Development)
	if !ok {
		log.Warn("no key to append development to")
		return Outcome{Content: req.Current, Status: model.StatusForceFailed}
	}
	log.Info("development appended mechanically")
	return Outcome{Content: content, Status: model.StatusForcedUpdate}
}

// AppendDevelopment writes dev into the section's default location. Text
// gains a trailing sentence. Structured content appends to the first
// present fallback key holding a string or list.
func AppendDevelopment(sec model.Section, current model.FieldContent, dev string) (model.FieldContent, bool) {
	dev = strings.TrimSpace(dev)
	if dev == "" {
		return current, false
	}

	if sec.Kind == model.FieldText {
		sentence := "Recent developments include " + strings.TrimSuffix(dev, ".") + "."
		old := strings.TrimSpace(current.Text())
		if old == "" {
			return model.NewText(sentence), true
		}
		return model.NewText(old + " " + sentence), true
	}

	if current.Kind() != model.FieldStructured {
		return current, false
	}
	base := current.Without(sec.DroppedKeys...)
	for _, k := range sec.FallbackKeys {
		v, ok := base.Get(k)
		if !ok {
			continue
		}
		addition := dev
		if v.Kind() == model.ValueList {
			addition = "Related to: " + dev
		}
		nv, ok := v.AppendText(addition)
		if !ok {
			continue
		}
		return base.With(k, nv), true
	}
	return current, false
}

func hasDevelopment(dev string) bool {
	d := model.Decision{Development: strings.TrimSpace(dev)}
	return d.HasDevelopment()
}
