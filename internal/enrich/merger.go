package enrich

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/corpus-refresh/internal/model"
)

// Sentinel is the literal answer meaning the development does not apply.
const Sentinel = "NO UPDATE NEEDED"

// Outcome is the result of merging one candidate into a section.
type Outcome struct {
	Content model.FieldContent
	Status  model.Status
	Err     error
}

// Merger diffs oracle responses against current content.
type Merger struct {
	schema  *jsonschema.Schema
	minText int
}

// NewMerger creates a Merger. Text candidates shorter than minText
// characters are rejected.
func NewMerger(minText int) (*Merger, error) {
	s, err := compileValueSchema()
	if err != nil {
		return nil, err
	}
	if minText <= 0 {
		minText = 50
	}
	return &Merger{schema: s, minText: minText}, nil
}

// Merge interprets response for sec against current. Strict applies the
// placeholder rules of a forced regeneration, where the sentinel is not an
// acceptable answer.
func (m *Merger) Merge(sec model.Section, current model.FieldContent, response string, strict bool) Outcome {
	if sec.Kind == model.FieldText {
		return m.mergeText(current, response, strict)
	}
	return m.mergeStructured(sec, current, response, strict)
}

func (m *Merger) mergeText(current model.FieldContent, response string, strict bool) Outcome {
	text := strings.TrimSpace(response)
	if isTextSentinel(text, m.minText) {
		if strict {
			return Outcome{Content: current, Status: model.StatusNoActualChanges}
		}
		return Outcome{Content: current, Status: model.StatusNoUpdateNeeded}
	}
	if len(text) < m.minText {
		return Outcome{
			Content: current,
			Status:  model.StatusError,
			Err:     eris.Errorf("enrich: text candidate too short (%d chars)", len(text)),
		}
	}
	if current.Kind() == model.FieldText && text == strings.TrimSpace(current.Text()) {
		return Outcome{Content: current, Status: model.StatusNoActualChanges}
	}
	return Outcome{Content: model.NewText(text), Status: model.StatusUpdated}
}

func isTextSentinel(text string, minText int) bool {
	if text == Sentinel || strings.Trim(text, `"'. `) == Sentinel {
		return true
	}
	return strings.Count(text, Sentinel) == 1 && len(text) < minText
}

func (m *Merger) mergeStructured(sec model.Section, current model.FieldContent, response string, strict bool) Outcome {
	obj, ok := ExtractObject(response)
	if !ok {
		if strings.Contains(response, Sentinel) {
			status := model.StatusNoUpdateNeeded
			if strict {
				status = model.StatusNoActualChanges
			}
			return Outcome{Content: current, Status: status}
		}
		return Outcome{Content: current, Status: model.StatusError, Err: ErrNoObject}
	}
	if err := validateObject(m.schema, obj); err != nil {
		return Outcome{Content: current, Status: model.StatusError, Err: err}
	}
	cand, err := model.ParseFieldContent(json.RawMessage(obj), model.FieldStructured)
	if err != nil {
		return Outcome{Content: current, Status: model.StatusError, Err: err}
	}

	merged, changed := MergeValues(sec, current, cand, strict)
	if !changed {
		return Outcome{Content: current, Status: model.StatusNoActualChanges}
	}
	return Outcome{Content: merged, Status: model.StatusUpdated}
}

// MergeValues overlays cand onto current. Placeholder values and dropped
// keys are ignored; every other current key survives.
func MergeValues(sec model.Section, current, cand model.FieldContent, strict bool) (model.FieldContent, bool) {
	base := current
	if base.Kind() != model.FieldStructured {
		base = model.NewStructured(nil)
	}
	merged := base.Without(sec.DroppedKeys...)
	cand = cand.Without(sec.DroppedKeys...)

	changed := false
	for _, k := range cand.Keys() {
		v, _ := cand.Get(k)
		if isPlaceholder(v, strict) {
			continue
		}
		if old, ok := merged.Get(k); ok && old.Equal(v) {
			continue
		}
		merged = merged.With(k, v)
		changed = true
	}
	return merged, changed
}

var (
	valuePlaceholders  = []string{"keep existing value", "only update if"}
	listPlaceholders   = []string{"keep existing array", "only modify if"}
	strictPlaceholders = []string{"must update", "keep existing"}
)

func isPlaceholder(v model.Value, strict bool) bool {
	switch v.Kind() {
	case model.ValueNull:
		return true
	case model.ValueString:
		s := strings.TrimSpace(v.Str())
		if s == Sentinel {
			return true
		}
		if containsFold(s, valuePlaceholders) {
			return true
		}
		return strict && containsFold(s, strictPlaceholders)
	case model.ValueList:
		items := v.Items()
		if len(items) != 1 {
			return false
		}
		item := strings.TrimSpace(items[0])
		if strings.EqualFold(item, Sentinel) {
			return true
		}
		if containsFold(item, listPlaceholders) || containsFold(item, valuePlaceholders) {
			return true
		}
		return strict && containsFold(item, strictPlaceholders)
	default:
		return false
	}
}

func containsFold(s string, subs []string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
