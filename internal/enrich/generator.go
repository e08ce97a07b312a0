// Package enrich produces, merges and, when an approved update would be a
// no-op, forces new section content.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/oracle"
)

// Request describes one section to regenerate.
type Request struct {
	RecordID    string
	RecordName  string
	Section     model.Section
	Current     model.FieldContent
	Development string
	Evidence    string
	Window      string
}

// Generator asks the oracle for candidate content.
type Generator struct {
	gen          oracle.Generator
	restrictions string
}

// NewGenerator creates a Generator. restrictions is the source allow-list
// block prepended to every prompt.
func NewGenerator(gen oracle.Generator, restrictions string) *Generator {
	return &Generator{gen: gen, restrictions: restrictions}
}

// Generate returns the raw candidate response for req.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := g.gen.Generate(ctx, g.candidatePrompt(req))
	if err != nil {
		return "", eris.Wrapf(err, "enrich: generate %s", req.Section.Name)
	}
	return resp, nil
}

// Force returns a regeneration that must differ from the current content.
func (g *Generator) Force(ctx context.Context, req Request) (string, error) {
	resp, err := g.gen.Generate(ctx, g.forcePrompt(req))
	if err != nil {
		return "", eris.Wrapf(err, "enrich: force %s", req.Section.Name)
	}
	return resp, nil
}

func (g *Generator) candidatePrompt(req Request) string {
	window := windowOrDefault(req.Window)
	dev := developmentOrDefault(req.Development)

	var b strings.Builder
	b.WriteString(g.restrictions)
	b.WriteString("\n\n")

	if req.Section.Kind == model.FieldText {
		fmt.Fprintf(&b, "CRITICAL: You MUST incorporate the following SPECIFIC developments that were just found: %s\n\n", dev)
		b.WriteString(`COMPLETE REWRITE APPROACH:
1. START WITH A BLANK CANVAS - rewrite the entire summary from scratch
2. Use the previous content as REFERENCE to understand what was important before
3. EXCLUDE outdated, less significant, or superseded information from previous content
4. Write naturally flowing sentences that tell the current story
5. USE ONLY TRUSTWORTHY SOURCES from the approved list
`)
		writeEvidence(&b, req.Evidence)
		fmt.Fprintf(&b, "REFERENCE - Previous summary content: %s\n\n", render(req.Current))
		fmt.Fprintf(&b, "NEW DEVELOPMENTS TO PROMINENTLY FEATURE: %s\n\n", dev)
		fmt.Fprintf(&b, `INSTRUCTIONS:
- Rewrite the entire %s for %s from scratch
- Make the new developments a central part of the narrative
- Keep to ~300 words maximum
- Only use information from trustworthy sources

If the specific developments are not actually significant, respond with: "%s"

Return only the rewritten text.
`, req.Section.Topic, req.RecordName, Sentinel)
		return b.String()
	}

	fmt.Fprintf(&b, "CONSERVATIVE UPDATE INSTRUCTIONS: Only add information about CONCRETE NEW %s developments %s for %s.\n\n", req.Section.Topic, window, req.RecordName)
	fmt.Fprintf(&b, "SPECIFIC DEVELOPMENTS FOUND: %s\n\n", dev)
	b.WriteString(`DO NOT UPDATE FOR:
- General discussions or meetings
- Background information already covered
- Analysis or projections without concrete new actions
`)
	writeEvidence(&b, req.Evidence)
	fmt.Fprintf(&b, "Current data: %s\n\n", render(req.Current))
	fmt.Fprintf(&b, "If the specific developments don't relate to %s, respond with: \"%s\"\n\n", req.Section.Name, Sentinel)
	b.WriteString("Otherwise return JSON:\n")
	b.WriteString(template(req.Section, window))
	return b.String()
}

func (g *Generator) forcePrompt(req Request) string {
	dev := developmentOrDefault(req.Development)

	var b strings.Builder
	b.WriteString(g.restrictions)
	b.WriteString("\n\nUSER GAVE EXPLICIT PERMISSION TO UPDATE. YOU MUST MAKE CHANGES.\n\n")
	fmt.Fprintf(&b, `COMPLETE REWRITE APPROACH - START WITH A BLANK CANVAS:
1. Rewrite the entire %s content from scratch
2. Use the previous content as reference only
3. Create cohesive content that prominently features: %s
4. You CANNOT return identical content - changes are REQUIRED
5. Do NOT answer "%s"
6. USE ONLY TRUSTWORTHY SOURCES from the approved list

`, req.Section.Name, dev, Sentinel)
	fmt.Fprintf(&b, "REFERENCE - Previous %s data for %s: %s\n\n", req.Section.Name, req.RecordName, render(req.Current))

	if req.Section.Kind == model.FieldText {
		fmt.Fprintf(&b, "Return a completely rewritten summary with %s as a central element.\n", dev)
		return b.String()
	}
	if len(req.Section.DroppedKeys) > 0 {
		fmt.Fprintf(&b, "Do NOT include these fields: %s\n\n", strings.Join(req.Section.DroppedKeys, ", "))
	}
	fmt.Fprintf(&b, "Return JSON with completely rewritten fields that feature: %s\n", dev)
	b.WriteString(forceTemplate(req.Section, dev))
	return b.String()
}

func writeEvidence(b *strings.Builder, evidence string) {
	if evidence == "" {
		return
	}
	b.WriteString("\nDIPLOMATIC FEEDS CONTEXT:\n")
	b.WriteString(evidence)
	b.WriteString("\n\n")
}

// template renders the JSON response skeleton with instruction hints.
func template(sec model.Section, window string) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range sec.Template {
		hint := f.Hint
		if window != "" {
			hint += " " + window
		}
		writeTemplateField(&b, f, hint, i == len(sec.Template)-1)
	}
	b.WriteString("}\n")
	return b.String()
}

func forceTemplate(sec model.Section, dev string) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range sec.Template {
		hint := fmt.Sprintf("Completely recreate if related to %s, otherwise keep existing", dev)
		writeTemplateField(&b, f, hint, i == len(sec.Template)-1)
	}
	b.WriteString("}\n")
	return b.String()
}

func writeTemplateField(b *strings.Builder, f model.TemplateField, hint string, last bool) {
	key, _ := json.Marshal(f.Key)
	val, _ := json.Marshal("[" + hint + "]")
	if f.List {
		val, _ = json.Marshal([]string{hint})
	}
	fmt.Fprintf(b, "  %s: %s", key, val)
	if !last {
		b.WriteString(",")
	}
	b.WriteString("\n")
}

func render(c model.FieldContent) string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func windowOrDefault(w string) string {
	if w == "" {
		return "past 60 days"
	}
	return w
}

func developmentOrDefault(dev string) string {
	if dev == "" || dev == model.NoDevelopment {
		return "recent significant developments"
	}
	return dev
}
