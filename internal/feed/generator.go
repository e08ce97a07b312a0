package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/oracle"
	"github.com/sells-group/corpus-refresh/internal/recency"
)

const (
	longDate  = "January 2, 2006"
	shortDate = "2006-01-02"

	recentWindow = 60 * 24 * time.Hour
)

// Request asks for new dated updates. An empty Topic lets the oracle pick.
type Request struct {
	Existing []model.LedgerEntry
	Topic    string
	MinDate  time.Time
}

// Generator asks the oracle for candidate ledger entries.
type Generator struct {
	gen          oracle.Generator
	restrictions string
	max          int
	now          func() time.Time
}

// NewGenerator creates a Generator that keeps at most max candidates per
// response.
func NewGenerator(gen oracle.Generator, restrictions string, max int) *Generator {
	return &Generator{gen: gen, restrictions: restrictions, max: max, now: time.Now}
}

// Generate returns parsed candidates. When the topic names a date, entries
// dated on any other day are dropped.
func (g *Generator) Generate(ctx context.Context, req Request) ([]model.LedgerEntry, error) {
	existing, err := json.MarshalIndent(nonNil(req.Existing), "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "feed: encode existing updates")
	}

	var prompt string
	topicDate, dated := TopicDate(req.Topic)
	if req.Topic == "" {
		prompt = g.openPrompt(string(existing), req.MinDate)
	} else {
		prompt = g.topicPrompt(string(existing), req.Topic, req.MinDate, topicDate, dated)
	}

	resp, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, eris.Wrap(err, "feed: generate")
	}
	candidates, err := ParseCandidates(resp, g.max)
	if err != nil {
		return nil, err
	}
	if !dated {
		return candidates, nil
	}

	want := topicDate.Format(shortDate)
	kept := candidates[:0]
	for _, c := range candidates {
		if t, ok := parseDay(c.Date); ok && t != want {
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}

func (g *Generator) openPrompt(existing string, minDate time.Time) string {
	now := g.now()
	from := now.Add(-recentWindow)

	var b strings.Builder
	b.WriteString(g.restrictions)
	b.WriteString("\n\n")
	b.WriteString("Generate unique US tariff and trade policy updates - focus on quality over quantity.\n\n")
	fmt.Fprintf(&b, "CRITICAL DATE REQUIREMENT: Focus on RECENT developments from the last 2 months (%s to %s). If no recent developments are found, you may include updates back to %s, but prioritize the most recent actions.\n\n",
		from.Format(longDate), now.Format(longDate), minDate.Format(longDate))
	writeExisting(&b, existing)
	b.WriteString(`RESEARCH COMPLETELY NEW AND DIFFERENT DEVELOPMENTS:
- Countries, regions or trade relationships NOT mentioned in the existing updates
- Sectors, industries or product categories NOT covered
- Types of trade measures NOT already documented (sanctions, export controls, investment restrictions, WTO disputes)
- Policies that have been ENACTED, IMPLEMENTED or PUT INTO EFFECT, not proposals

`)
	writeSourceRules(&b)
	writeFormat(&b, now, fmt.Sprintf("YYYY-MM-DD (prioritize dates from %s onwards, must be on or after %s)",
		from.Format(shortDate), minDate.Format(shortDate)), "")
	b.WriteString("If you cannot find completely unique topics that avoid all existing content, return fewer updates or an empty array [].\n")
	return b.String()
}

func (g *Generator) topicPrompt(existing, topic string, minDate, topicDate time.Time, dated bool) string {
	now := g.now()

	var b strings.Builder
	b.WriteString(g.restrictions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Generate updates about the topic: %q - only create updates for actual, verified developments.\n\n", topic)
	dateRule := "must be on or after " + minDate.Format(shortDate)
	if dated {
		fmt.Fprintf(&b, "CRITICAL DATE REQUIREMENT: Focus EXCLUSIVELY on developments that occurred on %s.\n\n", topicDate.Format(longDate))
		dateRule = "must be exactly " + topicDate.Format(shortDate)
	} else {
		fmt.Fprintf(&b, "CRITICAL DATE REQUIREMENT: Only include information about developments that occurred ON OR AFTER %s.\n\n", minDate.Format(longDate))
	}
	writeExisting(&b, existing)
	fmt.Fprintf(&b, "Research information about %q that is completely different from all existing content above. Prioritize what has actually been IMPLEMENTED, ENACTED or PUT INTO PRACTICE.\n\n", topic)
	writeSourceRules(&b)
	writeFormat(&b, now, "YYYY-MM-DD when the action was taken ("+dateRule+")", topic)
	b.WriteString("If no reliable information about ACTUAL ACTIONS is found that avoids all existing content, return an empty array [].\n")
	return b.String()
}

func writeExisting(b *strings.Builder, existing string) {
	b.WriteString("CRITICAL: Here are the existing updates. Do NOT generate updates about any of these topics, countries, sectors, or events. Avoid ALL overlap:\n\n")
	b.WriteString("EXISTING UPDATES JSON:\n")
	b.WriteString(existing)
	b.WriteString("\n\n")
}

func writeSourceRules(b *strings.Builder) {
	b.WriteString(`IMPORTANT SOURCE REQUIREMENTS:
- Each update should have 1-2 reliable sources
- Format as: "Article Title - Source Name"
- A single source must be a wire service or an official government issuer

`)
}

func writeFormat(b *strings.Builder, now time.Time, dateHint, topic string) {
	b.WriteString("Respond in this exact JSON format:\n[\n  {\n")
	b.WriteString(`    "title": "specific title",` + "\n")
	b.WriteString(`    "description": "comprehensive description of what was implemented",` + "\n")
	b.WriteString(`    "status": "implemented/enacted/active/in_effect",` + "\n")
	fmt.Fprintf(b, "    \"announcement_date\": %q,\n", dateHint)
	b.WriteString(`    "tariff_rate": "actual rate or 'varies' or 'TBD'",` + "\n")
	b.WriteString(`    "affected_products": "detailed list of products/sectors",` + "\n")
	b.WriteString(`    "source_titles": ["Article Title 1 - Source Name 1", "Article Title 2 - Source Name 2"],` + "\n")
	fmt.Fprintf(b, "    \"last_verified\": %q,\n", now.Format(shortDate))
	if topic != "" {
		fmt.Fprintf(b, "    \"user_requested_topic\": %q,\n", topic)
	}
	b.WriteString(`    "confidence_level": "high"` + "\n")
	b.WriteString("  }\n]\n\n")
}

func parseDay(s string) (string, bool) {
	t, ok := recency.ParseDate(s)
	if !ok {
		return "", false
	}
	return t.Format(shortDate), true
}

func nonNil(entries []model.LedgerEntry) []model.LedgerEntry {
	if entries == nil {
		return []model.LedgerEntry{}
	}
	return entries
}
