package staleness

import (
	"regexp"
	"strings"

	"github.com/sells-group/corpus-refresh/internal/model"
)

// Default reasons used when the response omits a label or cannot be read.
const (
	ReasonInsufficient   = "insufficient existing data"
	ReasonAnalysisFailed = "Analysis failed - assuming no update needed"
	ReasonUnclear        = "AI response unclear - assuming no update needed"
	reasonUpdateDefault  = "Analysis indicates update needed"
	reasonNoUpdate       = "No significant changes found"
	developmentDefault   = "New developments found"
)

// ResponseParser turns raw oracle output into a Decision.
type ResponseParser interface {
	Parse(response string) model.Decision
}

// MarkerParser reads the labeled response format requested by the
// staleness prompt:
//
//	DECISION: [UPDATE NEEDED/NO UPDATE]
//	REASONING: ...
//	NEW_DEVELOPMENTS: ...
//
// A response without a recognizable decision is UNKNOWN, which callers
// treat as no update.
type MarkerParser struct{}

var (
	decisionRe    = regexp.MustCompile(`(?im)^\s*\**\s*DECISION\s*:\**\s*\[?\s*([A-Z_ ]+)`)
	reasoningRe   = regexp.MustCompile(`(?s)REASONING:\s*(.+?)(?:\n|NEW_DEVELOPMENTS:|$)`)
	developmentRe = regexp.MustCompile(`(?s)NEW_DEVELOPMENTS:\s*(.+?)(?:\n|$)`)
	noneFoundRe   = regexp.MustCompile(`(?i)^\[?\s*(none|none found|n/a)\s*\.?\]?$`)
)

// Parse implements ResponseParser.
func (MarkerParser) Parse(response string) model.Decision {
	verdict := verdictOf(response)

	switch verdict {
	case model.VerdictNeedsUpdate:
		d := model.Decision{
			Verdict:     verdict,
			Reason:      label(reasoningRe, response, reasonUpdateDefault),
			Development: label(developmentRe, response, developmentDefault),
		}
		if noneFoundRe.MatchString(d.Development) {
			d.Development = model.NoDevelopment
		}
		return d
	case model.VerdictNoUpdate:
		return model.Decision{
			Verdict:     verdict,
			Reason:      label(reasoningRe, response, reasonNoUpdate),
			Development: model.NoDevelopment,
		}
	default:
		return model.Decision{
			Verdict:     model.VerdictUnknown,
			Reason:      ReasonUnclear,
			Development: model.NoDevelopment,
		}
	}
}

// verdictOf prefers the DECISION line. Without one, a bare marker anywhere
// in the text is accepted, checking the negative form first because
// "NO UPDATE NEEDED" contains "UPDATE NEEDED".
func verdictOf(response string) model.Verdict {
	if m := decisionRe.FindStringSubmatch(response); m != nil {
		if v, ok := classify(m[1]); ok {
			return v
		}
	}
	if v, ok := classify(response); ok {
		return v
	}
	return model.VerdictUnknown
}

func classify(s string) (model.Verdict, bool) {
	u := strings.ToUpper(strings.ReplaceAll(s, "_", " "))
	switch {
	case strings.Contains(u, "NO UPDATE"):
		return model.VerdictNoUpdate, true
	case strings.Contains(u, "UPDATE NEEDED"):
		return model.VerdictNeedsUpdate, true
	default:
		return "", false
	}
}

func label(re *regexp.Regexp, response, fallback string) string {
	m := re.FindStringSubmatch(response)
	if m == nil {
		return fallback
	}
	s := strings.TrimSpace(m[1])
	if s == "" {
		return fallback
	}
	return s
}
