package feed

import (
	"strings"

	"github.com/sells-group/corpus-refresh/internal/model"
)

// DefaultCoverageThreshold is the share of a topic's meaningful words an
// existing update must contain for the topic to count as covered.
const DefaultCoverageThreshold = 0.7

var stopwords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "by": true,
	"a": true, "an": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "have": true, "has": true, "had": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "shall": true, "must": true, "trump": true,
	"president": true, "tariff": true, "tariffs": true, "trade": true,
	"us": true, "usa": true, "united": true, "states": true,
}

func meaningfulWords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if !stopwords[w] {
			out[w] = true
		}
	}
	return out
}

// Covered reports whether more than threshold of the topic's non-stopword
// terms appear in the title and description of a single existing update.
// A topic with no meaningful words is never covered.
func Covered(topic string, existing []model.LedgerEntry, threshold float64) bool {
	words := meaningfulWords(topic)
	if len(words) == 0 {
		return false
	}
	if threshold <= 0 {
		threshold = DefaultCoverageThreshold
	}

	for _, e := range existing {
		have := meaningfulWords(e.Title + " " + e.Attr("description"))
		if len(have) == 0 {
			continue
		}
		overlap := 0
		for w := range words {
			if have[w] {
				overlap++
			}
		}
		if float64(overlap)/float64(len(words)) > threshold {
			return true
		}
	}
	return false
}
