package enrich

import (
	"encoding/json"
	"regexp"
	"strings"
)

// IncorporationThreshold is the share of development terms an update must
// mention to count as incorporating it.
const IncorporationThreshold = 0.3

var (
	properTermRe  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	eventKeywords = []string{
		"agreement", "signed", "announced", "launched", "visit", "meeting", "cooperation",
		"defense", "trade", "investment", "conflict", "crisis", "partnership",
	}
)

// Incorporation returns the share of key terms from dev found in content,
// where content is any JSON-marshalable section value.
func Incorporation(content any, dev string) float64 {
	data, err := json.Marshal(content)
	if err != nil {
		return 0
	}
	hay := strings.ToLower(string(data))
	devLower := strings.ToLower(dev)

	terms := properTermRe.FindAllString(dev, -1)
	total := len(terms)
	found := 0
	for _, t := range terms {
		if strings.Contains(hay, strings.ToLower(t)) {
			found++
		}
	}
	for _, kw := range eventKeywords {
		if !strings.Contains(devLower, kw) {
			continue
		}
		total++
		if strings.Contains(hay, kw) {
			found++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(found) / float64(total)
}
