// Package recency parses announcement dates and rejects items dated before
// a configured threshold.
package recency

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// layouts are tried in order. Month-first numeric layouts win over
// day-first ones for ambiguous dates such as 03/04/2025.
var layouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"01-02-2006",
	"02-01-2006",
	"2006/01/02",
	time.RFC3339,
}

var ordinalRe = regexp.MustCompile(`(\d{1,2})(st|nd|rd|th)\b`)

// ParseDate parses s against the accepted layouts. Ordinal day suffixes
// ("July 1st, 2025") are stripped first.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = ordinalRe.ReplaceAllString(s, "$1")
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Filter rejects dates earlier than Min. The threshold day itself passes.
type Filter struct {
	Min time.Time
}

// NewFilter truncates min to its calendar day.
func NewFilter(min time.Time) Filter {
	y, m, d := min.Date()
	return Filter{Min: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Accept reports whether date parses and is on or after the threshold.
func (f Filter) Accept(date string) bool {
	t, ok := ParseDate(date)
	if !ok {
		zap.L().Debug("recency: unparseable date", zap.String("date", date))
		return false
	}
	return !t.Before(f.Min)
}
