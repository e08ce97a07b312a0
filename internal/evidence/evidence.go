// Package evidence selects pre-fetched feed snippets relevant to a record
// for inclusion in oracle prompts.
package evidence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

const (
	entriesPerFeed = 5
	maxMatches     = 3
	maxSummary     = 200
)

// Entry is one feed item.
type Entry struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
	Relevance string `json:"relevance"`
}

// Feed is one source's list of entries, newest first.
type Feed struct {
	Source  string  `json:"source"`
	Entries []Entry `json:"entries"`
}

// Set holds every feed loaded for a run.
type Set struct {
	Feeds   []Feed `json:"diplomatic_feeds"`
	aliases map[string][]string
}

// defaultAliases extends a record name with common alternative keywords.
var defaultAliases = map[string][]string{
	"China":          {"china", "chinese", "beijing"},
	"Russia":         {"russia", "russian", "moscow"},
	"Germany":        {"germany", "german", "berlin"},
	"United Kingdom": {"uk", "britain", "british", "london"},
	"France":         {"france", "french", "paris"},
	"Japan":          {"japan", "japanese", "tokyo"},
	"South Korea":    {"korea", "korean", "seoul", "south korea"},
	"India":          {"india", "indian", "delhi", "modi"},
	"Saudi Arabia":   {"saudi", "arabia", "riyadh"},
	"Israel":         {"israel", "israeli", "jerusalem"},
	"Canada":         {"canada", "canadian", "ottawa"},
	"Mexico":         {"mexico", "mexican", "mexico city"},
}

// Load reads a feeds document. A missing file yields an empty set.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(nil), nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "evidence: read %s", path)
	}
	return Decode(data)
}

// Decode parses a feeds document.
func Decode(data []byte) (*Set, error) {
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "evidence: decode feeds")
	}
	s.aliases = defaultAliases
	return &s, nil
}

// New creates a Set over feeds.
func New(feeds []Feed) *Set {
	return &Set{Feeds: feeds, aliases: defaultAliases}
}

// Len returns the number of feeds.
func (s *Set) Len() int { return len(s.Feeds) }

// Keywords returns the lowercase match terms for name.
func (s *Set) Keywords(name string) []string {
	fold := cases.Fold()
	kws := []string{fold.String(name)}
	kws = append(kws, s.aliases[name]...)
	return kws
}

// Match returns up to three entries mentioning name in their title or
// summary, scanning the latest five entries of each feed.
func (s *Set) Match(name string) []Match {
	kws := s.Keywords(name)
	fold := cases.Fold()

	var out []Match
	for _, f := range s.Feeds {
		entries := f.Entries
		if len(entries) > entriesPerFeed {
			entries = entries[:entriesPerFeed]
		}
		for _, e := range entries {
			hay := fold.String(e.Title) + "\n" + fold.String(e.Summary)
			if !containsAny(hay, kws) {
				continue
			}
			source := f.Source
			if source == "" {
				source = "Unknown"
			}
			out = append(out, Match{Source: source, Entry: e})
			if len(out) == maxMatches {
				return out
			}
		}
	}
	return out
}

// Match is an entry selected for a record.
type Match struct {
	Source string
	Entry
}

// Context renders the evidence block embedded in prompts.
func (s *Set) Context(name string) string {
	if s == nil || len(s.Feeds) == 0 {
		return "No diplomatic feeds available for context."
	}
	matches := s.Match(name)
	if len(matches) == 0 {
		return fmt.Sprintf("No specific diplomatic feeds found for %s in recent data.", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "RELEVANT DIPLOMATIC FEEDS FOR %s:\n", strings.ToUpper(name))
	for i, m := range matches {
		fmt.Fprintf(&b, "\n%d. %s: %s\n", i+1, m.Source, m.Title)
		fmt.Fprintf(&b, "   Summary: %s\n", truncate(m.Summary, maxSummary))
		fmt.Fprintf(&b, "   Published: %s\n", m.Published)
	}
	return b.String()
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
