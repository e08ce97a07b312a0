package evidence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeeds = `{
  "diplomatic_feeds": [
    {
      "source": "State Department",
      "entries": [
        {"title": "Secretary meets Berlin counterpart", "summary": "Talks on trade.", "published": "2025-06-01"},
        {"title": "Statement on Japan", "summary": "Tokyo visit planned.", "published": "2025-05-30"}
      ]
    },
    {
      "source": "Reuters",
      "entries": [
        {"title": "Tariff talks", "summary": "German automakers brace for new duties.", "published": "2025-05-28"},
        {"title": "a", "summary": "x"},
        {"title": "b", "summary": "x"},
        {"title": "c", "summary": "x"},
        {"title": "d", "summary": "x"},
        {"title": "Germany sixth entry", "summary": "not scanned"}
      ]
    }
  ]
}`

func TestContext_MatchesAliases(t *testing.T) {
	s, err := Decode([]byte(sampleFeeds))
	require.NoError(t, err)

	ctx := s.Context("Germany")
	assert.True(t, strings.HasPrefix(ctx, "RELEVANT DIPLOMATIC FEEDS FOR GERMANY:\n"))
	assert.Contains(t, ctx, "1. State Department: Secretary meets Berlin counterpart")
	assert.Contains(t, ctx, "2. Reuters: Tariff talks")
	assert.NotContains(t, ctx, "sixth entry")
	assert.NotContains(t, ctx, "Japan")
}

func TestContext_Fallbacks(t *testing.T) {
	assert.Equal(t, "No diplomatic feeds available for context.", New(nil).Context("Germany"))

	s, err := Decode([]byte(sampleFeeds))
	require.NoError(t, err)
	assert.Equal(t, "No specific diplomatic feeds found for Brazil in recent data.", s.Context("Brazil"))
}

func TestMatch_CapsAndTruncates(t *testing.T) {
	long := strings.Repeat("china ", 50)
	feed := Feed{Source: "AP", Entries: []Entry{
		{Title: "one", Summary: long},
		{Title: "two", Summary: "Beijing"},
		{Title: "three", Summary: "Chinese"},
		{Title: "four", Summary: "china"},
	}}
	s := New([]Feed{feed})

	matches := s.Match("China")
	require.Len(t, matches, 3)
	assert.Equal(t, "one", matches[0].Title)

	ctx := s.Context("China")
	assert.Contains(t, ctx, strings.Repeat("china ", 33)+"ch...")
	assert.NotContains(t, ctx, "four")
}

func TestLoad(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	path := filepath.Join(t.TempDir(), "feeds.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleFeeds), 0o644))
	s, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
