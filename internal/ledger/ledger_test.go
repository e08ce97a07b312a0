package ledger

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/sources"
)

func entry(title, date string, cites ...string) model.LedgerEntry {
	return model.LedgerEntry{Title: title, Date: date, Sources: cites}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "tariffs on steel|2025-05-10", Key(entry("  Tariffs   on\tSTEEL ", "2025-05-10")))
	assert.Equal(t, Key(entry("ＴＡＲＩＦＦＳ deal", "2025-05-10")), Key(entry("tariffs DEAL", "2025-05-10")))
	assert.NotEqual(t, Key(entry("Tariffs", "2025-05-10")), Key(entry("Tariffs", "2025-05-11")))
}

func TestMerge_ScenarioReuters(t *testing.T) {
	existing := []model.LedgerEntry{entry("Auto tariffs", "2025-04-03", "Auto tariffs - Bloomberg")}
	candidate := entry("Tariffs on Steel - Reuters", "2025-05-10", "Tariffs on Steel - Reuters")

	merged, added := Merge(existing, []model.LedgerEntry{candidate})
	require.Len(t, added, 1)
	require.Len(t, merged, 2)
	assert.Equal(t, "Tariffs on Steel - Reuters", merged[0].Title, "newest first")

	again, added := Merge(merged, []model.LedgerEntry{candidate})
	assert.Empty(t, added)
	assert.Empty(t, cmp.Diff(merged, again))
}

func TestMerge_DedupesWithinBatch(t *testing.T) {
	merged, added := Merge(nil, []model.LedgerEntry{
		entry("Rate cut", "2025-06-01"),
		entry("RATE  CUT", "2025-06-01"),
		entry("Rate cut", "2025-06-02"),
	})
	assert.Len(t, added, 2)
	assert.Equal(t, []string{"2025-06-02", "2025-06-01"}, []string{merged[0].Date, merged[1].Date})
}

func TestMerge_NeverDropsExisting(t *testing.T) {
	existing := []model.LedgerEntry{
		entry("A", "2025-04-05"),
		entry("A", "2025-04-05"), // pre-existing duplicate keys are kept as-is
		entry("B", "unknown"),
	}
	merged, added := Merge(existing, []model.LedgerEntry{entry("a", "2025-04-05")})
	assert.Empty(t, added)
	assert.Len(t, merged, 3)
	assert.Equal(t, "unknown", merged[2].Date, "unparseable dates sort last")
}

func TestSortNewestFirst_MixedFormats(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("old", "April 3, 2025"),
		entry("new", "2025-07-01"),
		entry("mid", "05/15/2025"),
	}
	SortNewestFirst(entries)
	assert.Equal(t, "new", entries[0].Title)
	assert.Equal(t, "mid", entries[1].Title)
	assert.Equal(t, "old", entries[2].Title)
}

func genEntries() gopter.Gen {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return gen.SliceOf(gen.IntRange(0, 30)).Map(func(ns []int) []model.LedgerEntry {
		out := make([]model.LedgerEntry, len(ns))
		for i, n := range ns {
			// Small ranges force key collisions between and within batches.
			out[i] = entry(fmt.Sprintf("Update %d", n%7), base.AddDate(0, 0, n%5).Format("2006-01-02"))
		}
		return out
	})
}

func TestMerge_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("merging the same batch twice is a no-op", prop.ForAll(
		func(existing, batch []model.LedgerEntry) bool {
			first, _ := Merge(existing, batch)
			second, added := Merge(first, batch)
			return len(added) == 0 && cmp.Equal(first, second)
		},
		genEntries(), genEntries(),
	))

	properties.Property("merge keeps every existing key and adds only new ones", prop.ForAll(
		func(existing, batch []model.LedgerEntry) bool {
			merged, added := Merge(existing, batch)
			if len(merged) != len(existing)+len(added) {
				return false
			}
			have := make(map[string]bool)
			for _, e := range merged {
				have[Key(e)] = true
			}
			for _, e := range existing {
				if !have[Key(e)] {
					return false
				}
			}
			prior := make(map[string]bool)
			for _, e := range existing {
				prior[Key(e)] = true
			}
			for _, a := range added {
				if prior[Key(a)] {
					return false
				}
				prior[Key(a)] = true
			}
			return true
		},
		genEntries(), genEntries(),
	))

	properties.TestingRun(t)
}

func TestDocument_RoundTripPreservesUnknownKeys(t *testing.T) {
	raw := `{
  "metadata": {"generated_by": "analyst"},
  "country_tariffs": [{"country": "DEU", "rate": "10%"}],
  "updates": [{"title": "Auto tariffs", "announcement_date": "2025-04-03", "source_titles": ["Auto tariffs - Bloomberg"], "impact": "high"}],
  "sources": ["Bloomberg"],
  "last_updated": "2025-04-03"
}`
	doc, err := Decode([]byte(raw))
	require.NoError(t, err)
	require.Len(t, doc.Updates, 1)
	assert.Equal(t, "high", doc.Updates[0].Attr("impact"))

	data, err := doc.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(data))
}

func TestDocument_LoadMissingAndSave(t *testing.T) {
	path := t.TempDir() + "/ledger.json"
	doc, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Updates)

	added := doc.Merge([]model.LedgerEntry{entry("Tariffs on Steel - Reuters", "2025-05-10", "Tariffs on Steel - Reuters")})
	require.Len(t, added, 1)
	doc.Stamp(time.Date(2025, 5, 11, 9, 0, 0, 0, time.UTC))
	require.NoError(t, doc.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	require.Len(t, back.Updates, 1)
	assert.Equal(t, "2025-05-11", back.LastUpdated)

	var generic map[string]any
	data, err := back.Encode()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Contains(t, generic, "updates")
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"updates": "nope"}`))
	assert.Error(t, err)
}

func TestDocument_RebuildSources(t *testing.T) {
	cat, err := sources.DefaultCatalog()
	require.NoError(t, err)

	doc := &Document{Updates: []model.LedgerEntry{
		entry("a", "2025-05-01", "Story - Reuters", "Story - AP News"),
		entry("b", "2025-05-02", "Follow-up - Reuters", "Thread | Reddit", "bloomberg terminal note"),
	}}
	doc.RebuildSources(sources.NewFilter(cat))
	assert.Equal(t, []string{"Associated Press", "Bloomberg", "Reuters"}, doc.Sources)
}
