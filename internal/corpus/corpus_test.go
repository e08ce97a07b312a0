package corpus

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-refresh/internal/model"
)

const sampleCorpus = `{
  "metadata": {"version": 3, "notes": ["kept"]},
  "enhanced_bilateral_relations": {
    "DEU": {
      "country_name": "Germany",
      "enhanced_analysis_date": "2025-03-01",
      "economic_cooperation": {},
      "security_cooperation": {"defense_agreements": "NATO", "joint_exercises": ["Baltops"], "budget": 1.5e3},
      "detailed_relationship_summary": "Germany and the United States are close allies with deep trade ties.",
      "flag": true
    },
    "JPN": {"country_name": "Japan"}
  }
}`

func sections(t *testing.T) map[string]model.Section {
	t.Helper()
	out := map[string]model.Section{}
	for _, s := range model.DefaultSections() {
		out[s.Name] = s
	}
	return out
}

func TestDecode_RoundTripIsLossless(t *testing.T) {
	doc, err := Decode([]byte(sampleCorpus), "enhanced_bilateral_relations")
	require.NoError(t, err)
	assert.Equal(t, []string{"DEU", "JPN"}, doc.IDs())

	data, err := doc.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, sampleCorpus, string(data))
}

func TestRecord_Sections(t *testing.T) {
	doc, err := Decode([]byte(sampleCorpus), "enhanced_bilateral_relations")
	require.NoError(t, err)
	secs := sections(t)

	deu, ok := doc.Record("DEU")
	require.True(t, ok)
	assert.Equal(t, "Germany", deu.Name())

	econ, present, err := deu.Section(secs["economic_cooperation"])
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, 0, econ.Len())

	sec, _, err := deu.Section(secs["security_cooperation"])
	require.NoError(t, err)
	assert.Equal(t, 3, sec.Len())

	summary, _, err := deu.Section(secs["detailed_relationship_summary"])
	require.NoError(t, err)
	assert.Equal(t, model.FieldText, summary.Kind())

	jpn, _ := doc.Record("JPN")
	_, present, err = jpn.Section(secs["diplomatic_engagement"])
	require.NoError(t, err)
	assert.False(t, present)
}

func TestRecord_SetSectionTouchesOnlyThatField(t *testing.T) {
	doc, err := Decode([]byte(sampleCorpus), "enhanced_bilateral_relations")
	require.NoError(t, err)
	deu, _ := doc.Record("DEU")
	before, _ := deu.RawSection("security_cooperation")

	require.NoError(t, deu.SetSection("economic_cooperation", model.NewStructured(map[string]model.Value{
		"trade_agreements": model.StringValue("Framework signed"),
	})))

	after, _ := deu.RawSection("security_cooperation")
	assert.Equal(t, string(before), string(after))

	raw, _ := deu.RawSection("economic_cooperation")
	assert.JSONEq(t, `{"trade_agreements":"Framework signed"}`, string(raw))
}

func TestRecord_StampAndLastAnalysis(t *testing.T) {
	doc, err := Decode([]byte(sampleCorpus), "enhanced_bilateral_relations")
	require.NoError(t, err)
	deu, _ := doc.Record("DEU")

	last, ok := deu.LastAnalysis()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), last)

	now := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	deu.Stamp(now)
	last, _ = deu.LastAnalysis()
	assert.Equal(t, 2025, last.Year())
	assert.Equal(t, time.June, last.Month())
	raw, _ := deu.RawSection(SelectiveUpdateKey)
	assert.Equal(t, `"2025-06-01T10:30:00Z"`, string(raw))

	jpn, _ := doc.Record("JPN")
	_, ok = jpn.LastAnalysis()
	assert.False(t, ok)
}

func TestSaveAndLoad(t *testing.T) {
	doc, err := Decode([]byte(sampleCorpus), "enhanced_bilateral_relations")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, doc.Save(path))

	back, err := Load(path, "enhanced_bilateral_relations")
	require.NoError(t, err)
	assert.Equal(t, 2, back.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), "x")
	assert.Error(t, err)
}

func TestDecode_MissingCollection(t *testing.T) {
	doc, err := Decode([]byte(`{"other": 1}`), "records")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())

	data, err := doc.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"other": 1, "records": {}}`, string(data))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte(`{"records": []}`), "records")
	assert.Error(t, err)
}
