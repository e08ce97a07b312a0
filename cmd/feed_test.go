package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-refresh/internal/config"
	"github.com/sells-group/corpus-refresh/internal/feed"
	"github.com/sells-group/corpus-refresh/internal/ledger"
	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/recency"
	"github.com/sells-group/corpus-refresh/internal/store"
)

const candidateFile = `[
  {"title": "Tariffs on Steel", "announcement_date": "2025-05-10", "source_titles": ["Tariffs on Steel - Reuters"]},
  {"title": "Tariffs on Steel", "announcement_date": "2025-04-01", "source_titles": ["Tariffs on Steel - Reuters"]}
]`

func TestRunFeed_MergeSavesLedgerAndRecordsRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"updates": [], "title": "Tracker"}`), 0o644))

	st, err := initStore(context.Background(), config.StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "r.db")})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	filter, err := loadSourceFilter(config.SourcesConfig{})
	require.NoError(t, err)
	doc, err := ledger.Load(path)
	require.NoError(t, err)
	candidates, err := feed.DecodeCandidates([]byte(candidateFile))
	require.NoError(t, err)

	svc := &feed.Service{
		Filter:  feed.Filter{Recency: recency.NewFilter(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)), Sources: filter},
		Sources: filter,
	}
	var out strings.Builder
	err = runFeed(context.Background(), st, doc, svc, path, &out,
		func(ctx context.Context, svc *feed.Service, doc *ledger.Document) (feed.Result, error) {
			return svc.Merge(ctx, doc, candidates), nil
		})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Added 1, duplicates 0, rejected 1")

	saved, err := ledger.Load(path)
	require.NoError(t, err)
	require.Len(t, saved.Updates, 1)
	assert.Equal(t, []string{"Reuters"}, saved.Sources)
	assert.NotEmpty(t, saved.LastUpdated)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{Kind: model.RunKindFeed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Counts[model.StatusUpdated])
	assert.Equal(t, 1, runs[0].Counts[model.StatusSkipped])
}

func TestRunFeed_StepErrorStillFinishesRun(t *testing.T) {
	dir := t.TempDir()
	st, err := initStore(context.Background(), config.StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "r.db")})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	doc, err := ledger.Load(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)

	err = runFeed(context.Background(), st, doc, &feed.Service{}, filepath.Join(dir, "missing.json"), &strings.Builder{},
		func(context.Context, *feed.Service, *ledger.Document) (feed.Result, error) {
			return feed.Result{}, assert.AnError
		})
	require.ErrorIs(t, err, assert.AnError)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotNil(t, runs[0].FinishedAt)

	_, statErr := os.Stat(filepath.Join(dir, "missing.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInitStore_UnknownDriver(t *testing.T) {
	_, err := initStore(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}
