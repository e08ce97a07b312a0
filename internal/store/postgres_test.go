package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-refresh/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var _ Store = (*PostgresStore)(nil)

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs \(id, kind, started_at\)`).
		WithArgs(pgxmock.AnyArg(), model.RunKindFeed, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.RunKindFeed)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunKindFeed, run.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET counts = \$1, finished_at = \$2 WHERE id = \$3`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "gone", map[model.Status]int{model.StatusSkipped: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, kind, counts, started_at, finished_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Minute)
	rows := pgxmock.NewRows([]string{"id", "kind", "counts", "started_at", "finished_at"}).
		AddRow("run-1", model.RunKindRefresh, []byte(`{"UPDATED":3}`), started, &finished)

	mock.ExpectQuery(`SELECT id, kind, counts, started_at, finished_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunKindRefresh, run.Kind)
	assert.Equal(t, 3, run.Counts[model.StatusUpdated])
	require.NotNil(t, run.FinishedAt)
	assert.True(t, finished.Equal(*run.FinishedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_KindAndPaging(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "kind", "counts", "started_at", "finished_at"}).
		AddRow("run-2", model.RunKindFeed, []byte(nil), time.Now(), (*time.Time)(nil))

	mock.ExpectQuery(`FROM runs WHERE true AND kind = \$1 ORDER BY started_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(model.RunKindFeed, 10, 20).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Kind: model.RunKindFeed, Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Nil(t, runs[0].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendChanges_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"change_log"}, changeColumns).
		WillReturnResult(2)

	entries := []model.ChangeLogEntry{
		{ID: "a", RunID: "run-1", RecordID: "DEU", Field: "summary", Decision: model.VerdictNoUpdate, Action: "none", Status: model.StatusNoChangeNeeded, Timestamp: time.Now()},
		{ID: "b", RunID: "run-1", RecordID: "JPN", Field: "summary", Decision: model.VerdictNeedsUpdate, Action: "forced", Status: model.StatusForcedUpdate, Timestamp: time.Now()},
	}
	require.NoError(t, s.AppendChanges(context.Background(), entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendChanges_EmptySkipsCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.AppendChanges(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendChanges_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"change_log"}, changeColumns).
		WillReturnError(assert.AnError)

	err := s.AppendChanges(context.Background(), []model.ChangeLogEntry{{ID: "a", Timestamp: time.Now()}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append changes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListChanges(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(changeColumns).
		AddRow("a", "run-1", "DEU", "economic_cooperation", "NEEDS_UPDATE", "insufficient existing data",
			"generated", "UPDATED", "", "f00d", ts)

	mock.ExpectQuery(`FROM change_log WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(rows)

	got, err := s.ListChanges(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.VerdictNeedsUpdate, got[0].Decision)
	assert.Equal(t, model.StatusUpdated, got[0].Status)
	assert.Equal(t, "f00d", got[0].AfterDigest)
	assert.NoError(t, mock.ExpectationsWereMet())
}
