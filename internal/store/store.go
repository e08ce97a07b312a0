// Package store persists runs and their change logs.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-refresh/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for refresh and feed runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, counts map[model.Status]int) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Change log
	AppendChanges(ctx context.Context, entries []model.ChangeLogEntry) error
	ListChanges(ctx context.Context, runID string) ([]model.ChangeLogEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
