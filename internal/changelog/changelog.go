// Package changelog records one append-only entry per evaluated section.
package changelog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/model"
)

// Actions recorded alongside a status.
const (
	ActionNone      = "none"
	ActionDenied    = "denied"
	ActionSkipAll   = "skip_all"
	ActionGenerated = "generated"
	ActionForced    = "forced"
	ActionImported  = "imported"
	ActionRejected  = "rejected"
)

// Writer persists entries. Errors are logged and never stop a run.
type Writer interface {
	AppendChanges(ctx context.Context, entries []model.ChangeLogEntry) error
}

// Log is the in-memory change log of one run, optionally mirrored to a
// Writer.
type Log struct {
	runID  string
	writer Writer
	now    func() time.Time

	mu      sync.Mutex
	entries []model.ChangeLogEntry
	flushed int
}

// New creates a Log for runID. w may be nil.
func New(runID string, w Writer) *Log {
	return &Log{runID: runID, writer: w, now: time.Now}
}

// RunID returns the run the log belongs to.
func (l *Log) RunID() string { return l.runID }

// Append stamps e with an ID, the run ID and a timestamp, then stores it.
// Entries reach the Writer on Flush.
func (l *Log) Append(_ context.Context, e model.ChangeLogEntry) model.ChangeLogEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.RunID = l.runID
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	zap.L().Info("section processed",
		zap.String("record", e.RecordID),
		zap.String("section", e.Field),
		zap.String("decision", string(e.Decision)),
		zap.String("action", e.Action),
		zap.String("status", string(e.Status)),
	)
	return e
}

// Flush writes entries appended since the last successful Flush. A failed
// write is logged and retried on the next Flush.
func (l *Log) Flush(ctx context.Context) {
	if l.writer == nil {
		return
	}
	l.mu.Lock()
	pending := slices.Clone(l.entries[l.flushed:])
	l.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	if err := l.writer.AppendChanges(ctx, pending); err != nil {
		zap.L().Warn("change log write failed", zap.Int("entries", len(pending)), zap.Error(err))
		return
	}
	l.mu.Lock()
	l.flushed += len(pending)
	l.mu.Unlock()
}

// Entries returns a copy of all entries in append order.
func (l *Log) Entries() []model.ChangeLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Counts tallies entries by status.
func (l *Log) Counts() map[model.Status]int {
	return Count(l.Entries())
}

// Count tallies entries by status.
func Count(entries []model.ChangeLogEntry) map[model.Status]int {
	out := make(map[model.Status]int)
	for _, e := range entries {
		out[e.Status]++
	}
	return out
}

// Digest returns the hex SHA-256 of the canonical JSON form of v, or "" if
// v cannot be marshaled.
func Digest(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	canon, err := jcs.Transform(data)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}
