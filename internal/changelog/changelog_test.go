package changelog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-refresh/internal/model"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) AppendChanges(ctx context.Context, entries []model.ChangeLogEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func TestLog_AppendStampsAndCounts(t *testing.T) {
	l := New("run-1", nil)
	ctx := context.Background()

	e := l.Append(ctx, model.ChangeLogEntry{RecordID: "DEU", Field: "economic_cooperation", Status: model.StatusUpdated})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "run-1", e.RunID)
	assert.False(t, e.Timestamp.IsZero())

	l.Append(ctx, model.ChangeLogEntry{RecordID: "DEU", Field: "security_cooperation", Status: model.StatusSkipped})
	l.Append(ctx, model.ChangeLogEntry{RecordID: "FRA", Field: "security_cooperation", Status: model.StatusSkipped})

	require.Len(t, l.Entries(), 3)
	assert.Equal(t, map[model.Status]int{model.StatusUpdated: 1, model.StatusSkipped: 2}, l.Counts())
}

func TestLog_FlushWritesPendingOnce(t *testing.T) {
	w := &mockWriter{}
	w.On("AppendChanges", mock.Anything, mock.MatchedBy(func(es []model.ChangeLogEntry) bool {
		return len(es) == 2 && es[0].RecordID == "DEU" && es[1].RecordID == "FRA"
	})).Return(nil).Once()
	w.On("AppendChanges", mock.Anything, mock.MatchedBy(func(es []model.ChangeLogEntry) bool {
		return len(es) == 1 && es[0].RecordID == "JPN"
	})).Return(nil).Once()

	l := New("run-2", w)
	ctx := context.Background()
	l.Append(ctx, model.ChangeLogEntry{RecordID: "DEU", Status: model.StatusSkipped})
	l.Append(ctx, model.ChangeLogEntry{RecordID: "FRA", Status: model.StatusSkipped})
	l.Flush(ctx)
	l.Flush(ctx)
	l.Append(ctx, model.ChangeLogEntry{RecordID: "JPN", Status: model.StatusUpdated})
	l.Flush(ctx)

	w.AssertExpectations(t)
}

func TestLog_WriterErrorsDoNotPropagate(t *testing.T) {
	w := &mockWriter{}
	w.On("AppendChanges", mock.Anything, mock.MatchedBy(func(es []model.ChangeLogEntry) bool {
		return len(es) == 1 && es[0].RunID == "run-3"
	})).Return(errors.New("disk full")).Once()
	w.On("AppendChanges", mock.Anything, mock.MatchedBy(func(es []model.ChangeLogEntry) bool {
		return len(es) == 2
	})).Return(nil).Once()

	l := New("run-3", w)
	ctx := context.Background()
	l.Append(ctx, model.ChangeLogEntry{RecordID: "DEU", Status: model.StatusError})
	l.Flush(ctx)
	l.Append(ctx, model.ChangeLogEntry{RecordID: "FRA", Status: model.StatusError})
	l.Flush(ctx)

	assert.Len(t, l.Entries(), 2)
	w.AssertExpectations(t)
}

func TestDigest_Canonical(t *testing.T) {
	a := Digest(map[string]any{"b": 1, "a": []string{"x"}})
	b := Digest(map[string]any{"a": []string{"x"}, "b": 1.0})
	assert.Len(t, a, 64)
	assert.Equal(t, a, b)

	c := model.NewStructured(map[string]model.Value{"a": model.StringValue("x")})
	d := model.NewStructured(map[string]model.Value{"a": model.StringValue("y")})
	assert.NotEqual(t, Digest(c), Digest(d))
	assert.Equal(t, "", Digest(func() {}))
}
