package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-refresh/internal/config"
	"github.com/sells-group/corpus-refresh/internal/resilience"
)

// MockBackend implements Backend for testing.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func fastConfig() AdapterConfig {
	return AdapterConfig{
		Name:    "test",
		Retry:   resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 10},
	}
}

// staticFactory hands out one backend per credential and records requests.
func staticFactory(backends map[string]Backend, requested *[]string) BackendFactory {
	return func(_ context.Context, key string) (Backend, error) {
		*requested = append(*requested, key)
		b, ok := backends[key]
		if !ok {
			return nil, errors.New("no backend for " + key)
		}
		return b, nil
	}
}

func TestAdapter_Success(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, "prompt").Return("DECISION: NO UPDATE", nil).Once()

	pool, err := NewCredentialPool([]string{"k1"})
	require.NoError(t, err)
	var requested []string
	a := NewAdapter(pool, staticFactory(map[string]Backend{"k1": b}, &requested), fastConfig())

	out, err := a.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "DECISION: NO UPDATE", out)
	b.AssertExpectations(t)
}

func TestAdapter_FailsOverOnQuota(t *testing.T) {
	b1 := &MockBackend{}
	b1.On("Complete", mock.Anything, "p").Return("", resilience.NewCredentialError(errors.New("429 quota exceeded"), 429)).Once()
	b2 := &MockBackend{}
	b2.On("Complete", mock.Anything, "p").Return("answer", nil).Twice()

	pool, err := NewCredentialPool([]string{"k1", "k2"})
	require.NoError(t, err)
	var requested []string
	a := NewAdapter(pool, staticFactory(map[string]Backend{"k1": b1, "k2": b2}, &requested), fastConfig())

	out, err := a.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, 1, pool.Remaining())

	// The exhausted credential is never retried; the k2 backend is reused.
	out, err = a.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, []string{"k1", "k2"}, requested)
	b1.AssertExpectations(t)
	b2.AssertExpectations(t)
}

func TestAdapter_AllCredentialsExhausted(t *testing.T) {
	quota := errors.New("RESOURCE_EXHAUSTED: quota")
	b1 := &MockBackend{}
	b1.On("Complete", mock.Anything, "p").Return("", quota).Once()
	b2 := &MockBackend{}
	b2.On("Complete", mock.Anything, "p").Return("", quota).Once()

	pool, err := NewCredentialPool([]string{"k1", "k2"})
	require.NoError(t, err)
	var requested []string
	a := NewAdapter(pool, staticFactory(map[string]Backend{"k1": b1, "k2": b2}, &requested), fastConfig())

	out, err := a.Generate(context.Background(), "p")
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrCredentialsExhausted)
	assert.Equal(t, 0, pool.Remaining())

	// Later calls fail fast without touching a backend.
	out, err = a.Generate(context.Background(), "p")
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrCredentialsExhausted)
	b1.AssertExpectations(t)
	b2.AssertExpectations(t)
}

func TestAdapter_RetriesTransientOnSameCredential(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, "p").Return("", resilience.NewTransientError(errors.New("503"), 503)).Once()
	b.On("Complete", mock.Anything, "p").Return("ok", nil).Once()

	pool, err := NewCredentialPool([]string{"k1", "k2"})
	require.NoError(t, err)
	var requested []string
	a := NewAdapter(pool, staticFactory(map[string]Backend{"k1": b}, &requested), fastConfig())

	out, err := a.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, pool.Remaining())
	assert.Equal(t, []string{"k1"}, requested)
}

func TestAdapter_NonRetryableErrorReturnsEmpty(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, "p").Return("", errors.New("invalid argument")).Once()

	pool, err := NewCredentialPool([]string{"k1"})
	require.NoError(t, err)
	var requested []string
	a := NewAdapter(pool, staticFactory(map[string]Backend{"k1": b}, &requested), fastConfig())

	out, err := a.Generate(context.Background(), "p")
	assert.Empty(t, out)
	assert.Error(t, err)
	b.AssertExpectations(t)
}

func TestAdapter_EmptyResponseIsError(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, "p").Return("   ", nil).Once()

	pool, err := NewCredentialPool([]string{"k1"})
	require.NoError(t, err)
	var requested []string
	a := NewAdapter(pool, staticFactory(map[string]Backend{"k1": b}, &requested), fastConfig())

	_, err = a.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	b.AssertExpectations(t)
}

func TestAdapter_FactoryErrorFailsOver(t *testing.T) {
	b2 := &MockBackend{}
	b2.On("Complete", mock.Anything, "p").Return("from k2", nil).Once()

	pool, err := NewCredentialPool([]string{"missing", "k2"})
	require.NoError(t, err)
	var requested []string
	a := NewAdapter(pool, staticFactory(map[string]Backend{"k2": b2}, &requested), fastConfig())

	out, err := a.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "from k2", out)
	assert.Equal(t, []string{"missing", "k2"}, requested)
}

func TestFactoryFor_UnknownProvider(t *testing.T) {
	_, err := FactoryFor(config.OracleConfig{Provider: "openai"})
	assert.ErrorContains(t, err, "unknown provider")
}

func TestNew_RequiresKeys(t *testing.T) {
	_, err := New(config.OracleConfig{Provider: "anthropic"})
	assert.ErrorContains(t, err, "no credentials configured")

	a, err := New(config.OracleConfig{Provider: "anthropic", Keys: []string{"sk"}, Model: "claude-haiku-4-5-20251001"})
	require.NoError(t, err)
	assert.NotNil(t, a)
}
