package oracle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/corpus-refresh/internal/resilience"
)

// ErrEmptyResponse is returned when the service answers with no text.
var ErrEmptyResponse = eris.New("oracle: empty response")

// Generator produces text for a prompt. Callers treat any error as "no
// information" and downgrade it; it never aborts a run.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Backend performs one generation call with one credential.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendFactory creates a Backend bound to a credential.
type BackendFactory func(ctx context.Context, credential string) (Backend, error)

// AdapterConfig tunes an Adapter.
type AdapterConfig struct {
	Name      string
	Retry     resilience.RetryConfig
	Breaker   resilience.CircuitBreakerConfig
	CallDelay time.Duration
	// Timeout bounds a single backend call. Zero means no extra bound.
	Timeout time.Duration
}

// Adapter implements Generator over a CredentialPool and a BackendFactory.
type Adapter struct {
	name    string
	pool    *CredentialPool
	factory BackendFactory
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration

	mu       sync.Mutex
	backends map[int]Backend
}

// NewAdapter creates an Adapter. A zero CallDelay disables throttling.
func NewAdapter(pool *CredentialPool, factory BackendFactory, cfg AdapterConfig) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "oracle"
	}
	limit := rate.Inf
	if cfg.CallDelay > 0 {
		limit = rate.Every(cfg.CallDelay)
	}
	retry := cfg.Retry
	retry.ShouldRetry = shouldRetry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(cfg.Name, "generate")
	}
	return &Adapter{
		name:     cfg.Name,
		pool:     pool,
		factory:  factory,
		retry:    retry,
		breaker:  resilience.NewCircuitBreaker(cfg.Name, cfg.Breaker),
		limiter:  rate.NewLimiter(limit, 1),
		timeout:  cfg.Timeout,
		backends: make(map[int]Backend),
	}
}

// shouldRetry retries transient failures on the same credential and
// credential failures on the next one.
func shouldRetry(err error) bool {
	if errors.Is(err, ErrCredentialsExhausted) || errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	return resilience.IsCredentialFailure(err) || resilience.IsTransient(err)
}

// Generate sends prompt to the service. It returns "" and an error when
// every attempt failed.
func (a *Adapter) Generate(ctx context.Context, prompt string) (string, error) {
	return resilience.DoVal(ctx, a.retry, func(ctx context.Context) (string, error) {
		return a.attempt(ctx, prompt)
	})
}

func (a *Adapter) attempt(ctx context.Context, prompt string) (string, error) {
	idx, key, ok := a.pool.Current()
	if !ok {
		return "", ErrCredentialsExhausted
	}
	if err := a.breaker.Allow(); err != nil {
		return "", err
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "oracle: throttle")
	}

	backend, err := a.backend(ctx, idx, key)
	if err != nil {
		a.exhaust(idx, err)
		return "", resilience.NewCredentialError(err, 0)
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := backend.Complete(callCtx, prompt)
	a.breaker.Record(err)
	if err != nil {
		if resilience.IsCredentialFailure(err) {
			a.exhaust(idx, err)
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (a *Adapter) backend(ctx context.Context, idx int, key string) (Backend, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.backends[idx]; ok {
		return b, nil
	}
	b, err := a.factory(ctx, key)
	if err != nil {
		return nil, eris.Wrapf(err, "oracle: create backend for credential %d", idx+1)
	}
	a.backends[idx] = b
	return b, nil
}

func (a *Adapter) exhaust(idx int, cause error) {
	a.pool.MarkExhausted(idx)
	a.mu.Lock()
	delete(a.backends, idx)
	a.mu.Unlock()
	zap.L().Warn("oracle credential exhausted, failing over",
		zap.String("service", a.name),
		zap.Int("credential_index", idx+1),
		zap.Int("remaining", a.pool.Remaining()),
		zap.Error(cause),
	)
}
