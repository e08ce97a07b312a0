package oracle

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-refresh/internal/config"
	"github.com/sells-group/corpus-refresh/internal/resilience"
	"github.com/sells-group/corpus-refresh/pkg/anthropic"
	"github.com/sells-group/corpus-refresh/pkg/gemini"
)

type anthropicBackend struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

func (b *anthropicBackend) Complete(ctx context.Context, prompt string) (string, error) {
	temp := b.temperature
	resp, err := b.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       b.model,
		MaxTokens:   b.maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", resilience.ClassifyStatus(err, anthropic.StatusCode(err))
	}
	resp.Usage.LogCost(b.model, "oracle")
	return resp.Text(), nil
}

type geminiBackend struct {
	client      gemini.Client
	model       string
	maxTokens   int32
	temperature float32
	search      bool
}

func (b *geminiBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Generate(ctx, gemini.GenerateRequest{
		Model:           b.model,
		Prompt:          prompt,
		Temperature:     b.temperature,
		MaxOutputTokens: b.maxTokens,
		Search:          b.search,
	})
	if err != nil {
		return "", resilience.ClassifyStatus(err, gemini.StatusCode(err))
	}
	return resp.Text, nil
}

// FactoryFor returns the BackendFactory for the configured provider.
func FactoryFor(cfg config.OracleConfig) (BackendFactory, error) {
	switch cfg.Provider {
	case "anthropic":
		return func(_ context.Context, key string) (Backend, error) {
			return &anthropicBackend{
				client:      anthropic.NewClient(key),
				model:       cfg.Model,
				maxTokens:   int64(cfg.MaxTokens),
				temperature: cfg.Temperature,
			}, nil
		}, nil
	case "gemini", "":
		return func(ctx context.Context, key string) (Backend, error) {
			c, err := gemini.NewClient(ctx, key)
			if err != nil {
				return nil, err
			}
			return &geminiBackend{
				client:      c,
				model:       cfg.Model,
				maxTokens:   int32(cfg.MaxTokens),
				temperature: float32(cfg.Temperature),
				search:      cfg.Search,
			}, nil
		}, nil
	default:
		return nil, eris.Errorf("oracle: unknown provider %q", cfg.Provider)
	}
}

// New builds an Adapter from configuration.
func New(cfg config.OracleConfig) (*Adapter, error) {
	pool, err := NewCredentialPool(cfg.Keys)
	if err != nil {
		return nil, err
	}
	factory, err := FactoryFor(cfg)
	if err != nil {
		return nil, err
	}
	return NewAdapter(pool, factory, AdapterConfig{
		Name:  "oracle." + cfg.Provider,
		Retry: resilience.FromSettings(cfg.MaxAttempts, cfg.InitialBackoffMs, cfg.MaxBackoffMs),
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerThreshold,
			ResetTimeout:     time.Duration(cfg.BreakerResetSecs) * time.Second,
		},
		CallDelay: cfg.CallDelay(),
		Timeout:   cfg.Timeout(),
	}), nil
}
