// Package providers constructs concrete llm.Provider backends from a gateway
// config. It lives outside package llm so the provider adapters can depend on
// the core types without an import cycle.
package providers

import (
	"context"
	"fmt"

	"github.com/agentstation/loom/llm"
	"github.com/agentstation/loom/llm/anthropic"
	"github.com/agentstation/loom/llm/google"
	"github.com/agentstation/loom/llm/openai"
)

// New constructs the provider selected by the config.
func New(ctx context.Context, cfg llm.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case llm.ProviderAnthropic:
		return anthropic.New(cfg.APIKey, cfg.Model), nil
	case llm.ProviderOpenAI:
		return openai.New(cfg.APIKey, cfg.Model), nil
	case llm.ProviderGoogle:
		return google.New(ctx, cfg.APIKey, cfg.Model)
	case llm.ProviderMock:
		return &llm.MockProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewGateway constructs a fully wired gateway (provider plus cache) from a
// config.
func NewGateway(ctx context.Context, cfg llm.Config, opts ...llm.GatewayOption) (*llm.Gateway, error) {
	provider, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cache, err := llm.NewCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	return llm.NewGateway(provider, cache, opts...), nil
}
