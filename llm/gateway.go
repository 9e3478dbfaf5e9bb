package llm

import (
	"context"
	"fmt"

	"github.com/agentstation/loom"
)

// Gateway wraps a Provider with a memoizing cache.
//
// Generate guarantees at most one remote round trip per distinct request
// fingerprint per cache lifetime: a hit is returned without contacting the
// backend, a miss is dispatched and written through on success. Failed
// attempts are never memoized, so the next call with the same payload retries
// the backend.
type Gateway struct {
	provider Provider
	cache    Cache
	opts     gatewayOptions
}

// gatewayOptions holds configuration for a Gateway.
type gatewayOptions struct {
	logger   loom.Logger
	useCache bool
}

// GatewayOption configures a Gateway.
type GatewayOption func(*gatewayOptions)

// WithGatewayLogger adds structured logging of prompts, responses and cache
// hits.
func WithGatewayLogger(logger loom.Logger) GatewayOption {
	return func(o *gatewayOptions) {
		o.logger = logger
	}
}

// WithoutCache disables cache reads and writes, forcing every call to the
// backend. Useful when a caller needs a fresh generation.
func WithoutCache() GatewayOption {
	return func(o *gatewayOptions) {
		o.useCache = false
	}
}

// NewGateway creates a gateway over the given provider and cache. A nil cache
// behaves like WithoutCache.
func NewGateway(provider Provider, cache Cache, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider: provider,
		cache:    cache,
		opts:     gatewayOptions{useCache: cache != nil},
	}

	for _, opt := range opts {
		opt(&g.opts)
	}
	if g.cache == nil {
		g.opts.useCache = false
	}

	return g
}

// Provider returns the wrapped backend.
func (g *Gateway) Provider() Provider {
	return g.provider
}

// Generate answers the request from the cache when possible, otherwise
// dispatches to the provider and writes the result through.
func (g *Gateway) Generate(ctx context.Context, req Request) (string, error) {
	fp := req.Fingerprint()

	if g.opts.useCache {
		text, ok, err := g.cache.Get(ctx, fp)
		if err != nil {
			// A broken cache read is surfaced, not swallowed: silently
			// falling through would hide cache corruption behind extra
			// remote calls.
			return "", fmt.Errorf("cache get: %w", err)
		}
		if ok {
			if g.opts.logger != nil {
				g.opts.logger.Debug(ctx, "cache hit", "provider", g.provider.Name(), "fingerprint", fp)
			}
			return text, nil
		}
	}

	if g.opts.logger != nil {
		g.opts.logger.Info(ctx, "calling provider",
			"provider", g.provider.Name(),
			"model", req.Model,
			"prompt_len", len(req.Prompt))
	}

	text, err := g.provider.Generate(ctx, req)
	if err != nil {
		if g.opts.logger != nil {
			g.opts.logger.Error(ctx, "provider call failed",
				"provider", g.provider.Name(),
				"transient", IsTransient(err),
				"error", err)
		}
		return "", err
	}

	if g.opts.useCache {
		if err := g.cache.Put(ctx, fp, text); err != nil {
			return "", fmt.Errorf("cache put: %w", err)
		}
	}

	return text, nil
}
