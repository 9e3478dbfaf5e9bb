package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FailoverProvider tries a sequence of providers in order, moving to the next
// one only on transient failures. A fatal error (bad credentials, blocked
// content) stops the chain immediately: the next provider would be asked the
// same doomed question.
//
// It implements Provider, so it slots into a Gateway like a single backend.
// The fingerprint is provider-independent, so failing over never splits the
// cache.
type FailoverProvider struct {
	providers []Provider
}

// NewFailoverProvider creates a failover chain over the given providers, tried
// in order.
func NewFailoverProvider(providers ...Provider) (*FailoverProvider, error) {
	if len(providers) == 0 {
		return nil, errors.New("failover requires at least one provider")
	}
	return &FailoverProvider{providers: providers}, nil
}

// Name identifies the chain by its members, e.g. "failover(anthropic,openai)".
func (f *FailoverProvider) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return "failover(" + strings.Join(names, ",") + ")"
}

// Generate dispatches to each provider in turn until one succeeds or fails
// fatally.
func (f *FailoverProvider) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := p.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("all %d providers failed, last: %w", len(f.providers), lastErr)
}
