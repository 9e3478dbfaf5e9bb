// Package llm makes expensive, non-deterministic text-generation calls look
// like deterministic, inexpensive functions: a Gateway fingerprints each
// request, answers repeats from a pluggable cache, and dispatches misses to
// one of several interchangeable providers.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Request is the payload for a single text-generation call.
type Request struct {
	// Prompt is the full prompt text.
	Prompt string

	// Model optionally names the provider-side model. Empty uses the
	// provider's default.
	Model string

	// MaxTokens bounds the response length. Zero uses the provider's default.
	MaxTokens int

	// Temperature controls sampling randomness. Zero uses the provider's
	// default.
	Temperature float64
}

// Fingerprint returns a deterministic digest of the request payload, used as
// the cache key. The provider name is deliberately excluded so identical
// requests reuse cached results across providers and across runs.
func (r Request) Fingerprint() string {
	var b strings.Builder
	b.WriteString(r.Prompt)
	b.WriteByte(0)
	b.WriteString(r.Model)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(r.MaxTokens))
	b.WriteByte(0)
	b.WriteString(strconv.FormatFloat(r.Temperature, 'g', -1, 64))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Provider is a remote text-generation backend. Implementations must not
// cache: caching is strictly the Gateway's responsibility, so that switching
// providers neither bypasses nor duplicates the cache.
type Provider interface {
	// Name returns the provider's identifier (e.g. "anthropic").
	Name() string

	// Generate sends the request to the backend and returns the response
	// text. Failures are classified transient or fatal via ProviderError.
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderError describes a failed provider call with a transient-vs-fatal
// classification that drives the engine's retry policy.
type ProviderError struct {
	// Provider is the name of the backend that failed.
	Provider string

	// Code is a short machine-readable failure category
	// (e.g. "rate_limited", "auth", "overloaded").
	Code string

	// Message is the human-readable detail.
	Message string

	// Retryable reports whether a retry with the same payload may succeed.
	Retryable bool

	// Err is the underlying error, if any.
	Err error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Provider, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err represents a transient provider failure
// worth retrying with the same payload. Context cancellation is never
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return false
}
