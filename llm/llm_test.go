package llm_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/agentstation/loom/llm"
)

func TestFingerprint(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		req := llm.Request{Prompt: "hello", Model: "m", MaxTokens: 100, Temperature: 0.5}
		if req.Fingerprint() != req.Fingerprint() {
			t.Error("same payload should produce the same fingerprint")
		}
	})

	t.Run("sensitive to every payload field", func(t *testing.T) {
		base := llm.Request{Prompt: "hello", Model: "m", MaxTokens: 100, Temperature: 0.5}

		variants := map[string]llm.Request{
			"prompt":      {Prompt: "goodbye", Model: "m", MaxTokens: 100, Temperature: 0.5},
			"model":       {Prompt: "hello", Model: "n", MaxTokens: 100, Temperature: 0.5},
			"max tokens":  {Prompt: "hello", Model: "m", MaxTokens: 200, Temperature: 0.5},
			"temperature": {Prompt: "hello", Model: "m", MaxTokens: 100, Temperature: 0.7},
		}

		for name, variant := range variants {
			if variant.Fingerprint() == base.Fingerprint() {
				t.Errorf("changing %s should change the fingerprint", name)
			}
		}
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		a := llm.Request{Prompt: "ab", Model: "c"}
		b := llm.Request{Prompt: "a", Model: "bc"}
		if a.Fingerprint() == b.Fingerprint() {
			t.Error("shifting bytes across field boundaries should change the fingerprint")
		}
	})

	t.Run("provider does not participate", func(t *testing.T) {
		// The fingerprint covers only the request payload, so the same request
		// hits the cache regardless of which provider serves it.
		ctx := context.Background()
		req := llm.Request{Prompt: "shared"}
		cache := llm.NewMemoryCache()

		first := &llm.MockProvider{Responses: []string{"from-first"}}
		if _, err := llm.NewGateway(first, cache).Generate(ctx, req); err != nil {
			t.Fatalf("first gateway: %v", err)
		}

		second := &llm.MockProvider{Responses: []string{"from-second"}}
		text, err := llm.NewGateway(second, cache).Generate(ctx, req)
		if err != nil {
			t.Fatalf("second gateway: %v", err)
		}
		if text != "from-first" {
			t.Errorf("response = %q, want the cached first-provider result", text)
		}
		if second.CallCount() != 0 {
			t.Errorf("second provider called %d times, want 0", second.CallCount())
		}
	})
}

func TestProviderError(t *testing.T) {
	t.Run("message includes provider and code", func(t *testing.T) {
		err := &llm.ProviderError{Provider: "anthropic", Code: "rate_limited", Message: "slow down"}
		got := err.Error()
		for _, want := range []string{"anthropic", "rate_limited", "slow down"} {
			if !strings.Contains(got, want) {
				t.Errorf("error %q missing %q", got, want)
			}
		}
	})

	t.Run("unwraps the underlying error", func(t *testing.T) {
		inner := errors.New("connection reset")
		err := &llm.ProviderError{Provider: "openai", Code: "api_error", Err: inner}
		if !errors.Is(err, inner) {
			t.Error("ProviderError should unwrap to the underlying error")
		}
	})
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable provider error", &llm.ProviderError{Retryable: true}, true},
		{"fatal provider error", &llm.ProviderError{Retryable: false}, false},
		{"wrapped retryable", fmt.Errorf("gateway: %w", &llm.ProviderError{Retryable: true}), true},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"plain error", errors.New("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := llm.IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
