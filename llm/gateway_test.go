package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agentstation/loom/llm"
)

func TestGatewayMemoization(t *testing.T) {
	t.Run("identical payloads reach the backend once", func(t *testing.T) {
		ctx := context.Background()
		mock := &llm.MockProvider{Responses: []string{"answer"}}
		gw := llm.NewGateway(mock, llm.NewMemoryCache())

		req := llm.Request{Prompt: "what is the capital of France?"}

		first, err := gw.Generate(ctx, req)
		if err != nil {
			t.Fatalf("first call: %v", err)
		}
		second, err := gw.Generate(ctx, req)
		if err != nil {
			t.Fatalf("second call: %v", err)
		}

		if first != "answer" || second != "answer" {
			t.Errorf("responses = %q, %q; want both %q", first, second, "answer")
		}
		if mock.CallCount() != 1 {
			t.Errorf("backend called %d times, want 1", mock.CallCount())
		}
	})

	t.Run("distinct payloads each reach the backend", func(t *testing.T) {
		ctx := context.Background()
		mock := &llm.MockProvider{Responses: []string{"a", "b"}}
		gw := llm.NewGateway(mock, llm.NewMemoryCache())

		if _, err := gw.Generate(ctx, llm.Request{Prompt: "one"}); err != nil {
			t.Fatalf("first call: %v", err)
		}
		if _, err := gw.Generate(ctx, llm.Request{Prompt: "two"}); err != nil {
			t.Fatalf("second call: %v", err)
		}

		if mock.CallCount() != 2 {
			t.Errorf("backend called %d times, want 2", mock.CallCount())
		}
	})

	t.Run("failures are not cached", func(t *testing.T) {
		ctx := context.Background()
		mock := &llm.MockProvider{
			Errs:      []error{&llm.ProviderError{Provider: "mock", Code: "overloaded", Message: "busy", Retryable: true}},
			Responses: []string{"recovered"},
		}
		gw := llm.NewGateway(mock, llm.NewMemoryCache())

		req := llm.Request{Prompt: "retry me"}

		if _, err := gw.Generate(ctx, req); err == nil {
			t.Fatal("first call should fail")
		}

		// The failure must not have been memoized: the retry reaches the
		// backend and succeeds.
		text, err := gw.Generate(ctx, req)
		if err != nil {
			t.Fatalf("retry: %v", err)
		}
		if text != "recovered" {
			t.Errorf("retry response = %q, want %q", text, "recovered")
		}
		if mock.CallCount() != 2 {
			t.Errorf("backend called %d times, want 2", mock.CallCount())
		}
	})

	t.Run("nil cache disables memoization", func(t *testing.T) {
		ctx := context.Background()
		mock := &llm.MockProvider{Responses: []string{"fresh"}}
		gw := llm.NewGateway(mock, nil)

		req := llm.Request{Prompt: "same"}
		_, _ = gw.Generate(ctx, req)
		_, _ = gw.Generate(ctx, req)

		if mock.CallCount() != 2 {
			t.Errorf("backend called %d times, want 2 without a cache", mock.CallCount())
		}
	})

	t.Run("WithoutCache forces fresh calls", func(t *testing.T) {
		ctx := context.Background()
		mock := &llm.MockProvider{Responses: []string{"fresh"}}
		gw := llm.NewGateway(mock, llm.NewMemoryCache(), llm.WithoutCache())

		req := llm.Request{Prompt: "same"}
		_, _ = gw.Generate(ctx, req)
		_, _ = gw.Generate(ctx, req)

		if mock.CallCount() != 2 {
			t.Errorf("backend called %d times, want 2 with caching disabled", mock.CallCount())
		}
	})

	t.Run("cache errors surface instead of falling through", func(t *testing.T) {
		ctx := context.Background()
		mock := &llm.MockProvider{Responses: []string{"never"}}
		gw := llm.NewGateway(mock, brokenCache{})

		_, err := gw.Generate(ctx, llm.Request{Prompt: "x"})
		if err == nil {
			t.Fatal("expected error from broken cache")
		}
		if !strings.Contains(err.Error(), "cache get") {
			t.Errorf("error %q should identify the cache read", err)
		}
		if mock.CallCount() != 0 {
			t.Errorf("backend called %d times, want 0 when the cache is broken", mock.CallCount())
		}
	})
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func (brokenCache) Put(ctx context.Context, fingerprint, text string) error {
	return errors.New("disk on fire")
}

func TestMockProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("scripted errors then responses", func(t *testing.T) {
		mock := &llm.MockProvider{
			Errs:      []error{errors.New("one"), errors.New("two")},
			Responses: []string{"ok"},
		}

		if _, err := mock.Generate(ctx, llm.Request{}); err == nil || err.Error() != "one" {
			t.Errorf("first call error = %v, want one", err)
		}
		if _, err := mock.Generate(ctx, llm.Request{}); err == nil || err.Error() != "two" {
			t.Errorf("second call error = %v, want two", err)
		}
		text, err := mock.Generate(ctx, llm.Request{})
		if err != nil || text != "ok" {
			t.Errorf("third call = %q, %v; want ok, nil", text, err)
		}
	})

	t.Run("last response repeats", func(t *testing.T) {
		mock := &llm.MockProvider{Responses: []string{"a", "b"}}

		got := make([]string, 0, 3)
		for i := 0; i < 3; i++ {
			text, _ := mock.Generate(ctx, llm.Request{})
			got = append(got, text)
		}

		want := []string{"a", "b", "b"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("call %d = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("reset clears history", func(t *testing.T) {
		mock := &llm.MockProvider{Responses: []string{"x"}}
		_, _ = mock.Generate(ctx, llm.Request{})
		mock.Reset()

		if mock.CallCount() != 0 {
			t.Errorf("call count after reset = %d, want 0", mock.CallCount())
		}
	})
}
