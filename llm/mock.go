package llm

import (
	"context"
	"sync"
)

// MockProvider is a test implementation of Provider.
//
// It returns scripted responses (or errors) in order and records every call,
// which is how the gateway's memoization guarantees are verified: a cached
// request must leave the call count unchanged.
//
// Example:
//
//	mock := &llm.MockProvider{Responses: []string{"first", "second"}}
//	gw := llm.NewGateway(mock, llm.NewMemoryCache())
//	_, _ = gw.Generate(ctx, req)
//	_, _ = gw.Generate(ctx, req) // cache hit
//	// mock.CallCount() == 1
type MockProvider struct {
	// Responses is the sequence of responses to return. When exhausted, the
	// last response repeats.
	Responses []string

	// Errs is the sequence of errors to return before any responses. Each
	// call consumes one error; once drained, responses are served. This
	// models a backend that fails transiently then recovers.
	Errs []error

	// Calls records the request of every invocation, success or failure.
	Calls []Request

	mu            sync.Mutex
	responseIndex int
	errIndex      int
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	return "mock"
}

// Generate implements Provider with scripted behavior.
func (m *MockProvider) Generate(ctx context.Context, req Request) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if m.errIndex < len(m.Errs) {
		err := m.Errs[m.errIndex]
		m.errIndex++
		return "", err
	}

	if len(m.Responses) == 0 {
		return "", nil
	}

	idx := m.responseIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1 // repeat last response
	} else {
		m.responseIndex++
	}

	return m.Responses[idx], nil
}

// CallCount returns the number of Generate invocations so far.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}

// Reset clears the call history and response cursors.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.responseIndex = 0
	m.errIndex = 0
}
