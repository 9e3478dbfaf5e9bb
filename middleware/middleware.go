// Package middleware provides node decorators for cross-cutting concerns like
// logging and timing, applied without touching the node's own lifecycle code.
package middleware

import (
	"context"

	"github.com/agentstation/loom"
)

// Middleware modifies node behavior.
type Middleware func(loom.Node) loom.Node

// middlewareNode wraps a node to modify its behavior. Unset phase functions
// delegate to the inner node.
type middlewareNode struct {
	inner loom.Node
	name  string
	prep  loom.PrepFunc
	exec  loom.ExecFunc
	post  loom.PostFunc
}

func (m *middlewareNode) Name() string {
	return m.name
}

func (m *middlewareNode) Prep(ctx context.Context, store loom.StoreReader, input any) (any, error) {
	if m.prep != nil {
		return m.prep(ctx, store, input)
	}
	return m.inner.Prep(ctx, store, input)
}

func (m *middlewareNode) Exec(ctx context.Context, prepResult any) (any, error) {
	if m.exec != nil {
		return m.exec(ctx, prepResult)
	}
	return m.inner.Exec(ctx, prepResult)
}

func (m *middlewareNode) Post(ctx context.Context, store loom.StoreWriter, input, prepResult, execResult any) (any, string, error) {
	if m.post != nil {
		return m.post(ctx, store, input, prepResult, execResult)
	}
	return m.inner.Post(ctx, store, input, prepResult, execResult)
}

// Connect delegates edge wiring to the wrapped node, so a decorated node can
// be linked the same way as a bare one.
func (m *middlewareNode) Connect(action string, next loom.Node) loom.Node {
	m.inner.Connect(action, next)
	return m
}

func (m *middlewareNode) Then(next loom.Node) loom.Node {
	m.inner.Connect(loom.DefaultAction, next)
	return next
}

func (m *middlewareNode) Successors() map[string]loom.Node {
	return m.inner.Successors()
}

// Chain combines multiple middlewares into a single middleware.
// Middlewares are applied in reverse order (like function composition).
func Chain(middlewares ...Middleware) Middleware {
	return func(node loom.Node) loom.Node {
		for i := len(middlewares) - 1; i >= 0; i-- {
			node = middlewares[i](node)
		}
		return node
	}
}

// Apply applies middleware to a node.
func Apply(node loom.Node, middlewares ...Middleware) loom.Node {
	for _, mw := range middlewares {
		node = mw(node)
	}
	return node
}
