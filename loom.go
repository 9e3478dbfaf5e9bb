// Package loom provides a minimalist engine for building LLM pipelines from
// composable nodes with a Prep/Exec/Post lifecycle, linked into a directed
// chain and driven against a single shared state store.
//
// Lifecycle contract:
//
//   - Prep reads whatever the node needs from the shared store and returns the
//     exact input the next phase requires. It must not mutate the store and is
//     never retried: a Prep failure is a precondition error that aborts the run.
//
//   - Exec performs the node's actual work as a pure function of the prepared
//     input. It has no store access, which keeps it testable with plain
//     input/output fixtures. Transient Exec failures are retried up to the
//     configured bound with the same prepared input, then resolved through a
//     fallback if one is configured.
//
//   - Post writes results back to the shared store and returns an action label
//     that selects the next edge. Returning a label with no matching edge ends
//     the run normally.
package loom

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common errors.
var (
	// ErrNoStartNode is returned when a flow has no start node defined.
	ErrNoStartNode = errors.New("loom: no start node defined")

	// ErrInvalidInput is returned when input type doesn't match expected type.
	ErrInvalidInput = errors.New("loom: invalid input type")
)

// DefaultAction is the unconditional "continue" edge label. A node without an
// explicit Post routes here.
const DefaultAction = "default"

// PrepFunc prepares data before execution with read-only store access.
type PrepFunc func(ctx context.Context, store StoreReader, input any) (prepResult any, err error)

// ExecFunc performs the main processing logic without store access.
type ExecFunc func(ctx context.Context, prepResult any) (execResult any, err error)

// PostFunc processes results and determines routing with full store access.
type PostFunc func(ctx context.Context, store StoreWriter, input, prepResult, execResult any) (output any, next string, err error)

// FallbackFunc resolves an Exec error after retries are exhausted. It receives
// the prepResult (like Exec) and the error from the failed Exec. Like ExecFunc,
// it has no store access to maintain purity.
type FallbackFunc func(ctx context.Context, prepResult any, execErr error) (fallbackResult any, err error)

// Steps groups the lifecycle functions for a node.
// All fields are optional - if not provided, pass-through defaults are used.
type Steps struct {
	// Prep prepares data before execution with read-only store access.
	Prep PrepFunc

	// Exec performs the main processing logic without store access.
	Exec ExecFunc

	// Fallback handles Exec errors with the prepared data.
	Fallback FallbackFunc

	// Post processes results and determines routing with full store access.
	Post PostFunc
}

// Node is the core interface for all execution units in a pipeline.
// Both simple nodes and flows implement this interface.
type Node interface {
	// Name returns the node's identifier.
	Name() string

	// Lifecycle methods for the Prep/Exec/Post pattern.
	Prep(ctx context.Context, store StoreReader, input any) (prepResult any, err error)
	Exec(ctx context.Context, prepResult any) (execResult any, err error)
	Post(ctx context.Context, store StoreWriter, input, prepResult, execResult any) (output any, next string, err error)

	// Connect adds a successor node for the given action and returns the
	// receiver, so several labeled edges can be attached in one expression.
	Connect(action string, next Node) Node

	// Then connects next along the default edge and returns next, enabling
	// left-to-right chaining: a.Then(b).Then(c).
	Then(next Node) Node

	// Successors returns all connected nodes keyed by action label.
	Successors() map[string]Node
}

// node is the private implementation of Node for simple execution units.
type node struct {
	name string

	// Lifecycle methods (never nil - have defaults).
	prep PrepFunc
	exec ExecFunc
	post PostFunc

	// Successors maps action names to next nodes.
	successors map[string]Node

	opts nodeOptions
}

// nodeOptions holds configuration for a Node.
type nodeOptions struct {
	prep PrepFunc
	exec ExecFunc
	post PostFunc

	// Retry and timeout
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration

	// Error handling
	onError  func(error)
	fallback FallbackFunc
}

// Option configures a Node.
type Option func(*nodeOptions)

// WithPrep sets the preparation function with type safety.
// The input type In should match the upstream node's output type.
// For dynamic typing, use WithPrep[any].
func WithPrep[In any](fn func(ctx context.Context, store StoreReader, input In) (any, error)) Option {
	return func(o *nodeOptions) {
		o.prep = func(ctx context.Context, store StoreReader, input any) (any, error) {
			if input == nil {
				return fn(ctx, store, *new(In))
			}
			typedInput, ok := input.(In)
			if !ok {
				return nil, fmt.Errorf("%w: prep expected %T, got %T", ErrInvalidInput, *new(In), input)
			}
			return fn(ctx, store, typedInput)
		}
	}
}

// WithExec sets the execution function with type safety.
// In is the prepared-input type and Out the result type.
// For dynamic typing, use WithExec[any, any].
// Exec functions do not have store access to enforce pure business logic.
func WithExec[In, Out any](fn func(ctx context.Context, input In) (Out, error)) Option {
	return func(o *nodeOptions) {
		o.exec = func(ctx context.Context, prepResult any) (any, error) {
			if prepResult == nil {
				return fn(ctx, *new(In))
			}
			typedInput, ok := prepResult.(In)
			if !ok {
				return nil, fmt.Errorf("%w: exec expected %T, got %T", ErrInvalidInput, *new(In), prepResult)
			}
			return fn(ctx, typedInput)
		}
	}
}

// WithPost sets the post-processing function with type safety.
// Post functions have access to all step results and determine routing.
// For dynamic typing, use WithPost[any, any].
func WithPost[In, Out any](fn func(ctx context.Context, store StoreWriter, input In, prepResult any, execResult Out) (any, string, error)) Option {
	return func(o *nodeOptions) {
		o.post = func(ctx context.Context, store StoreWriter, input, prepResult, execResult any) (any, string, error) {
			var typedInput In
			if input != nil {
				var ok bool
				typedInput, ok = input.(In)
				if !ok {
					return nil, "", fmt.Errorf("%w: post expected input %T, got %T", ErrInvalidInput, *new(In), input)
				}
			}

			var typedExecResult Out
			if execResult != nil {
				var ok bool
				typedExecResult, ok = execResult.(Out)
				if !ok {
					return nil, "", fmt.Errorf("%w: post expected exec result %T, got %T", ErrInvalidInput, *new(Out), execResult)
				}
			}

			return fn(ctx, store, typedInput, prepResult, typedExecResult)
		}
	}
}

// WithRetry configures Exec retry behavior. The Exec step is re-invoked with
// the same prepared input up to maxRetries additional times; Prep and Post are
// never retried.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(o *nodeOptions) {
		o.maxRetries = maxRetries
		o.retryDelay = delay
	}
}

// WithTimeout sets a deadline covering the node's whole lifecycle.
func WithTimeout(timeout time.Duration) Option {
	return func(o *nodeOptions) {
		o.timeout = timeout
	}
}

// WithFallback sets the function that resolves an Exec error once retries are
// exhausted. Without a fallback the error propagates and aborts the run.
func WithFallback(fn FallbackFunc) Option {
	return func(o *nodeOptions) {
		o.fallback = fn
	}
}

// WithErrorHandler sets a custom error handler invoked when the node's
// lifecycle fails. The error still propagates.
func WithErrorHandler(handler func(error)) Option {
	return func(o *nodeOptions) {
		o.onError = handler
	}
}

// Name returns the node's identifier.
func (n *node) Name() string {
	return n.name
}

// Prep implements the preparation phase of the node lifecycle.
func (n *node) Prep(ctx context.Context, store StoreReader, input any) (any, error) {
	return n.prep(ctx, store, input)
}

// Exec implements the execution phase of the node lifecycle.
func (n *node) Exec(ctx context.Context, prepResult any) (any, error) {
	return n.exec(ctx, prepResult)
}

// Post implements the post-processing phase of the node lifecycle.
func (n *node) Post(ctx context.Context, store StoreWriter, input, prepResult, execResult any) (any, string, error) {
	return n.post(ctx, store, input, prepResult, execResult)
}

// Connect adds a successor node for the given action.
func (n *node) Connect(action string, next Node) Node {
	n.successors[action] = next
	return n
}

// Then connects next along the default edge and returns next.
func (n *node) Then(next Node) Node {
	n.successors[DefaultAction] = next
	return next
}

// Successors returns all connected nodes.
func (n *node) Successors() map[string]Node {
	return n.successors
}

// Default implementations for lifecycle methods.
func defaultPrep(ctx context.Context, store StoreReader, input any) (any, error) {
	return input, nil // pass through
}

func defaultExec(ctx context.Context, prepResult any) (any, error) {
	return prepResult, nil // pass through
}

func defaultPost(ctx context.Context, store StoreWriter, input, prepResult, execResult any) (any, string, error) {
	return execResult, DefaultAction, nil
}

// NewNode creates a new node.
//
// Type parameters:
//   - In: the expected input type for this node (use 'any' for dynamic typing)
//   - Out: the output type this node produces (use 'any' for dynamic typing)
//
// Parameters:
//   - name: the node's identifier, used in error and log messages
//   - steps: the lifecycle functions (Prep, Exec, Fallback, Post) - all optional
//   - opts: additional options like retry, timeout, typed lifecycle functions
//
// Example:
//
//	summarize := loom.NewNode[any, any]("summarize",
//	    loom.Steps{
//	        Prep: readPrompt,
//	        Exec: callGateway,
//	        Post: writeSummary,
//	    },
//	    loom.WithRetry(3, 10*time.Second),
//	)
func NewNode[In, Out any](name string, steps Steps, opts ...Option) Node {
	n := &node{
		name:       name,
		prep:       defaultPrep,
		exec:       defaultExec,
		post:       defaultPost,
		successors: make(map[string]Node),
	}

	if steps.Prep != nil {
		n.opts.prep = steps.Prep
	}
	if steps.Exec != nil {
		n.opts.exec = steps.Exec
	}
	if steps.Post != nil {
		n.opts.post = steps.Post
	}
	if steps.Fallback != nil {
		n.opts.fallback = steps.Fallback
	}

	for _, opt := range opts {
		opt(&n.opts)
	}

	if n.opts.prep != nil {
		n.prep = n.opts.prep
	}
	if n.opts.exec != nil {
		n.exec = n.opts.exec
	}
	if n.opts.post != nil {
		n.post = n.opts.post
	}

	return n
}

// Chain connects nodes along their default edges in the order given and
// returns the first node, ready to be used as a flow's start.
func Chain(nodes ...Node) Node {
	if len(nodes) == 0 {
		return nil
	}
	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].Then(nodes[i+1])
	}
	return nodes[0]
}
