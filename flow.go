package loom

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Flow is an ordered, possibly branching chain of nodes with a designated
// start. It owns the run loop that drives each node through its lifecycle
// against the shared store.
//
// A Flow also implements Node (Exec runs the sub-chain to completion), so a
// previously built chain can be embedded as a single step inside a larger
// chain without modification.
type Flow struct {
	name       string
	start      Node
	store      Store
	successors map[string]Node
	opts       flowOptions
}

// flowOptions holds configuration for a Flow.
type flowOptions struct {
	logger Logger
}

// FlowOption configures a Flow.
type FlowOption func(*flowOptions)

// WithLogger adds structured logging of node transitions to the flow.
func WithLogger(logger Logger) FlowOption {
	return func(o *flowOptions) {
		o.logger = logger
	}
}

// NewFlow creates a flow starting from the given node. The store is not owned
// by the flow: the caller creates it, every node in the run observes the same
// instance, and the caller keeps it after the run completes (including after a
// partial failure, for diagnostics).
func NewFlow(start Node, store Store, opts ...FlowOption) *Flow {
	name := "flow"
	if start != nil {
		name = "flow-" + start.Name()
	}

	f := &Flow{
		name:       name,
		start:      start,
		store:      store,
		successors: make(map[string]Node),
	}

	for _, opt := range opts {
		opt(&f.opts)
	}

	return f
}

// Run executes the flow with the given input.
//
// The loop is single-threaded and cooperative: each node runs to completion
// before its successor starts, so store writes from node i are visible to node
// i+1's Prep. The loop follows the edge matching the action label returned by
// each node's Post, falling back to the default edge when no exact label
// matches, and terminates normally when no edge matches at all. There is no
// iteration cap: a node may route back to itself or an earlier node, and the
// caller is responsible for eventual termination (e.g. a counter in the store).
func (f *Flow) Run(ctx context.Context, input any) (output any, err error) {
	if f.start == nil {
		return nil, ErrNoStartNode
	}

	current := f.start
	currentInput := input
	var lastOutput any

	for current != nil {
		if f.opts.logger != nil {
			f.opts.logger.Debug(ctx, "executing node", "flow", f.name, "node", current.Name())
		}

		output, next, err := f.executeNode(ctx, current, currentInput)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", current.Name(), err)
		}

		lastOutput = output

		successors := current.Successors()
		succ, ok := successors[next]
		if !ok && next != DefaultAction {
			// No exact match: fall back to the default edge.
			succ = successors[DefaultAction]
		}
		current = succ
		currentInput = output
	}

	return lastOutput, nil
}

// AsNode returns the flow as a Node, optionally renaming it for the enclosing
// chain.
func (f *Flow) AsNode(name string) Node {
	if name != "" {
		f.name = name
	}
	return f
}

// Name returns the flow's identifier.
func (f *Flow) Name() string {
	return f.name
}

// Prep for a flow passes the input through; the sub-chain reads the shared
// store itself.
func (f *Flow) Prep(ctx context.Context, store StoreReader, input any) (any, error) {
	return input, nil
}

// Exec runs the sub-chain to completion.
func (f *Flow) Exec(ctx context.Context, input any) (any, error) {
	return f.Run(ctx, input)
}

// Post routes the sub-chain's result along the default edge.
func (f *Flow) Post(ctx context.Context, store StoreWriter, input, prepResult, execResult any) (any, string, error) {
	return execResult, DefaultAction, nil
}

// Connect adds a successor for when the flow is used as a node.
func (f *Flow) Connect(action string, next Node) Node {
	f.successors[action] = next
	return f
}

// Then connects next along the default edge and returns next.
func (f *Flow) Then(next Node) Node {
	f.successors[DefaultAction] = next
	return next
}

// Successors returns all connected nodes.
func (f *Flow) Successors() map[string]Node {
	return f.successors
}

// executeNode runs a single node's lifecycle, applying its timeout and error
// handler if configured.
func (f *Flow) executeNode(ctx context.Context, n Node, input any) (output any, next string, err error) {
	if simpleNode, ok := n.(*node); ok && simpleNode.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, simpleNode.opts.timeout)
		defer cancel()
	}

	output, next, err = f.executeLifecycle(ctx, n, input)
	if err != nil {
		if simpleNode, ok := n.(*node); ok && simpleNode.opts.onError != nil {
			simpleNode.opts.onError(err)
		}
		return nil, "", err
	}

	return output, next, nil
}

// executeLifecycle runs the Prep/Exec/Post steps.
//
// Prep failures are precondition errors: fatal, never retried. Exec is retried
// per the node's retry options, then resolved through the node's fallback if
// one is configured. Post is never retried (it makes routing decisions).
func (f *Flow) executeLifecycle(ctx context.Context, n Node, input any) (output any, next string, err error) {
	prepResult, err := n.Prep(ctx, f.store, input)
	if err != nil {
		return nil, "", fmt.Errorf("prep failed: %w", err)
	}

	execResult, err := f.executeWithRetry(ctx, n, prepResult)
	if err != nil {
		simpleNode, ok := n.(*node)
		if ok && simpleNode.opts.fallback != nil {
			if f.opts.logger != nil {
				f.opts.logger.Debug(ctx, "executing fallback", "node", n.Name(), "error", err)
			}

			fallbackResult, fallbackErr := simpleNode.opts.fallback(ctx, prepResult, err)
			if fallbackErr != nil {
				return nil, "", fmt.Errorf("exec failed and fallback failed: primary=%w, fallback=%v", err, fallbackErr)
			}
			execResult = fallbackResult
		} else {
			return nil, "", fmt.Errorf("exec failed: %w", err)
		}
	}

	output, next, err = n.Post(ctx, f.store, input, prepResult, execResult)
	if err != nil {
		return nil, "", fmt.Errorf("post failed: %w", err)
	}

	return output, next, nil
}

// executeWithRetry drives the Exec step, re-invoking it with the same prepared
// input up to the node's retry bound.
func (f *Flow) executeWithRetry(ctx context.Context, n Node, prepResult any) (any, error) {
	maxAttempts := 1 // default no retry
	var retryDelay time.Duration

	if simpleNode, ok := n.(*node); ok {
		maxAttempts = simpleNode.opts.maxRetries + 1
		retryDelay = simpleNode.opts.retryDelay
	}

	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			if f.opts.logger != nil {
				f.opts.logger.Debug(ctx, "retrying node exec",
					"node", n.Name(),
					"attempt", attempt+1,
					"error", lastErr)
			}
		}

		result, err := n.Exec(ctx, prepResult)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	if maxAttempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

// BatchSteps groups the lifecycle functions for a batch node: Prep fans the
// input out into items, Exec runs once per item, Post receives the collected
// results in item order.
type BatchSteps[In, Out any] struct {
	Prep func(ctx context.Context, store StoreReader, input any) ([]In, error)
	Exec func(ctx context.Context, item In) (Out, error)
	Post func(ctx context.Context, store StoreWriter, input any, items []In, results []Out) (any, string, error)
}

// NewBatchNode creates a node whose Exec phase processes a slice of items one
// at a time, preserving the engine's sequential execution guarantee. Retry
// options apply to the whole batch.
func NewBatchNode[In, Out any](name string, steps BatchSteps[In, Out], opts ...Option) Node {
	lifecycle := Steps{}

	if steps.Prep != nil {
		lifecycle.Prep = func(ctx context.Context, store StoreReader, input any) (any, error) {
			return steps.Prep(ctx, store, input)
		}
	}

	lifecycle.Exec = func(ctx context.Context, prepResult any) (any, error) {
		items, ok := prepResult.([]In)
		if !ok {
			return nil, fmt.Errorf("%w: batch exec expected %T, got %T", ErrInvalidInput, []In(nil), prepResult)
		}

		results := make([]Out, 0, len(items))
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result, err := steps.Exec(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			results = append(results, result)
		}
		return results, nil
	}

	if steps.Post != nil {
		lifecycle.Post = func(ctx context.Context, store StoreWriter, input, prepResult, execResult any) (any, string, error) {
			items, _ := prepResult.([]In)
			results, _ := execResult.([]Out)
			return steps.Post(ctx, store, input, items, results)
		}
	}

	return NewNode[any, any](name, lifecycle, opts...)
}

// RunConcurrent executes multiple nodes concurrently, each as its own
// single-node flow over a scoped store. This sits outside the single-run
// contract: within one flow run, nodes never execute concurrently.
func RunConcurrent(ctx context.Context, nodes []Node, store Store, inputs []any) ([]any, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	if len(inputs) == 0 {
		inputs = make([]any, len(nodes))
	}
	if len(inputs) != len(nodes) {
		return nil, fmt.Errorf("input count (%d) must match node count (%d)", len(inputs), len(nodes))
	}

	g, ctx := errgroup.WithContext(ctx)
	results := make([]any, len(nodes))
	mu := &sync.Mutex{}

	for i, n := range nodes {
		i, n := i, n
		input := inputs[i]
		g.Go(func() error {
			// Each concurrent execution gets its own scoped store.
			scoped := store.Scope(fmt.Sprintf("concurrent-%d", i))
			flow := NewFlow(n, scoped)
			result, err := flow.Run(ctx, input)
			if err != nil {
				return fmt.Errorf("node %s: %w", n.Name(), err)
			}

			mu.Lock()
			results[i] = result
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// FanOut executes a node once per item concurrently, each over a scoped store.
// Results are returned in item order.
func FanOut[T any](ctx context.Context, n Node, store Store, items []T) ([]any, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]any, len(items))
	mu := &sync.Mutex{}

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			scoped := store.Scope(fmt.Sprintf("item-%d", i))
			flow := NewFlow(n, scoped)
			result, err := flow.Run(ctx, item)
			if err != nil {
				return err
			}

			mu.Lock()
			results[i] = result
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
