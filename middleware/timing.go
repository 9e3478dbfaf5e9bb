package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/loom"
)

// NodeTiming aggregates exec latencies for a single node.
type NodeTiming struct {
	Count int64
	Total time.Duration
	Last  time.Duration
}

// Average returns the mean exec duration, or zero before the first execution.
func (t NodeTiming) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// Collector accumulates exec timings per node. Safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	timings map[string]NodeTiming
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{timings: make(map[string]NodeTiming)}
}

func (c *Collector) record(nodeName string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.timings[nodeName]
	t.Count++
	t.Total += d
	t.Last = d
	c.timings[nodeName] = t
}

// Timing returns the accumulated timing for a node.
func (c *Collector) Timing(nodeName string) (NodeTiming, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.timings[nodeName]
	return t, ok
}

// Timings returns a snapshot of all recorded timings.
func (c *Collector) Timings() map[string]NodeTiming {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(map[string]NodeTiming, len(c.timings))
	for name, t := range c.timings {
		snapshot[name] = t
	}
	return snapshot
}

// Timing records each exec's duration into the collector, keyed by node name.
// Failed execs are recorded too: a retried call spends real time.
func Timing(collector *Collector) Middleware {
	return func(node loom.Node) loom.Node {
		return &middlewareNode{
			inner: node,
			name:  node.Name(),
			exec: func(ctx context.Context, prepResult any) (any, error) {
				start := time.Now()
				result, err := node.Exec(ctx, prepResult)
				collector.record(node.Name(), time.Since(start))
				return result, err
			},
		}
	}
}
