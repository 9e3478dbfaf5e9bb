package yaml

import (
	"fmt"

	"github.com/agentstation/loom"
)

// NodeBuilder constructs a node from its definition. Builders are registered
// per definition "type" string.
type NodeBuilder func(def NodeDefinition) (loom.Node, error)

// Loader materializes graph definitions into runnable flows through a
// registry of node builders.
type Loader struct {
	builders map[string]NodeBuilder
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{builders: make(map[string]NodeBuilder)}
}

// Register adds a builder for a node type. Registering the same type twice
// overwrites the earlier builder.
func (l *Loader) Register(nodeType string, builder NodeBuilder) {
	l.builders[nodeType] = builder
}

// LoadDefinition builds every node in the definition, wires the connections,
// and returns a flow starting at the definition's start node. The store is the
// caller's: the loader never creates one.
func (l *Loader) LoadDefinition(gd *GraphDefinition, store loom.Store, opts ...loom.FlowOption) (*loom.Flow, error) {
	if err := gd.Validate(); err != nil {
		return nil, err
	}

	nodes := make(map[string]loom.Node, len(gd.Nodes))
	for _, def := range gd.Nodes {
		builder, ok := l.builders[def.Type]
		if !ok {
			return nil, fmt.Errorf("no builder registered for node type %q (node %q)", def.Type, def.Name)
		}

		n, err := builder(def)
		if err != nil {
			return nil, fmt.Errorf("build node %q: %w", def.Name, err)
		}
		nodes[def.Name] = n
	}

	for _, c := range gd.Connections {
		action := c.Action
		if action == "" {
			action = loom.DefaultAction
		}
		nodes[c.From].Connect(action, nodes[c.To])
	}

	flow := loom.NewFlow(nodes[gd.Start], store, opts...)
	return flow.AsNode(gd.Name).(*loom.Flow), nil
}
