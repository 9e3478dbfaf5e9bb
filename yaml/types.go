// Package yaml loads pipeline definitions from YAML: a named set of nodes and
// labeled connections with a designated start, validated structurally against
// a JSON Schema and semantically against the graph rules, then materialized
// into a runnable flow through a registry of node builders.
package yaml

import "fmt"

// GraphDefinition is the top-level YAML document describing a pipeline.
type GraphDefinition struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`

	// Start names the entry node.
	Start string `yaml:"start" json:"start"`

	Nodes       []NodeDefinition       `yaml:"nodes" json:"nodes"`
	Connections []ConnectionDefinition `yaml:"connections,omitempty" json:"connections,omitempty"`
}

// NodeDefinition describes one node: its unique name, the registered builder
// type that constructs it, and free-form builder configuration.
type NodeDefinition struct {
	Name   string         `yaml:"name" json:"name"`
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// ConnectionDefinition describes a labeled edge. An empty action means the
// default edge.
type ConnectionDefinition struct {
	From   string `yaml:"from" json:"from"`
	To     string `yaml:"to" json:"to"`
	Action string `yaml:"action,omitempty" json:"action,omitempty"`
}

// Validate checks the semantic graph rules: node names are unique, the start
// node exists, and every connection references defined nodes.
func (gd *GraphDefinition) Validate() error {
	if gd.Name == "" {
		return fmt.Errorf("graph definition requires a name")
	}
	if len(gd.Nodes) == 0 {
		return fmt.Errorf("graph definition requires at least one node")
	}

	names := make(map[string]bool, len(gd.Nodes))
	for _, n := range gd.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node requires a name")
		}
		if n.Type == "" {
			return fmt.Errorf("node %q requires a type", n.Name)
		}
		if names[n.Name] {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		names[n.Name] = true
	}

	if gd.Start == "" {
		return fmt.Errorf("graph definition requires a start node")
	}
	if !names[gd.Start] {
		return fmt.Errorf("start node %q is not defined", gd.Start)
	}

	for _, c := range gd.Connections {
		if !names[c.From] {
			return fmt.Errorf("connection from undefined node %q", c.From)
		}
		if !names[c.To] {
			return fmt.Errorf("connection to undefined node %q", c.To)
		}
	}

	return nil
}
