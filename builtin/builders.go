package builtin

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/ohler55/ojg/jp"

	"github.com/agentstation/loom"
	"github.com/agentstation/loom/yaml"
)

// EchoBuilder builds nodes that output a configured message alongside their
// input. Mostly useful for wiring and debugging pipelines.
func EchoBuilder() yaml.NodeBuilder {
	return func(def yaml.NodeDefinition) (loom.Node, error) {
		message := "hello"
		if msg, ok := def.Config["message"].(string); ok {
			message = msg
		}

		return loom.NewNode[any, any](def.Name,
			loom.Steps{
				Exec: func(ctx context.Context, prepResult any) (any, error) {
					return map[string]any{
						"message": message,
						"input":   prepResult,
						"node":    def.Name,
					}, nil
				},
			},
		), nil
	}
}

// DelayBuilder builds nodes that pause the pipeline for a configured duration.
// The delay respects context cancellation.
func DelayBuilder() yaml.NodeBuilder {
	return func(def yaml.NodeDefinition) (loom.Node, error) {
		duration := time.Second
		if d, ok := def.Config["duration"].(string); ok {
			parsed, err := time.ParseDuration(d)
			if err != nil {
				return nil, fmt.Errorf("node %q: invalid duration %q: %w", def.Name, d, err)
			}
			duration = parsed
		}

		return loom.NewNode[any, any](def.Name,
			loom.Steps{
				Exec: func(ctx context.Context, prepResult any) (any, error) {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(duration):
						return prepResult, nil
					}
				},
			},
		), nil
	}
}

// TemplateBuilder builds nodes that render a text/template against their
// input. The template is parsed once at build time.
func TemplateBuilder() yaml.NodeBuilder {
	return func(def yaml.NodeDefinition) (loom.Node, error) {
		text, ok := def.Config["template"].(string)
		if !ok {
			return nil, fmt.Errorf("node %q: template config is required", def.Name)
		}

		tmpl, err := template.New(def.Name).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("node %q: parse template: %w", def.Name, err)
		}

		return loom.NewNode[any, any](def.Name,
			loom.Steps{
				Exec: func(ctx context.Context, prepResult any) (any, error) {
					var buf bytes.Buffer
					if err := tmpl.Execute(&buf, prepResult); err != nil {
						return nil, fmt.Errorf("render template: %w", err)
					}
					return buf.String(), nil
				},
			},
		), nil
	}
}

// TransformBuilder builds nodes that extract a value from their input with a
// JSONPath expression. A path with no match yields nil.
func TransformBuilder() yaml.NodeBuilder {
	return func(def yaml.NodeDefinition) (loom.Node, error) {
		path, ok := def.Config["path"].(string)
		if !ok {
			return nil, fmt.Errorf("node %q: path config is required", def.Name)
		}

		expr, err := jp.ParseString(path)
		if err != nil {
			return nil, fmt.Errorf("node %q: parse path %q: %w", def.Name, path, err)
		}

		return loom.NewNode[any, any](def.Name,
			loom.Steps{
				Exec: func(ctx context.Context, prepResult any) (any, error) {
					results := expr.Get(prepResult)
					if len(results) == 0 {
						return nil, nil
					}
					if len(results) == 1 {
						return results[0], nil
					}
					return results, nil
				},
			},
		), nil
	}
}

// RouterBuilder builds nodes that route along a configured action label,
// letting a YAML definition steer a branch without custom code.
func RouterBuilder() yaml.NodeBuilder {
	return func(def yaml.NodeDefinition) (loom.Node, error) {
		action := loom.DefaultAction
		if a, ok := def.Config["action"].(string); ok {
			action = a
		}

		return loom.NewNode[any, any](def.Name,
			loom.Steps{
				Post: func(ctx context.Context, store loom.StoreWriter, input, prepResult, execResult any) (any, string, error) {
					return execResult, action, nil
				},
			},
		), nil
	}
}
