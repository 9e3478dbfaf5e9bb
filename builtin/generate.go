package builtin

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/agentstation/loom"
	"github.com/agentstation/loom/llm"
	"github.com/agentstation/loom/yaml"
)

// GenerateBuilder builds nodes that call the gateway with a templated prompt.
//
// Config:
//   - prompt (required): a text/template rendered against the node's input
//   - model, max_tokens, temperature: generation parameters
//   - output: a store key to write the response to, in addition to passing it
//     downstream
func GenerateBuilder(gateway *llm.Gateway) yaml.NodeBuilder {
	return func(def yaml.NodeDefinition) (loom.Node, error) {
		promptText, ok := def.Config["prompt"].(string)
		if !ok {
			return nil, fmt.Errorf("node %q: prompt config is required", def.Name)
		}

		tmpl, err := template.New(def.Name).Parse(promptText)
		if err != nil {
			return nil, fmt.Errorf("node %q: parse prompt: %w", def.Name, err)
		}

		model, _ := def.Config["model"].(string)
		outputKey, _ := def.Config["output"].(string)

		var maxTokens int
		// YAML decoders disagree on integer types, so accept the usual ones.
		switch v := def.Config["max_tokens"].(type) {
		case int:
			maxTokens = v
		case int64:
			maxTokens = int(v)
		case uint64:
			maxTokens = int(v)
		case float64:
			maxTokens = int(v)
		}

		var temperature float64
		switch v := def.Config["temperature"].(type) {
		case float64:
			temperature = v
		case int:
			temperature = float64(v)
		}

		return loom.NewNode[any, any](def.Name,
			loom.Steps{
				Prep: func(ctx context.Context, store loom.StoreReader, input any) (any, error) {
					var buf bytes.Buffer
					if err := tmpl.Execute(&buf, input); err != nil {
						return nil, fmt.Errorf("render prompt: %w", err)
					}
					return llm.Request{
						Prompt:      buf.String(),
						Model:       model,
						MaxTokens:   maxTokens,
						Temperature: temperature,
					}, nil
				},
				Exec: func(ctx context.Context, prepResult any) (any, error) {
					req, ok := prepResult.(llm.Request)
					if !ok {
						return nil, fmt.Errorf("%w: expected llm.Request, got %T", loom.ErrInvalidInput, prepResult)
					}
					return gateway.Generate(ctx, req)
				},
				Post: func(ctx context.Context, store loom.StoreWriter, input, prepResult, execResult any) (any, string, error) {
					if outputKey != "" {
						if err := store.Set(ctx, outputKey, execResult); err != nil {
							return nil, "", err
						}
					}
					return execResult, loom.DefaultAction, nil
				},
			},
		), nil
	}
}
