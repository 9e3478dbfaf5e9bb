// Package anthropic provides the llm.Provider adapter for Anthropic's Claude
// API, backed by the official anthropic-sdk-go client.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentstation/loom/llm"
)

const defaultModel = "claude-3-7-sonnet-20250219"
const defaultMaxTokens = 4096

// Provider implements llm.Provider for Claude models. Safe for concurrent
// use; the SDK client handles concurrent requests.
type Provider struct {
	client *anthropic.Client
	model  string
}

// New creates an Anthropic provider. An empty model selects the default.
func New(apiKey, model string) *Provider {
	if model == "" {
		model = defaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Provider{
		client: &client,
		model:  model,
	}
}

// Name implements llm.Provider.
func (p *Provider) Name() string {
	return llm.ProviderAnthropic
}

// Generate implements llm.Provider by sending a single user message and
// concatenating the text blocks of the reply.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature != 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &llm.ProviderError{
			Provider:  llm.ProviderAnthropic,
			Code:      "empty_response",
			Message:   "response contained no text blocks",
			Retryable: true,
		}
	}

	return sb.String(), nil
}

// mapError translates SDK failures into the common taxonomy. Anthropic error
// bodies carry a type string (rate_limit_error, overloaded_error, ...) that
// surfaces in the error text.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate_limit"),
		strings.Contains(msg, "too many requests"):
		return &llm.ProviderError{
			Provider:  llm.ProviderAnthropic,
			Code:      "rate_limited",
			Message:   "rate limit exceeded",
			Retryable: true,
			Err:       err,
		}
	case strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "529"),
		strings.Contains(msg, "500"),
		strings.Contains(msg, "503"):
		return &llm.ProviderError{
			Provider:  llm.ProviderAnthropic,
			Code:      "overloaded",
			Message:   "service temporarily overloaded",
			Retryable: true,
			Err:       err,
		}
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "api_key"):
		return &llm.ProviderError{
			Provider:  llm.ProviderAnthropic,
			Code:      "auth",
			Message:   "API key is invalid or lacks permission",
			Retryable: false,
			Err:       err,
		}
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline"):
		return &llm.ProviderError{
			Provider:  llm.ProviderAnthropic,
			Code:      "timeout",
			Message:   "request timed out",
			Retryable: true,
			Err:       err,
		}
	}

	return &llm.ProviderError{
		Provider:  llm.ProviderAnthropic,
		Code:      "api_error",
		Message:   "request failed",
		Retryable: false,
		Err:       err,
	}
}
