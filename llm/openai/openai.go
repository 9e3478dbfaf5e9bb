// Package openai provides the llm.Provider adapter for OpenAI's chat
// completion API, backed by the official openai-go client.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/agentstation/loom/llm"
)

const defaultModel = "gpt-4o-mini"

// Provider implements llm.Provider for OpenAI models. Safe for concurrent
// use; the SDK client handles concurrent requests.
type Provider struct {
	client *openai.Client
	model  string
}

// New creates an OpenAI provider. An empty model selects the default.
func New(apiKey, model string) *Provider {
	if model == "" {
		model = defaultModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Provider{
		client: &client,
		model:  model,
	}
}

// Name implements llm.Provider.
func (p *Provider) Name() string {
	return llm.ProviderOpenAI
}

// Generate implements llm.Provider via a single-user-message chat completion.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(req.Prompt),
					},
				},
			},
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	if len(completion.Choices) == 0 {
		return "", &llm.ProviderError{
			Provider:  llm.ProviderOpenAI,
			Code:      "empty_response",
			Message:   "no choices in completion",
			Retryable: true,
		}
	}

	return completion.Choices[0].Message.Content, nil
}

// mapError translates SDK failures into the common taxonomy.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"):
		return &llm.ProviderError{
			Provider:  llm.ProviderOpenAI,
			Code:      "rate_limited",
			Message:   "rate limit exceeded",
			Retryable: true,
			Err:       err,
		}
	case strings.Contains(msg, "500"),
		strings.Contains(msg, "502"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "504"),
		strings.Contains(msg, "server error"),
		strings.Contains(msg, "service unavailable"):
		return &llm.ProviderError{
			Provider:  llm.ProviderOpenAI,
			Code:      "server_error",
			Message:   "server error",
			Retryable: true,
			Err:       err,
		}
	case strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "incorrect api key"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "authentication"):
		return &llm.ProviderError{
			Provider:  llm.ProviderOpenAI,
			Code:      "auth",
			Message:   "API key is invalid or expired",
			Retryable: false,
			Err:       err,
		}
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "billing"):
		return &llm.ProviderError{
			Provider:  llm.ProviderOpenAI,
			Code:      "quota_exceeded",
			Message:   "API quota exceeded",
			Retryable: false,
			Err:       err,
		}
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline"):
		return &llm.ProviderError{
			Provider:  llm.ProviderOpenAI,
			Code:      "timeout",
			Message:   "request timed out",
			Retryable: true,
			Err:       err,
		}
	}

	return &llm.ProviderError{
		Provider:  llm.ProviderOpenAI,
		Code:      "api_error",
		Message:   "request failed",
		Retryable: false,
		Err:       err,
	}
}
