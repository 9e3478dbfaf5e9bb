// Package google provides the llm.Provider adapter for Google's Gemini API,
// backed by the official generative-ai-go client.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/agentstation/loom/llm"
)

const defaultModel = "gemini-2.5-flash"

// Provider implements llm.Provider for Gemini models.
type Provider struct {
	client *genai.Client
	model  string
}

// New creates a Google provider. An empty model selects the default.
// Close should be called when the provider is no longer needed.
func New(ctx context.Context, apiKey, model string) (*Provider, error) {
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &Provider{
		client: client,
		model:  model,
	}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string {
	return llm.ProviderGoogle
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := p.model
	if req.Model != "" {
		name = req.Model
	}

	model := p.client.GenerativeModel(name)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature != 0 {
		model.SetTemperature(float32(req.Temperature))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", mapError(err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}
	return text, nil
}

// extractText concatenates the text parts of the first candidate. Gemini
// reports safety blocks as candidates without content.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &llm.ProviderError{
			Provider:  llm.ProviderGoogle,
			Code:      "empty_response",
			Message:   "no candidates in response",
			Retryable: true,
		}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", &llm.ProviderError{
			Provider:  llm.ProviderGoogle,
			Code:      "blocked",
			Message:   fmt.Sprintf("candidate has no content (finish reason %v)", candidate.FinishReason),
			Retryable: false,
		}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", &llm.ProviderError{
			Provider:  llm.ProviderGoogle,
			Code:      "empty_response",
			Message:   "candidate contained no text parts",
			Retryable: true,
		}
	}

	return sb.String(), nil
}

// mapError translates client failures into the common taxonomy.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "quota exceeded"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "rate limit"):
		return &llm.ProviderError{
			Provider:  llm.ProviderGoogle,
			Code:      "rate_limited",
			Message:   "rate limit or quota exceeded",
			Retryable: true,
			Err:       err,
		}
	case strings.Contains(msg, "500"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "internal"),
		strings.Contains(msg, "unavailable"):
		return &llm.ProviderError{
			Provider:  llm.ProviderGoogle,
			Code:      "server_error",
			Message:   "server error",
			Retryable: true,
			Err:       err,
		}
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "permission"):
		return &llm.ProviderError{
			Provider:  llm.ProviderGoogle,
			Code:      "auth",
			Message:   "API key is invalid or lacks permission",
			Retryable: false,
			Err:       err,
		}
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline"):
		return &llm.ProviderError{
			Provider:  llm.ProviderGoogle,
			Code:      "timeout",
			Message:   "request timed out",
			Retryable: true,
			Err:       err,
		}
	}

	return &llm.ProviderError{
		Provider:  llm.ProviderGoogle,
		Code:      "api_error",
		Message:   "request failed",
		Retryable: false,
		Err:       err,
	}
}
