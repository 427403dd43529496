package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"lecturenotes/internal/resilience"
)

// NewOpenAIClient creates a go-openai client, optionally against a custom base URL
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// ClassifyOpenAIError marks rate limiting and upstream server failures as retryable
func ClassifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return resilience.NewRetryableError(err)
	}
	return err
}

// chatModel sends a system+user prompt and returns the first choice
type chatModel struct {
	client    *openai.Client
	model     string
	maxTokens int
	log       zerolog.Logger
}

func (c *chatModel) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		// zero would be dropped by omitempty
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   c.maxTokens,
	}

	c.log.Debug().
		Str("model", c.model).
		Int("prompt_chars", len(userPrompt)).
		Msg("Calling OpenAI chat completion")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", ClassifyOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	c.log.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("OpenAI usage")

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
