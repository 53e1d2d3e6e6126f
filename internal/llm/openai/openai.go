// Package openai implements the llm capability against an
// OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/llm"
)

type Client struct {
	api   *goopenai.Client
	model string
	// kept for the credential fast-fail, the SDK does not expose it
	hasKey bool
}

// New creates an OpenAI-backed llm client. baseURL may be empty for
// the public API or point at any compatible endpoint.
func New(apiKey, model, baseURL string, timeout time.Duration) *Client {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:    goopenai.NewClientWithConfig(cfg),
		model:  model,
		hasKey: apiKey != "",
	}
}

// Extract implements llm.Extractor.
func (c *Client) Extract(ctx context.Context, message string) (llm.Extraction, error) {
	if !c.hasKey {
		return llm.Extraction{}, llm.ErrNoCredential
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: llm.ExtractionPrompt(message, core.Categorias)},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return llm.Extraction{}, fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return llm.Extraction{}, fmt.Errorf("%w: empty reply", llm.ErrNoJSON)
	}

	return llm.DecodeExtraction(resp.Choices[0].Message.Content)
}

// Advise implements llm.Advisor.
func (c *Client) Advise(ctx context.Context, summary string) (string, error) {
	if !c.hasKey {
		return "", llm.ErrNoCredential
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: llm.AdvicePrompt(summary)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty reply", llm.ErrUnavailable)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
