// Package gemini implements the llm capability against the Google
// generative-language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Request/response shapes for the generateContent endpoint.
type (
	requestPart struct {
		Text string `json:"text"`
	}

	requestContent struct {
		Parts []requestPart `json:"parts"`
		Role  string        `json:"role,omitempty"`
	}

	generationConfig struct {
		ResponseMIMEType string `json:"responseMimeType,omitempty"`
	}

	safetySetting struct {
		Category  string `json:"category"`
		Threshold string `json:"threshold"`
	}

	generateRequest struct {
		Contents         []requestContent  `json:"contents"`
		GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
		SafetySettings   []safetySetting   `json:"safetySettings,omitempty"`
	}

	responsePart struct {
		Text string `json:"text"`
	}

	responseContent struct {
		Parts []responsePart `json:"parts"`
		Role  string         `json:"role"`
	}

	candidate struct {
		Content      responseContent `json:"content"`
		FinishReason string          `json:"finishReason"`
	}

	generateResponse struct {
		Candidates     []candidate    `json:"candidates"`
		PromptFeedback map[string]any `json:"promptFeedback,omitempty"`
	}
)

// harmCategories covers the default content filters. The advice path
// sets them all to BLOCK_NONE; financial advice can otherwise trip the
// dangerous-content heuristics.
var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a Gemini-backed llm client. The key may be empty; calls
// then fail fast with llm.ErrNoCredential without touching the network.
func New(apiKey, model string, timeout time.Duration) *Client {
	if model == "" {
		model = "gemini-1.5-flash-latest"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// Extract implements llm.Extractor.
func (c *Client) Extract(ctx context.Context, message string) (llm.Extraction, error) {
	if c.apiKey == "" {
		return llm.Extraction{}, llm.ErrNoCredential
	}

	req := generateRequest{
		Contents: []requestContent{
			{Parts: []requestPart{{Text: llm.ExtractionPrompt(message, core.Categorias)}}},
		},
		GenerationConfig: &generationConfig{ResponseMIMEType: "application/json"},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return llm.Extraction{}, err
	}
	return llm.DecodeExtraction(text)
}

// Advise implements llm.Advisor. Content-safety filters are relaxed to
// their most permissive setting for this call.
func (c *Client) Advise(ctx context.Context, summary string) (string, error) {
	if c.apiKey == "" {
		return "", llm.ErrNoCredential
	}

	settings := make([]safetySetting, 0, len(harmCategories))
	for _, cat := range harmCategories {
		settings = append(settings, safetySetting{Category: cat, Threshold: "BLOCK_NONE"})
	}

	req := generateRequest{
		Contents: []requestContent{
			{Parts: []requestPart{{Text: llm.AdvicePrompt(summary)}}},
		},
		SafetySettings: settings,
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) generate(ctx context.Context, payload generateRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.ErrorContext(ctx, "Gemini API returned non-OK status",
			"status", resp.Status,
			"model", c.model,
			"body", string(detail))
		return "", fmt.Errorf("%w: status %s", llm.ErrUnavailable, resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", llm.ErrUnavailable, err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		slog.WarnContext(ctx, "Gemini reply has no candidates", "feedback", out.PromptFeedback)
		return "", fmt.Errorf("%w: empty reply", llm.ErrNoJSON)
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}
