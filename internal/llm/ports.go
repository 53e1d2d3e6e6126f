// Package llm defines the injectable language-model capability used by
// the expense registration and advice flows, plus the prompt and reply
// cleanup shared by its adapters.
package llm

import (
	"context"
	"errors"
)

// Extraction is the structured triple extracted from a free-text
// expense message. Valor stays a string here; the caller is the one
// that must parse it to a number and abort the write if it cannot.
type Extraction struct {
	Descricao string `json:"descricao"`
	Valor     string `json:"valor"`
	Categoria string `json:"categoria"`
}

var (
	// ErrNoCredential means the API key is not configured. Detected
	// before any network call.
	ErrNoCredential = errors.New("llm: api credential not configured")

	// ErrUnavailable means the model API could not be reached or
	// returned a non-success status.
	ErrUnavailable = errors.New("llm: model unavailable")

	// ErrNoJSON means the model reply contained no parsable JSON object.
	ErrNoJSON = errors.New("llm: no json object in model reply")

	// ErrIncomplete means the reply parsed but one of the three
	// required keys is missing or empty.
	ErrIncomplete = errors.New("llm: incomplete extraction")
)

// Extractor converts a free-text expense message into an Extraction.
type Extractor interface {
	Extract(ctx context.Context, message string) (Extraction, error)
}

// Advisor produces free-text financial advice from a spending summary.
type Advisor interface {
	Advise(ctx context.Context, summary string) (string, error)
}

// Client groups both capabilities; the provider adapters implement it.
type Client interface {
	Extractor
	Advisor
}
