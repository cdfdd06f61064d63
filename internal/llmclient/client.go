package llmclient

import (
	"context"
	"encoding/json"
	"errors"

	genai "google.golang.org/genai"

	"cupidx/internal/types"
)

// ErrEmptyResponse means the provider answered without any usable text.
var ErrEmptyResponse = errors.New("llmclient: empty response from model")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Request is one generation call. Schema is required for GenerateJSON and
// ignored by GenerateText. Image, when set, is sent ahead of the prompt.
type Request struct {
	Prompt string
	Schema *genai.Schema
	Image  *types.Image
}

// LLMClient defines the interface for LLM providers.
type LLMClient interface {
	Name() string
	Close() error
	// GenerateJSON asks for application/json constrained by req.Schema and
	// returns the model's raw text. Validation is the caller's job.
	GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error)
	// GenerateText returns a freeform completion.
	GenerateText(ctx context.Context, req Request) (string, error)
}
