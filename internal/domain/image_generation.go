package domain

import (
	"context"
)

// GenerationRequest is the body sent to the proxy endpoint
type GenerationRequest struct {
	Prompt string `json:"prompt"`
}

// GenerationResult is the outcome of a single generation attempt.
// Exactly one of ImageURL and Failure is set.
type GenerationResult struct {
	ImageURL string
	Failure  *GenerationError
}

// Succeeded builds a successful result
func Succeeded(imageURL string) GenerationResult {
	return GenerationResult{ImageURL: imageURL}
}

// Failed builds a failed result
func Failed(category ErrorCategory, message string) GenerationResult {
	return GenerationResult{Failure: NewGenerationError(category, message, nil)}
}

// OK reports whether the result carries an image
func (r GenerationResult) OK() bool {
	return r.Failure == nil
}

// ImageGenerator defines the interface for turning a prompt into an image reference
type ImageGenerator interface {
	// GenerateImage produces an image for the prompt and returns it as a data URI or URL
	GenerateImage(ctx context.Context, prompt Prompt) (string, error)
}
