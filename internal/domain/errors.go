package domain

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a failed generation attempt
type ErrorCategory string

const (
	CategoryInvalidInput      ErrorCategory = "invalid_input"
	CategoryRateLimited       ErrorCategory = "rate_limited"
	CategoryInvalidCredential ErrorCategory = "invalid_credential"
	CategoryQuotaExceeded     ErrorCategory = "quota_exceeded"
	CategoryContentFiltered   ErrorCategory = "content_filtered"
	CategoryUpstreamError     ErrorCategory = "upstream_error"
	CategoryNoImageData       ErrorCategory = "no_image_data"
	CategoryNetworkError      ErrorCategory = "network_error"
	CategoryUnavailable       ErrorCategory = "unavailable"
)

// User-facing messages for the classified categories
const (
	MessageInvalidCredential = "Invalid API Key. Please ensure the API key is correctly configured."
	MessageQuotaExceeded     = "API quota exceeded. Please check your Google Cloud project quota or try again later."
	MessageContentFiltered   = "The prompt was filtered by the safety settings. Please try a different prompt."
	MessageNoImageData       = "No image data received from API. The model might not have been able to generate an image for this prompt."
	MessageRateLimited       = "Too many requests, please try again later."
	MessageNetworkError      = "Network error: could not reach the image server."
	MessageUnavailable       = "Image generation client is not initialized. Check the API key."
)

// GenerationError is a failure carrying a category and a message that is safe to show to the end user.
// Err holds the underlying cause for logging and is never rendered to callers.
type GenerationError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

// NewGenerationError creates a new classified generation error
func NewGenerationError(category ErrorCategory, message string, cause error) *GenerationError {
	return &GenerationError{
		Category: category,
		Message:  message,
		Err:      cause,
	}
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// AsGenerationError extracts a *GenerationError from err's chain
func AsGenerationError(err error) (*GenerationError, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}

// CategoryOf returns the category of err, or CategoryUpstreamError when err is not classified
func CategoryOf(err error) ErrorCategory {
	if errors.Is(err, ErrEmptyPrompt) || errors.Is(err, ErrPromptTooLong) {
		return CategoryInvalidInput
	}
	if genErr, ok := AsGenerationError(err); ok {
		return genErr.Category
	}
	return CategoryUpstreamError
}
