package imagen

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/basel-ax/pixelart/internal/domain"
)

const redactedKey = "[REDACTED]"

// redactor removes the API key from text before it leaves the client
type redactor struct {
	secret string
}

func newRedactor(secret string) *redactor {
	return &redactor{secret: secret}
}

func (r *redactor) redact(s string) string {
	if r == nil || r.secret == "" {
		return s
	}
	return strings.ReplaceAll(s, r.secret, redactedKey)
}

// wrap hides the API key in err's text while keeping err reachable through errors.As
func (r *redactor) wrap(err error) error {
	if err == nil {
		return nil
	}
	return &redactedError{cause: err, redactor: r}
}

// redactedError is an upstream error whose text has the API key removed
type redactedError struct {
	cause    error
	redactor *redactor
}

func (e *redactedError) Error() string {
	return e.redactor.redact(e.cause.Error())
}

func (e *redactedError) Unwrap() error {
	return e.cause
}

// classify maps an upstream error to a generation error.
// Structured API error codes win; message matching is the fallback.
func classify(err error, r *redactor) *domain.GenerationError {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewGenerationError(domain.CategoryUpstreamError, "API Error: the image service did not respond in time.", r.wrap(err))
	}

	message := err.Error()
	if apiErr, ok := asAPIError(err); ok {
		if category, ok := categoryFromAPIError(apiErr); ok {
			return newClassified(category, err, r)
		}
		message = apiErr.Message
	}

	if category, ok := categoryFromMessage(message); ok {
		return newClassified(category, err, r)
	}

	return domain.NewGenerationError(domain.CategoryUpstreamError, "API Error: "+r.redact(message), r.wrap(err))
}

func newClassified(category domain.ErrorCategory, err error, r *redactor) *domain.GenerationError {
	var message string
	switch category {
	case domain.CategoryInvalidCredential:
		message = domain.MessageInvalidCredential
	case domain.CategoryQuotaExceeded:
		message = domain.MessageQuotaExceeded
	case domain.CategoryContentFiltered:
		message = domain.MessageContentFiltered
	default:
		message = "API Error: " + r.redact(err.Error())
	}
	return domain.NewGenerationError(category, message, r.wrap(err))
}

func asAPIError(err error) (*genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr, true
	}
	return nil, false
}

func categoryFromAPIError(apiErr *genai.APIError) (domain.ErrorCategory, bool) {
	switch {
	case apiErr.Code == http.StatusUnauthorized,
		apiErr.Code == http.StatusForbidden,
		apiErr.Status == "UNAUTHENTICATED",
		apiErr.Status == "PERMISSION_DENIED":
		return domain.CategoryInvalidCredential, true
	case apiErr.Code == http.StatusTooManyRequests,
		apiErr.Status == "RESOURCE_EXHAUSTED":
		return domain.CategoryQuotaExceeded, true
	}
	return "", false
}

func categoryFromMessage(message string) (domain.ErrorCategory, bool) {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "api key not valid"),
		strings.Contains(lower, "api_key_invalid"):
		return domain.CategoryInvalidCredential, true
	case strings.Contains(lower, "quota"):
		return domain.CategoryQuotaExceeded, true
	case strings.Contains(lower, "filtered"),
		strings.Contains(lower, "safety"):
		return domain.CategoryContentFiltered, true
	}
	return "", false
}
