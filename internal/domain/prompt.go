package domain

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxPromptLength is the maximum number of characters accepted in a prompt
const MaxPromptLength = 200

var (
	// ErrEmptyPrompt is returned when the prompt is blank after trimming
	ErrEmptyPrompt = errors.New("prompt is required")

	// ErrPromptTooLong is returned when the trimmed prompt exceeds MaxPromptLength
	ErrPromptTooLong = errors.New("prompt too long")
)

// disallowedChars matches everything outside word characters, whitespace and . , ! ? ' -
var disallowedChars = regexp.MustCompile(`[^\w\s.,!?'\-]`)

// Prompt is a validated, sanitized description of the image to generate
type Prompt string

// String returns the prompt text
func (p Prompt) String() string {
	return string(p)
}

// Sanitize strips every character outside the prompt allow-list
func Sanitize(input string) string {
	return disallowedChars.ReplaceAllString(input, "")
}

// ValidatePrompt trims, checks and sanitizes raw user input.
// The same rules run in the terminal client and in the proxy; only the proxy's result is trusted.
func ValidatePrompt(raw string) (Prompt, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyPrompt
	}
	if utf8.RuneCountInString(trimmed) > MaxPromptLength {
		return "", ErrPromptTooLong
	}

	sanitized := strings.TrimSpace(Sanitize(trimmed))
	if sanitized == "" {
		return "", ErrEmptyPrompt
	}

	return Prompt(sanitized), nil
}

// IsSubmittable reports whether raw would pass the length checks of ValidatePrompt
func IsSubmittable(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed != "" && utf8.RuneCountInString(trimmed) <= MaxPromptLength
}
