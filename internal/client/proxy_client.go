package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/basel-ax/pixelart/internal/domain"
)

const (
	generatePath      = "/api/generate"
	maxResponseBytes  = 32 << 20
	msgGenerateFailed = "Failed to generate image"
)

// ProxyClient calls the pixel art proxy over HTTP
type ProxyClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewProxyClient creates a new proxy client for the server at baseURL
func NewProxyClient(baseURL string, timeout time.Duration) *ProxyClient {
	return &ProxyClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GenerateImage posts the prompt to the proxy and returns the image data URI
func (c *ProxyClient) GenerateImage(ctx context.Context, prompt domain.Prompt) (string, error) {
	body, err := json.Marshal(domain.GenerationRequest{Prompt: prompt.String()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewGenerationError(domain.CategoryNetworkError, domain.MessageNetworkError, err)
	}
	defer resp.Body.Close()

	// The body is decoded best-effort; a non-JSON error page still yields a usable failure.
	var payload struct {
		ImageURL string `json:"imageUrl"`
		Error    string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", domain.NewGenerationError(domain.CategoryNetworkError, domain.MessageNetworkError, err)
	}
	_ = json.Unmarshal(raw, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := payload.Error
		if message == "" {
			message = msgGenerateFailed
		}
		cause := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		return "", domain.NewGenerationError(categoryForStatus(resp.StatusCode), message, cause)
	}

	if payload.ImageURL == "" {
		return "", domain.NewGenerationError(domain.CategoryNoImageData, domain.MessageNoImageData, nil)
	}

	return payload.ImageURL, nil
}

func categoryForStatus(status int) domain.ErrorCategory {
	switch status {
	case http.StatusBadRequest:
		return domain.CategoryInvalidInput
	case http.StatusTooManyRequests:
		return domain.CategoryRateLimited
	default:
		return domain.CategoryUpstreamError
	}
}
