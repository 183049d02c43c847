package imagen

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/basel-ax/pixelart/internal/domain"
)

const (
	defaultModel   = "imagen-3.0-generate-002"
	defaultTimeout = 30 * time.Second
	outputMIMEType = "image/png"
)

// promptTemplate wraps the subject in pixel-art style instructions
const promptTemplate = `Generate a high-quality pixel art image. The style should be distinctively pixelated, reminiscent of classic 8-bit or 16-bit video games, or modern indie pixel art. Avoid smooth gradients or anti-aliasing. The subject is: "%s". Ensure the final image has a clear, crisp, low-resolution pixel aesthetic.`

// imagesAPI is the part of genai.Models the client uses
type imagesAPI interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Config holds the settings for the upstream image client
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client represents the upstream image generation client.
// A Client built with NewUnavailable fails every call with CategoryUnavailable.
type Client struct {
	images   imagesAPI
	model    string
	redactor *redactor
	reason   string
	logger   *zap.Logger
}

// NewClient creates a new client for the Gemini API backend
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	genAIClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newClient(genAIClient.Models, cfg.Model, cfg.APIKey, logger), nil
}

// NewUnavailable creates a client that reports itself as not initialized
func NewUnavailable(reason string, logger *zap.Logger) *Client {
	return &Client{
		reason: reason,
		logger: logger.With(zap.String("component", "imagen")),
	}
}

func newClient(images imagesAPI, model, apiKey string, logger *zap.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		images:   images,
		model:    model,
		redactor: newRedactor(apiKey),
		logger:   logger.With(zap.String("component", "imagen"), zap.String("model", model)),
	}
}

// Available reports whether the client can reach the upstream service
func (c *Client) Available() bool {
	return c.images != nil
}

// BuildPrompt wraps a prompt in the pixel-art style template
func BuildPrompt(prompt domain.Prompt) string {
	return fmt.Sprintf(promptTemplate, prompt)
}

// GenerateImage requests a single PNG for the prompt and returns it as a data URI
func (c *Client) GenerateImage(ctx context.Context, prompt domain.Prompt) (string, error) {
	if !c.Available() {
		c.logger.Warn("image client unavailable", zap.String("reason", c.reason))
		return "", domain.NewGenerationError(domain.CategoryUnavailable, domain.MessageUnavailable, fmt.Errorf("client unavailable: %s", c.reason))
	}

	resp, err := c.images.GenerateImages(ctx, c.model, BuildPrompt(prompt), &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		OutputMIMEType:   outputMIMEType,
		IncludeRAIReason: true,
	})
	if err != nil {
		genErr := classify(err, c.redactor)
		c.logger.Error("image generation failed",
			zap.String("category", string(genErr.Category)),
			zap.Error(genErr.Err),
		)
		return "", genErr
	}

	return c.extractImage(resp)
}

// extractImage returns the first image carrying bytes as a PNG data URI
func (c *Client) extractImage(resp *genai.GenerateImagesResponse) (string, error) {
	filteredReason := ""
	if resp != nil {
		for _, generated := range resp.GeneratedImages {
			if generated == nil {
				continue
			}
			if generated.Image != nil && len(generated.Image.ImageBytes) > 0 {
				return domain.EncodePNGDataURI(generated.Image.ImageBytes), nil
			}
			if generated.RAIFilteredReason != "" {
				filteredReason = generated.RAIFilteredReason
			}
		}
	}

	if filteredReason != "" {
		c.logger.Warn("image filtered by safety settings", zap.String("reason", filteredReason))
		return "", domain.NewGenerationError(domain.CategoryContentFiltered, domain.MessageContentFiltered, fmt.Errorf("filtered: %s", filteredReason))
	}

	c.logger.Warn("response did not contain image data")
	return "", domain.NewGenerationError(domain.CategoryNoImageData, domain.MessageNoImageData, nil)
}
