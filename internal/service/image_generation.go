package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/basel-ax/pixelart/internal/domain"
	"github.com/basel-ax/pixelart/internal/metrics"
)

// Options holds the tunables of the image generation service
type Options struct {
	// RequestTimeout bounds a single upstream call; zero disables the bound
	RequestTimeout time.Duration

	// UpstreamRPS caps upstream calls across all callers; zero means unlimited
	UpstreamRPS   float64
	UpstreamBurst int
}

// ImageGenerationService re-validates prompts and forwards them to the upstream generator
type ImageGenerationService struct {
	generator domain.ImageGenerator
	upstream  *rate.Limiter
	options   Options
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewImageGenerationService creates a new image generation service
func NewImageGenerationService(generator domain.ImageGenerator, opts Options, collector *metrics.Collector, logger *zap.Logger) *ImageGenerationService {
	s := &ImageGenerationService{
		generator: generator,
		options:   opts,
		metrics:   collector,
		logger:    logger.With(zap.String("component", "image_generation")),
	}

	if opts.UpstreamRPS > 0 {
		burst := opts.UpstreamBurst
		if burst <= 0 {
			burst = 1
		}
		s.upstream = rate.NewLimiter(rate.Limit(opts.UpstreamRPS), burst)
	}

	return s
}

// Generate validates the raw prompt and generates one image for it.
// Validation failures are returned as domain.ErrEmptyPrompt or domain.ErrPromptTooLong
// and never reach the upstream service.
func (s *ImageGenerationService) Generate(ctx context.Context, rawPrompt string) (string, error) {
	prompt, err := domain.ValidatePrompt(rawPrompt)
	if err != nil {
		return "", err
	}

	if s.upstream != nil && !s.upstream.Allow() {
		s.metrics.RecordRateLimited("upstream")
		s.logger.Warn("upstream budget exhausted")
		return "", domain.NewGenerationError(domain.CategoryRateLimited, domain.MessageRateLimited, nil)
	}

	if s.options.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	imageURL, err := s.generator.GenerateImage(ctx, prompt)
	duration := time.Since(start)

	if err != nil {
		category := domain.CategoryOf(err)
		s.metrics.RecordGeneration(string(category), duration)
		return "", fmt.Errorf("failed to generate image: %w", err)
	}

	s.metrics.RecordGeneration("success", duration)
	s.logger.Info("image generated",
		zap.Int("prompt_length", len(prompt)),
		zap.Duration("duration", duration),
	)

	return imageURL, nil
}
