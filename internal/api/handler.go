package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/basel-ax/pixelart/internal/domain"
)

const (
	maxBodyBytes = 100 << 10

	msgPromptRequired  = "Prompt is required"
	msgPromptTooLong   = "Prompt too long"
	msgInvalidJSON     = "Invalid JSON body"
	msgGenerateFailure = "Failed to generate image"
)

// Generator is the service the handler forwards validated requests to
type Generator interface {
	Generate(ctx context.Context, rawPrompt string) (string, error)
}

// GenerateResponse is the success body of POST /api/generate
type GenerateResponse struct {
	ImageURL string `json:"imageUrl"`
}

// ErrorResponse is the error body of every endpoint
type ErrorResponse struct {
	Error string `json:"error"`
}

// generateRequest accepts any JSON scalar as prompt; it is coerced to a string
type generateRequest struct {
	Prompt any `json:"prompt"`
}

// Handler serves the proxy endpoints
type Handler struct {
	generator Generator
	logger    *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(generator Generator, logger *zap.Logger) *Handler {
	return &Handler{
		generator: generator,
		logger:    logger.With(zap.String("component", "api")),
	}
}

// HandleGenerate handles POST /api/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	imageURL, err := h.generator.Generate(r.Context(), promptString(req.Prompt))
	if err != nil {
		status, message := h.errorResponse(r, err)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{ImageURL: imageURL})
}

// HandleHealth handles GET /healthz
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse maps a service error to a status and a message that is safe to return.
// Upstream failures are logged with their classification and answered with the generic body.
func (h *Handler) errorResponse(r *http.Request, err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyPrompt):
		return http.StatusBadRequest, msgPromptRequired
	case errors.Is(err, domain.ErrPromptTooLong):
		return http.StatusBadRequest, msgPromptTooLong
	}

	fields := []zap.Field{zap.String("request_id", RequestIDFromContext(r.Context())), zap.Error(err)}

	genErr, ok := domain.AsGenerationError(err)
	if !ok {
		h.logger.Error("server error", fields...)
		return http.StatusInternalServerError, msgGenerateFailure
	}

	fields = append(fields, zap.String("category", string(genErr.Category)))
	switch genErr.Category {
	case domain.CategoryRateLimited:
		h.logger.Warn("generation rejected", fields...)
		return http.StatusTooManyRequests, genErr.Message
	case domain.CategoryInvalidCredential,
		domain.CategoryQuotaExceeded,
		domain.CategoryContentFiltered,
		domain.CategoryNoImageData:
		fields = append(fields, zap.String("classified_message", genErr.Message))
		h.logger.Error("generation failed", fields...)
		return http.StatusInternalServerError, msgGenerateFailure
	default:
		h.logger.Error("server error", fields...)
		return http.StatusInternalServerError, msgGenerateFailure
	}
}

// promptString coerces the decoded prompt field the way a loose JSON client expects
func promptString(v any) string {
	switch p := v.(type) {
	case nil:
		return ""
	case string:
		return p
	case bool:
		if p {
			return "true"
		}
		return ""
	case float64:
		if p == 0 {
			return ""
		}
		return strconv.FormatFloat(p, 'f', -1, 64)
	default:
		return ""
	}
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
