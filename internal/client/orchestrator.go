// Package client drives image generation from the user's side: it holds the
// prompt and the last result, and talks to an ImageGenerator.
package client

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/basel-ax/pixelart/internal/domain"
)

// Phase is the request phase of the orchestrator
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
)

func (p Phase) String() string {
	if p == PhaseLoading {
		return "loading"
	}
	return "idle"
}

// Key is an input key the orchestrator reacts to
type Key int

const (
	KeyOther Key = iota
	KeyEnter
)

// Messages shown for prompts rejected before any request is made
const (
	MessagePromptRequired = "Please enter a prompt to generate pixel art."
	MessagePromptTooLong  = "Prompt too long. Please keep it under 200 characters."
)

// UIState is a snapshot of what the user sees
type UIState struct {
	Prompt     string
	Phase      Phase
	LastResult *domain.GenerationResult
	IsDarkMode bool
}

// ImageURL returns the image of the last result, or "" when there is none
func (s UIState) ImageURL() string {
	if s.LastResult == nil || !s.LastResult.OK() {
		return ""
	}
	return s.LastResult.ImageURL
}

// Listener observes every state transition
type Listener func(UIState)

// Orchestrator owns the UI state and allows at most one generation in flight
type Orchestrator struct {
	mu        sync.Mutex
	state     UIState
	generator domain.ImageGenerator
	listeners []Listener
	logger    *zap.Logger
}

// NewOrchestrator creates a new orchestrator in the idle phase with dark mode on
func NewOrchestrator(generator domain.ImageGenerator, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		state:     UIState{Phase: PhaseIdle, IsDarkMode: true},
		generator: generator,
		logger:    logger.With(zap.String("component", "orchestrator")),
	}
}

// Subscribe registers a listener for state transitions
func (o *Orchestrator) Subscribe(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

// State returns the current state
func (o *Orchestrator) State() UIState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SetPrompt replaces the prompt being edited
func (o *Orchestrator) SetPrompt(prompt string) {
	o.update(func(s *UIState) { s.Prompt = prompt })
}

// ToggleDarkMode flips the theme
func (o *Orchestrator) ToggleDarkMode() {
	o.update(func(s *UIState) { s.IsDarkMode = !s.IsDarkMode })
}

// CanSubmit reports whether the submit control is enabled
func (o *Orchestrator) CanSubmit() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Phase == PhaseIdle && domain.IsSubmittable(o.state.Prompt)
}

// PressKey handles a key press on the prompt input; only Enter submits
func (o *Orchestrator) PressKey(ctx context.Context, key Key) bool {
	if key != KeyEnter || !o.CanSubmit() {
		return false
	}
	return o.Submit(ctx, o.State().Prompt)
}

// Submit validates raw and, if valid, runs one generation.
// It returns false without doing anything while a generation is in flight.
func (o *Orchestrator) Submit(ctx context.Context, raw string) bool {
	o.mu.Lock()
	if o.state.Phase == PhaseLoading {
		o.mu.Unlock()
		return false
	}
	o.state.Prompt = raw

	prompt, err := domain.ValidatePrompt(raw)
	if err != nil {
		result := domain.Failed(domain.CategoryInvalidInput, validationMessage(err))
		o.state.LastResult = &result
		o.unlockAndNotify()
		return true
	}

	o.state.LastResult = nil
	o.state.Phase = PhaseLoading
	o.unlockAndNotify()

	result := o.generate(ctx, prompt)

	o.update(func(s *UIState) {
		s.LastResult = &result
		s.Phase = PhaseIdle
	})
	return true
}

func (o *Orchestrator) generate(ctx context.Context, prompt domain.Prompt) domain.GenerationResult {
	imageURL, err := o.generator.GenerateImage(ctx, prompt)
	if err != nil {
		o.logger.Debug("generation failed", zap.Error(err))
		if genErr, ok := domain.AsGenerationError(err); ok {
			return domain.Failed(genErr.Category, genErr.Message)
		}
		return domain.Failed(domain.CategoryUpstreamError, err.Error())
	}
	return domain.Succeeded(imageURL)
}

func validationMessage(err error) string {
	if errors.Is(err, domain.ErrPromptTooLong) {
		return MessagePromptTooLong
	}
	return MessagePromptRequired
}

func (o *Orchestrator) update(fn func(*UIState)) {
	o.mu.Lock()
	fn(&o.state)
	o.unlockAndNotify()
}

// unlockAndNotify must be called with mu held. Listeners run outside the lock
// and receive the state as it was at the transition.
func (o *Orchestrator) unlockAndNotify() {
	state := o.state
	listeners := make([]Listener, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}
