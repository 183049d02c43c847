package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/basel-ax/pixelart/internal/api"
	"github.com/basel-ax/pixelart/internal/domain"
	"github.com/basel-ax/pixelart/internal/metrics"
	"github.com/basel-ax/pixelart/internal/ratelimit"
	"github.com/basel-ax/pixelart/internal/repository"
	"github.com/basel-ax/pixelart/internal/service"
)

type stubGenerator struct {
	calls    int64
	imageURL string
	err      error
	release  chan struct{}
}

func (g *stubGenerator) GenerateImage(ctx context.Context, prompt domain.Prompt) (string, error) {
	atomic.AddInt64(&g.calls, 1)
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.imageURL, g.err
}

// phaseRecorder collects the phase of every transition
type phaseRecorder struct {
	mu     sync.Mutex
	phases []Phase
}

func (r *phaseRecorder) listen(s UIState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, s.Phase)
}

func (r *phaseRecorder) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}

func TestNewOrchestrator_InitialState(t *testing.T) {
	o := NewOrchestrator(&stubGenerator{}, zap.NewNop())

	state := o.State()
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Nil(t, state.LastResult)
	assert.True(t, state.IsDarkMode)
	assert.Empty(t, state.ImageURL())
	assert.False(t, o.CanSubmit())
}

func TestOrchestrator_Submit_Success(t *testing.T) {
	gen := &stubGenerator{imageURL: "data:image/png;base64,QUJD"}
	o := NewOrchestrator(gen, zap.NewNop())
	rec := &phaseRecorder{}
	o.Subscribe(rec.listen)

	assert.True(t, o.Submit(context.Background(), "  a cat  "))

	state := o.State()
	assert.Equal(t, PhaseIdle, state.Phase)
	require.NotNil(t, state.LastResult)
	assert.True(t, state.LastResult.OK())
	assert.Equal(t, "data:image/png;base64,QUJD", state.ImageURL())
	assert.Equal(t, []Phase{PhaseLoading, PhaseIdle}, rec.Phases())
}

func TestOrchestrator_Submit_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		message string
	}{
		{name: "empty", raw: "", message: MessagePromptRequired},
		{name: "whitespace", raw: "   ", message: MessagePromptRequired},
		{name: "too long", raw: strings.Repeat("x", 201), message: MessagePromptTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{imageURL: "data:image/png;base64,QUJD"}
			o := NewOrchestrator(gen, zap.NewNop())
			rec := &phaseRecorder{}
			o.Subscribe(rec.listen)

			assert.True(t, o.Submit(context.Background(), tt.raw))

			state := o.State()
			assert.Equal(t, PhaseIdle, state.Phase)
			require.NotNil(t, state.LastResult)
			require.NotNil(t, state.LastResult.Failure)
			assert.Equal(t, domain.CategoryInvalidInput, state.LastResult.Failure.Category)
			assert.Equal(t, tt.message, state.LastResult.Failure.Message)
			assert.Zero(t, atomic.LoadInt64(&gen.calls))
			assert.NotContains(t, rec.Phases(), PhaseLoading)
		})
	}
}

func TestOrchestrator_Submit_Failure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category domain.ErrorCategory
		message  string
	}{
		{
			name:     "classified",
			err:      domain.NewGenerationError(domain.CategoryQuotaExceeded, domain.MessageQuotaExceeded, nil),
			category: domain.CategoryQuotaExceeded,
			message:  domain.MessageQuotaExceeded,
		},
		{
			name:     "unclassified",
			err:      errors.New("something broke"),
			category: domain.CategoryUpstreamError,
			message:  "something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(&stubGenerator{err: tt.err}, zap.NewNop())
			o.Submit(context.Background(), "a cat")

			state := o.State()
			assert.Equal(t, PhaseIdle, state.Phase)
			require.NotNil(t, state.LastResult)
			require.NotNil(t, state.LastResult.Failure)
			assert.Equal(t, tt.category, state.LastResult.Failure.Category)
			assert.Equal(t, tt.message, state.LastResult.Failure.Message)
			assert.Empty(t, state.ImageURL())
		})
	}
}

func TestOrchestrator_Submit_NoOpWhileLoading(t *testing.T) {
	gen := &stubGenerator{imageURL: "data:image/png;base64,QUJD", release: make(chan struct{})}
	o := NewOrchestrator(gen, zap.NewNop())

	done := make(chan bool)
	go func() {
		done <- o.Submit(context.Background(), "first")
	}()

	require.Eventually(t, func() bool {
		return o.State().Phase == PhaseLoading
	}, time.Second, 5*time.Millisecond)

	assert.Nil(t, o.State().LastResult, "previous result is cleared while loading")
	assert.False(t, o.CanSubmit())
	assert.False(t, o.Submit(context.Background(), "second"))
	assert.Equal(t, "first", o.State().Prompt)

	close(gen.release)
	assert.True(t, <-done)
	assert.Equal(t, int64(1), atomic.LoadInt64(&gen.calls))
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestOrchestrator_Submit_ClearsPreviousResult(t *testing.T) {
	gen := &stubGenerator{err: errors.New("first failure")}
	o := NewOrchestrator(gen, zap.NewNop())
	o.Submit(context.Background(), "a cat")
	require.False(t, o.State().LastResult.OK())

	var loadingResult *domain.GenerationResult
	seen := false
	o.Subscribe(func(s UIState) {
		if s.Phase == PhaseLoading {
			loadingResult = s.LastResult
			seen = true
		}
	})
	gen.err = nil
	gen.imageURL = "data:image/png;base64,QUJD"
	o.Submit(context.Background(), "a dog")

	assert.True(t, seen)
	assert.Nil(t, loadingResult)
	assert.True(t, o.State().LastResult.OK())
}

func TestOrchestrator_PressKey(t *testing.T) {
	gen := &stubGenerator{imageURL: "data:image/png;base64,QUJD"}
	o := NewOrchestrator(gen, zap.NewNop())

	assert.False(t, o.PressKey(context.Background(), KeyEnter), "empty prompt is not submittable")

	o.SetPrompt("a castle")
	assert.True(t, o.CanSubmit())
	assert.False(t, o.PressKey(context.Background(), KeyOther))
	assert.Zero(t, atomic.LoadInt64(&gen.calls))

	assert.True(t, o.PressKey(context.Background(), KeyEnter))
	assert.Equal(t, int64(1), atomic.LoadInt64(&gen.calls))
	assert.Equal(t, "data:image/png;base64,QUJD", o.State().ImageURL())
}

func TestOrchestrator_ToggleDarkMode(t *testing.T) {
	o := NewOrchestrator(&stubGenerator{}, zap.NewNop())
	var themes []bool
	o.Subscribe(func(s UIState) { themes = append(themes, s.IsDarkMode) })

	o.ToggleDarkMode()
	o.ToggleDarkMode()

	assert.Equal(t, []bool{false, true}, themes)
	assert.True(t, o.State().IsDarkMode)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "loading", PhaseLoading.String())
}

// upstreamFake stands in for the remote image service behind the proxy
type upstreamFake struct {
	calls int64
}

func (u *upstreamFake) GenerateImage(ctx context.Context, prompt domain.Prompt) (string, error) {
	atomic.AddInt64(&u.calls, 1)
	return domain.EncodePNGDataURI([]byte("ABC")), nil
}

func newProxyServer(t *testing.T, upstream domain.ImageGenerator) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	collector := metrics.NewCollector("e2e")
	svc := service.NewImageGenerationService(upstream, service.Options{RequestTimeout: 5 * time.Second}, collector, logger)
	limiter := ratelimit.NewFixedWindow(repository.NewMemoryCounterRepository(), 5, time.Minute)
	router := api.NewRouter(api.NewHandler(svc, logger), limiter, collector, logger, api.RouterOptions{AllowedOrigins: []string{"*"}})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	upstream := &upstreamFake{}
	server := newProxyServer(t, upstream)

	o := NewOrchestrator(NewProxyClient(server.URL, 5*time.Second), zap.NewNop())
	rec := &phaseRecorder{}
	o.Subscribe(rec.listen)

	o.SetPrompt("a knight battling a dragon")
	require.True(t, o.PressKey(context.Background(), KeyEnter))

	state := o.State()
	assert.Equal(t, []Phase{PhaseIdle, PhaseLoading, PhaseIdle}, rec.Phases())
	require.NotNil(t, state.LastResult)
	assert.True(t, state.LastResult.OK())
	assert.Equal(t, "data:image/png;base64,QUJD", state.ImageURL())
	assert.Equal(t, int64(1), atomic.LoadInt64(&upstream.calls))
}

func TestOrchestrator_EndToEnd_RateLimited(t *testing.T) {
	upstream := &upstreamFake{}
	server := newProxyServer(t, upstream)
	o := NewOrchestrator(NewProxyClient(server.URL, 5*time.Second), zap.NewNop())

	for i := 0; i < 5; i++ {
		o.Submit(context.Background(), "a castle")
		require.True(t, o.State().LastResult.OK(), "request %d", i+1)
	}

	o.Submit(context.Background(), "a castle")
	state := o.State()
	require.NotNil(t, state.LastResult.Failure)
	assert.Equal(t, domain.CategoryRateLimited, state.LastResult.Failure.Category)
	assert.Equal(t, domain.MessageRateLimited, state.LastResult.Failure.Message)
	assert.Equal(t, int64(5), atomic.LoadInt64(&upstream.calls))
}
