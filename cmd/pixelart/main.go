package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/basel-ax/pixelart/internal/client"
	"github.com/basel-ax/pixelart/internal/config"
	"github.com/basel-ax/pixelart/internal/domain"
	"github.com/basel-ax/pixelart/internal/infrastructure/imagen"
	"github.com/basel-ax/pixelart/internal/observability"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
)

// palette holds the colors of one theme
type palette struct {
	accent string
	text   string
	errorC string
}

var (
	darkPalette  = palette{accent: "\033[96m", text: "\033[97m", errorC: "\033[91m"}
	lightPalette = palette{accent: "\033[34m", text: "\033[30m", errorC: "\033[31m"}
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	serverURL := flag.String("server", cfg.ServerURL, "Base URL of the pixel art proxy")
	direct := flag.Bool("direct", false, "Call the image service directly instead of the proxy")
	outDir := flag.String("out", cfg.OutputDir, "Directory generated images are written to")
	timeout := flag.Duration("timeout", cfg.RequestTimeout, "Timeout of a single generation request")
	flag.Parse()

	logger, err := observability.NewLogger(cfg.LogLevel, false)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generator := newGenerator(ctx, cfg, *direct, *serverURL, *timeout, logger)
	orchestrator := client.NewOrchestrator(generator, logger)

	ui := &terminal{out: os.Stdout, outDir: *outDir}
	orchestrator.Subscribe(ui.render)

	run(ctx, os.Stdin, orchestrator, ui)
}

// run reads prompts line by line until input ends, :quit is entered or ctx is canceled
func run(ctx context.Context, in io.Reader, orchestrator *client.Orchestrator, ui *terminal) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	ui.banner(orchestrator.State())
	for {
		ui.promptLine(orchestrator.State())

		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		switch strings.TrimSpace(line) {
		case ":quit", ":q":
			return
		case ":theme":
			orchestrator.ToggleDarkMode()
			continue
		}

		orchestrator.SetPrompt(line)
		if !orchestrator.PressKey(ctx, client.KeyEnter) {
			// Not submittable; submit anyway so the validation message is shown
			orchestrator.Submit(ctx, line)
		}
	}
}

// newGenerator returns the proxy client, or the upstream client itself in direct mode
func newGenerator(ctx context.Context, cfg *config.ClientConfig, direct bool, serverURL string, timeout time.Duration, logger *zap.Logger) domain.ImageGenerator {
	if !direct {
		return client.NewProxyClient(serverURL, timeout)
	}

	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, image generation is unavailable")
		return imagen.NewUnavailable("GEMINI_API_KEY is not set", logger)
	}

	imageClient, err := imagen.NewClient(ctx, imagen.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.ImagenModel,
		Timeout: timeout,
	}, logger)
	if err != nil {
		logger.Warn("Image client could not be initialized", zap.Error(err))
		return imagen.NewUnavailable(err.Error(), logger)
	}
	return imageClient
}

// terminal renders orchestrator state transitions as text
type terminal struct {
	out        io.Writer
	outDir     string
	lastResult *domain.GenerationResult
	dark       bool
	started    bool
}

func (t *terminal) colors(s client.UIState) palette {
	if s.IsDarkMode {
		return darkPalette
	}
	return lightPalette
}

func (t *terminal) banner(s client.UIState) {
	c := t.colors(s)
	fmt.Fprintf(t.out, "%s%sPixel Art Creator%s\n", ansiBold, c.accent, ansiReset)
	fmt.Fprintf(t.out, "%sDescribe an image and press Enter. :theme toggles the theme, :quit exits.%s\n", c.text, ansiReset)
	t.dark = s.IsDarkMode
	t.started = true
}

func (t *terminal) promptLine(s client.UIState) {
	fmt.Fprintf(t.out, "%s> %s", t.colors(s).accent, ansiReset)
}

func (t *terminal) render(s client.UIState) {
	c := t.colors(s)

	if t.started && s.IsDarkMode != t.dark {
		t.dark = s.IsDarkMode
		mode := "light"
		if s.IsDarkMode {
			mode = "dark"
		}
		fmt.Fprintf(t.out, "%sSwitched to %s mode.%s\n", c.text, mode, ansiReset)
		return
	}

	if s.Phase == client.PhaseLoading {
		fmt.Fprintf(t.out, "%sGenerating...%s\n", c.accent, ansiReset)
		return
	}

	if s.LastResult == nil || s.LastResult == t.lastResult {
		return
	}
	t.lastResult = s.LastResult

	if !s.LastResult.OK() {
		fmt.Fprintf(t.out, "%sOops! Something went wrong.%s\n", c.errorC, ansiReset)
		fmt.Fprintf(t.out, "%s%s%s\n", c.errorC, s.LastResult.Failure.Message, ansiReset)
		return
	}

	path, err := t.save(s.LastResult.ImageURL)
	if err != nil {
		fmt.Fprintf(t.out, "%sOops! Something went wrong.%s\n", c.errorC, ansiReset)
		fmt.Fprintf(t.out, "%sCould not save the image: %v%s\n", c.errorC, err, ansiReset)
		return
	}
	fmt.Fprintf(t.out, "%sSaved pixel art to %s%s\n", c.text, path, ansiReset)
}

// save decodes the data URI and writes the PNG to the output directory
func (t *terminal) save(imageURL string) (string, error) {
	_, data, err := domain.DecodeDataURI(imageURL)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(t.outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(t.outDir, fmt.Sprintf("pixel-art-%s.png", time.Now().Format("20060102-150405.000")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}
