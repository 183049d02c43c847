package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RateLimitConfig holds the fixed-window rate limit settings
type RateLimitConfig struct {
	Max           int
	Window        time.Duration
	SweepSchedule string
	TrustProxy    bool
}

// RedisConfig holds the optional Redis settings for shared rate-limit counters
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Config holds all configuration for the proxy server
type Config struct {
	GeminiAPIKey       string
	ImagenModel        string
	Port               int
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	UpstreamRPS        float64
	UpstreamBurst      int
	CORSAllowedOrigins []string
	LogLevel           string
	LogDevelopment     bool
	RateLimit          RateLimitConfig
	Redis              RedisConfig
}

// ClientConfig holds configuration for the terminal client
type ClientConfig struct {
	ServerURL      string
	OutputDir      string
	RequestTimeout time.Duration
	GeminiAPIKey   string
	ImagenModel    string
	LogLevel       string
}

const (
	defaultImagenModel    = "imagen-3.0-generate-002"
	defaultPort           = 3000
	defaultRequestTimeout = 30 * time.Second
)

// Load loads the server configuration from environment variables
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	config := &Config{
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		ImagenModel:    os.Getenv("IMAGEN_MODEL"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		LogDevelopment: os.Getenv("LOG_DEVELOPMENT") == "true",
	}

	if config.ImagenModel == "" {
		config.ImagenModel = defaultImagenModel
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	// Load and parse numeric values
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		config.Port = port
	} else {
		config.Port = defaultPort
	}

	config.RequestTimeout = secondsOrDefault("REQUEST_TIMEOUT", defaultRequestTimeout)
	config.ShutdownTimeout = secondsOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	if rps, err := strconv.ParseFloat(os.Getenv("UPSTREAM_RPS"), 64); err == nil {
		config.UpstreamRPS = rps
	}

	if burst, err := strconv.Atoi(os.Getenv("UPSTREAM_BURST")); err == nil {
		config.UpstreamBurst = burst
	} else {
		config.UpstreamBurst = 1 // default value
	}

	config.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(config.CORSAllowedOrigins) == 0 {
		config.CORSAllowedOrigins = []string{"*"}
	}

	// Load rate limit configuration
	rateLimit := RateLimitConfig{
		SweepSchedule: os.Getenv("RATE_LIMIT_SWEEP_SCHEDULE"),
		TrustProxy:    os.Getenv("TRUST_PROXY") == "true",
	}

	if limit, err := strconv.Atoi(os.Getenv("RATE_LIMIT_MAX")); err == nil {
		rateLimit.Max = limit
	} else {
		rateLimit.Max = 5 // default value
	}

	rateLimit.Window = secondsOrDefault("RATE_LIMIT_WINDOW", time.Minute)

	if rateLimit.SweepSchedule == "" {
		rateLimit.SweepSchedule = "0 * * * * *" // every minute
	}

	config.RateLimit = rateLimit

	// Load Redis configuration
	redisConfig := RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}

	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		redisConfig.DB = db
	}

	config.Redis = redisConfig

	// Validate required fields
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if config.RateLimit.Max <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	if config.RateLimit.Window <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if config.UpstreamRPS < 0 {
		return nil, fmt.Errorf("UPSTREAM_RPS must not be negative")
	}

	return config, nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LoadClient loads the terminal client configuration from environment variables.
// The API key is optional here: without it the direct mode reports the client as unavailable.
func LoadClient() (*ClientConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	config := &ClientConfig{
		ServerURL:      strings.TrimRight(os.Getenv("PIXELART_SERVER_URL"), "/"),
		OutputDir:      os.Getenv("PIXELART_OUTPUT_DIR"),
		RequestTimeout: secondsOrDefault("REQUEST_TIMEOUT", defaultRequestTimeout),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		ImagenModel:    os.Getenv("IMAGEN_MODEL"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
	}

	if config.ServerURL == "" {
		config.ServerURL = fmt.Sprintf("http://localhost:%d", defaultPort)
	}
	if config.OutputDir == "" {
		config.OutputDir = "."
	}
	if config.ImagenModel == "" {
		config.ImagenModel = defaultImagenModel
	}
	if config.LogLevel == "" {
		config.LogLevel = "warn"
	}

	return config, nil
}

// loadDotEnv loads a .env file when one exists
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

func secondsOrDefault(key string, def time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(os.Getenv(key)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
