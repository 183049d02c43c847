package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray .env file is picked up
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()
	assert.Nil(t, cfg)
	assert.EqualError(t, err, "GEMINI_API_KEY is required")
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	for _, key := range []string{"PORT", "IMAGEN_MODEL", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "REQUEST_TIMEOUT", "REDIS_ADDR", "UPSTREAM_RPS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.Equal(t, "imagen-3.0-generate-002", cfg.ImagenModel)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Zero(t, cfg.UpstreamRPS)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("PORT", "8081")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "30")
	t.Setenv("REQUEST_TIMEOUT", "5")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("UPSTREAM_RPS", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 10, cfg.RateLimit.Max)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.True(t, cfg.RateLimit.TrustProxy)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 0.5, cfg.UpstreamRPS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IMAGEN_MODEL=imagen-test\n"), 0o600))
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("IMAGEN_MODEL", "")
	os.Unsetenv("IMAGEN_MODEL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "imagen-test", cfg.ImagenModel)
}

func TestLoadClient_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PIXELART_SERVER_URL", "http://proxy.local:9000/")
	t.Setenv("PIXELART_OUTPUT_DIR", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "http://proxy.local:9000", cfg.ServerURL)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.GeminiAPIKey)
}
