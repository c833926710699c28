package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unset clears key for the duration of the test.
func unset(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_BACKEND", "CHAT_ENDPOINT", "MIC_TIMEOUT", "ALLOWED_ORIGINS", "ENV"} {
		unset(t, key)
	}

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "http://127.0.0.1:8000/chat", cfg.ChatEndpoint)
	assert.Equal(t, 8*time.Second, cfg.MicTimeout)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.Development())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "NATS")
	t.Setenv("CHAT_TIMEOUT", "45s")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, ,https://chat.example")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "nats", cfg.StoreBackend)
	assert.Equal(t, 45*time.Second, cfg.ChatTimeout)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, []string{"http://localhost:3000", "https://chat.example"}, cfg.AllowedOrigins)
}

func TestLoadFromEnvFile(t *testing.T) {
	unset(t, "CHAT_MODEL")
	unset(t, "ENV")
	t.Setenv("CHATD_PORT", "9100")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHAT_MODEL=llama-3.3-70b-versatile\nCHATD_PORT=9000\nENV=development\n"), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "llama-3.3-70b-versatile", cfg.ChatModel)
	assert.Equal(t, "9100", cfg.ChatdPort, "environment wins over the file")
	assert.True(t, cfg.Development())
}
