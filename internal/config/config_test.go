package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(10*1024), cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.Server.Debug)

	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Endpoint)
	assert.Equal(t, "llama3.1:8b", cfg.Ollama.Model)
	assert.Equal(t, 60*time.Second, cfg.Ollama.Timeout)
	assert.InDelta(t, 0.2, cfg.Ollama.Temperature, 1e-9)
	assert.Equal(t, 1024, cfg.Ollama.MaxTokens)

	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.addr", ":9090")
	v.Set("ollama.model", "qwen2.5:7b")
	v.Set("ollama.timeout", "30s")
	v.Set("ratelimit.requests", 5)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "qwen2.5:7b", cfg.Ollama.Model)
	assert.Equal(t, 30*time.Second, cfg.Ollama.Timeout)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"empty model", "ollama.model", ""},
		{"zero timeout", "ollama.timeout", "0s"},
		{"out-of-range temperature", "ollama.temperature", 3.5},
		{"zero rate limit", "ratelimit.requests", 0},
		{"zero window", "ratelimit.window", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HSCODE_TEST_DIR", "/opt/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/opt/data/config.yaml", ExpandPath("$HSCODE_TEST_DIR/config.yaml"))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml"), ExpandPath("~/config.yaml"))
}
