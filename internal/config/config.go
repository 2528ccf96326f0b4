// Package config provides configuration loading for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Server holds the HTTP surface settings.
type Server struct {
	Addr           string
	AllowedOrigins []string
	MaxBodyBytes   int64
	Debug          bool
}

// Ollama holds the model backend settings.
type Ollama struct {
	Endpoint    string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// RateLimit holds the fixed-window limiter settings.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Config is the full application configuration.
type Config struct {
	Server    Server
	Ollama    Ollama
	RateLimit RateLimit
}

// SetDefaults registers default values for every key. Call before Load so
// partial config files and env overrides fall back sensibly.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_body_bytes", 10*1024)
	v.SetDefault("server.debug", false)

	v.SetDefault("ollama.endpoint", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.1:8b")
	v.SetDefault("ollama.timeout", "60s")
	v.SetDefault("ollama.temperature", 0.2)
	v.SetDefault("ollama.max_tokens", 1024)

	v.SetDefault("ratelimit.requests", 30)
	v.SetDefault("ratelimit.window", "1m")
}

// Load materializes the configuration from viper and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
			MaxBodyBytes:   v.GetInt64("server.max_body_bytes"),
			Debug:          v.GetBool("server.debug"),
		},
		Ollama: Ollama{
			Endpoint:    v.GetString("ollama.endpoint"),
			Model:       v.GetString("ollama.model"),
			Timeout:     v.GetDuration("ollama.timeout"),
			Temperature: v.GetFloat64("ollama.temperature"),
			MaxTokens:   v.GetInt("ollama.max_tokens"),
		},
		RateLimit: RateLimit{
			Requests: v.GetInt("ratelimit.requests"),
			Window:   v.GetDuration("ratelimit.window"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Ollama.Model == "" {
		return fmt.Errorf("ollama.model must not be empty")
	}
	if c.Ollama.Timeout <= 0 {
		return fmt.Errorf("ollama.timeout must be positive, got %s", c.Ollama.Timeout)
	}
	if c.Ollama.Temperature < 0 || c.Ollama.Temperature > 2 {
		return fmt.Errorf("ollama.temperature must be between 0 and 2, got %g", c.Ollama.Temperature)
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("ratelimit.requests must be positive, got %d", c.RateLimit.Requests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got %s", c.RateLimit.Window)
	}
	return nil
}
