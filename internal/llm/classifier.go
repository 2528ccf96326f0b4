// Package llm hardens the model invocation path: it owns the retry policy
// for classification and the defensive normalization of model output.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/giangeralcus/hscode-api/internal/common"
	"github.com/giangeralcus/hscode-api/internal/model"
	"github.com/giangeralcus/hscode-api/internal/ollama"
	"github.com/giangeralcus/hscode-api/internal/prompt"
	"github.com/giangeralcus/hscode-api/internal/sanitize"
)

// Gateway is the model call surface the classifier depends on.
type Gateway interface {
	Chat(ctx context.Context, prompt string, opts ollama.Options, timeout time.Duration) (string, error)
}

// Config holds the invocation parameters for the classifier.
type Config struct {
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// Classifier composes sanitizer, prompt renderer, gateway and normalizer
// into the three model-backed operations.
type Classifier struct {
	gateway Gateway
	logger  *slog.Logger
	cfg     Config
}

// classifyAttempts is the total attempt budget for one classification.
const classifyAttempts = 2

// temperatureStep is added per extra attempt to escape a degenerate
// non-JSON completion.
const temperatureStep = 0.1

// NewClassifier creates a classifier over the given gateway.
func NewClassifier(gateway Gateway, cfg Config, logger *slog.Logger) *Classifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = ollama.DefaultTimeout
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &Classifier{gateway: gateway, cfg: cfg, logger: logger}
}

// Classify turns a raw product description into a classification result.
//
// Up to two attempts with the same prompt, the second at a slightly higher
// temperature. Timeouts and unusable responses consume the attempt budget; a
// non-timeout gateway failure propagates immediately, even on the first
// attempt, so a clearly broken backend is never hammered. Exhausting the
// budget without a usable parse returns (nil, nil): "could not classify" is
// a product-quality outcome, not a system failure.
func (c *Classifier) Classify(ctx context.Context, description, language string) (*model.Result, error) {
	clean := sanitize.Sanitize(description)
	// Sanitization can shrink the input below the minimum even when the raw
	// text was long enough.
	if len([]rune(clean)) < 3 {
		return nil, common.NewValidationError("description must be at least 3 characters")
	}
	p := prompt.Classification(clean, language)

	for attempt := 1; attempt <= classifyAttempts; attempt++ {
		opts := ollama.Options{
			Temperature: c.cfg.Temperature + float64(attempt-1)*temperatureStep,
			MaxTokens:   c.cfg.MaxTokens,
		}

		text, err := c.gateway.Chat(ctx, p, opts, c.cfg.Timeout)
		if err != nil {
			if errors.Is(err, common.ErrTimeout) && attempt < classifyAttempts {
				c.logger.Warn("classification attempt timed out, retrying",
					"attempt", attempt)
				continue
			}
			return nil, err
		}

		if result := Normalize(text); result != nil {
			c.logger.Info("description classified",
				"attempt", attempt,
				"candidates", len(result.Candidates))
			return result, nil
		}

		c.logger.Warn("unusable model response",
			"attempt", attempt,
			"raw", truncateForLog(text))
	}

	return nil, nil
}

// ExplainTariff produces an explanatory text for a tariff entry. Single
// attempt; gateway failures propagate to the caller.
func (c *Classifier) ExplainTariff(ctx context.Context, code, description string, tariff model.Tariff) (string, error) {
	p := prompt.TariffExplanation(sanitize.Sanitize(code), sanitize.Sanitize(description), tariff)

	text, err := c.gateway.Chat(ctx, p, ollama.Options{
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}, c.cfg.Timeout)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", common.ErrParseFailure
	}
	return text, nil
}

// EnhanceSearch expands a search query into keywords, materials, functions
// and chapters. Enhancement is advisory: every failure degrades silently to
// the pass-through value and the caller never sees an error.
func (c *Classifier) EnhanceSearch(ctx context.Context, query string) model.EnhancedQuery {
	clean := sanitize.Sanitize(query)
	if clean == "" {
		return model.PassthroughQuery(query)
	}

	text, err := c.gateway.Chat(ctx, prompt.SearchEnhancement(clean), ollama.Options{
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}, c.cfg.Timeout)
	if err != nil {
		c.logger.Warn("search enhancement degraded to pass-through", "error", err)
		return model.PassthroughQuery(query)
	}

	enhanced := NormalizeEnhancement(text)
	if enhanced == nil {
		c.logger.Warn("unusable enhancement response", "raw", truncateForLog(text))
		return model.PassthroughQuery(query)
	}
	return *enhanced
}

func truncateForLog(s string) string {
	const maxLogRunes = 200
	runes := []rune(s)
	if len(runes) <= maxLogRunes {
		return s
	}
	return string(runes[:maxLogRunes]) + "..."
}
