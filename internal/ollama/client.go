// Package ollama implements the gateway to a locally hosted Ollama server.
// Every chat call is bounded by a hard deadline; the caller never waits
// longer than the configured timeout for the model to answer.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/giangeralcus/hscode-api/internal/common"
)

// DefaultTimeout bounds a chat call when the caller passes none.
const DefaultTimeout = 60 * time.Second

const statusTimeout = 3 * time.Second

// Options are the sampling parameters for a single chat call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Status reports whether the Ollama server is reachable and whether the
// configured model is installed.
type Status struct {
	Available bool     `json:"available"`
	HasModel  bool     `json:"hasModel"`
	Models    []string `json:"models,omitempty"`
}

// Client talks to one Ollama server about one model.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	model      string
}

// NewClient creates a gateway for the given endpoint and model name.
func NewClient(endpoint, model string, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		logger:   logger,
		httpClient: &http.Client{
			// No client-level timeout: each call carries its own deadline
			// through the request context.
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Chat sends a single prompt and returns the model's raw text. The call is
// canceled once timeout elapses, releasing the in-flight request. Failures
// are classified: a blown deadline wraps common.ErrTimeout, everything else
// wraps common.ErrModelUnavailable with the underlying message.
func (c *Client) Chat(ctx context.Context, prompt string, opts Options, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqBody := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options: chatOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", common.ErrModelUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", common.ErrModelUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", common.ErrTimeout, timeout)
		}
		return "", fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", common.ErrTimeout, timeout)
		}
		return "", fmt.Errorf("%w: read response: %v", common.ErrModelUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama status %d: %s", common.ErrModelUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", common.ErrModelUnavailable, err)
	}

	c.logger.Debug("model call completed",
		"model", c.model,
		"duration", time.Since(start),
		"response_bytes", len(response.Message.Content))

	return response.Message.Content, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Status probes the server's installed models. It never fails: an unreachable
// server yields an all-false status. Model presence is a case-sensitive
// substring match on the configured model's family prefix (the name up to the
// first colon, per the Ollama name:tag convention).
func (c *Client) Status(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return Status{}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("ollama status probe failed", "error", err)
		return Status{}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Status{}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return Status{Available: true}
	}

	status := Status{Available: true, Models: make([]string, 0, len(tags.Models))}
	family := c.model
	if idx := strings.IndexByte(family, ':'); idx > 0 {
		family = family[:idx]
	}
	for _, m := range tags.Models {
		status.Models = append(status.Models, m.Name)
		if family != "" && strings.Contains(m.Name, family) {
			status.HasModel = true
		}
	}
	return status
}
