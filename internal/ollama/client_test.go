package ollama

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/giangeralcus/hscode-api/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChat(t *testing.T) {
	t.Run("successful call returns message content", func(t *testing.T) {
		var gotReq chatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/chat", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"message": map[string]string{"role": "assistant", "content": `{"classifications":[]}`},
				"done":    true,
			})
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "llama3.1:8b", testLogger())
		text, err := c.Chat(context.Background(), "classify this", Options{Temperature: 0.2, MaxTokens: 1024}, time.Second)
		require.NoError(t, err)
		assert.Equal(t, `{"classifications":[]}`, text)

		assert.Equal(t, "llama3.1:8b", gotReq.Model)
		assert.False(t, gotReq.Stream)
		assert.InDelta(t, 0.2, gotReq.Options.Temperature, 1e-9)
		assert.Equal(t, 1024, gotReq.Options.NumPredict)
		require.Len(t, gotReq.Messages, 1)
		assert.Equal(t, "classify this", gotReq.Messages[0].Content)
	})

	t.Run("server error maps to model unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "llama3.1:8b", testLogger())
		_, err := c.Chat(context.Background(), "x", Options{}, time.Second)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrModelUnavailable)
		assert.Contains(t, err.Error(), "model not loaded")
	})

	t.Run("unreachable server maps to model unavailable", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", "llama3.1:8b", testLogger())
		_, err := c.Chat(context.Background(), "x", Options{}, time.Second)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrModelUnavailable)
	})

	t.Run("slow server maps to timeout near the deadline", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			<-release
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()
		defer close(release)

		c := NewClient(srv.URL, "llama3.1:8b", testLogger())
		start := time.Now()
		_, err := c.Chat(context.Background(), "x", Options{}, 100*time.Millisecond)
		elapsed := time.Since(start)

		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrTimeout)
		assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
		assert.Less(t, elapsed, 2*time.Second, "timeout fired far too late")
	})
}

func TestStatus(t *testing.T) {
	t.Run("reports installed models", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/tags", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{
					{"name": "llama3.1:8b"},
					{"name": "nomic-embed-text:latest"},
				},
			})
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "llama3.1:8b", testLogger())
		status := c.Status(context.Background())
		assert.True(t, status.Available)
		assert.True(t, status.HasModel)
		assert.Equal(t, []string{"llama3.1:8b", "nomic-embed-text:latest"}, status.Models)
	})

	t.Run("matches model family prefix across tags", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "llama3.1:70b-instruct"}},
			})
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "llama3.1:8b", testLogger())
		assert.True(t, c.Status(context.Background()).HasModel)
	})

	t.Run("missing model", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "mistral:7b"}},
			})
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "llama3.1:8b", testLogger())
		status := c.Status(context.Background())
		assert.True(t, status.Available)
		assert.False(t, status.HasModel)
	})

	t.Run("unreachable server", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", "llama3.1:8b", testLogger())
		status := c.Status(context.Background())
		assert.False(t, status.Available)
		assert.False(t, status.HasModel)
	})
}
