// Package server exposes the classification service over HTTP: four
// model-backed operations plus a health probe, guarded by a per-IP rate
// limit, a CORS allow-list and a request body cap.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/giangeralcus/hscode-api/internal/model"
	"github.com/giangeralcus/hscode-api/internal/ollama"
)

// Service is the model-backed operation surface the handlers compose.
type Service interface {
	Classify(ctx context.Context, description, language string) (*model.Result, error)
	ExplainTariff(ctx context.Context, code, description string, tariff model.Tariff) (string, error)
	EnhanceSearch(ctx context.Context, query string) model.EnhancedQuery
}

// Prober reports model backend availability for health checks and
// pre-emptive refusal.
type Prober interface {
	Status(ctx context.Context) ollama.Status
}

// Config holds the HTTP surface settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	MaxBodyBytes   int64
	WriteTimeout   time.Duration
	Debug          bool
}

// Server wires handlers, middleware and lifecycle.
type Server struct {
	service Service
	prober  Prober
	limiter *Limiter
	logger  *slog.Logger
	cfg     Config
}

// New creates a server. The limiter is owned by the caller, which must Close
// it after shutdown.
func New(cfg Config, service Service, prober Prober, limiter *Limiter, logger *slog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 10
	}
	return &Server{
		cfg:     cfg,
		service: service,
		prober:  prober,
		limiter: limiter,
		logger:  logger,
	}
}

// Handler builds the full middleware/handler chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("POST /api/classify", s.withRateLimit(http.HandlerFunc(s.handleClassify)))
	mux.Handle("POST /api/explain-tariff", s.withRateLimit(http.HandlerFunc(s.handleExplainTariff)))
	mux.Handle("POST /api/enhance-search", s.withRateLimit(http.HandlerFunc(s.handleEnhanceSearch)))
	mux.Handle("GET /api/quick-classify", s.withRateLimit(http.HandlerFunc(s.handleQuickClassify)))

	var h http.Handler = mux
	h = s.withBodyLimit(h)
	h = s.withRequestLog(h)
	h = s.withCORS(h)
	h = s.withRecover(h)
	return h
}

// ListenAndServe runs the server until ctx is canceled, then drains
// connections gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	writeTimeout := s.cfg.WriteTimeout
	if writeTimeout <= 0 {
		// Covers the classification worst case: one timed-out attempt
		// plus one full retry.
		writeTimeout = 2*ollama.DefaultTimeout + 30*time.Second
	}

	httpSrv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	s.logger.Info("server listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
