package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/giangeralcus/hscode-api/internal/config"
	"github.com/giangeralcus/hscode-api/internal/llm"
	"github.com/giangeralcus/hscode-api/internal/ollama"
	"github.com/giangeralcus/hscode-api/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the classification API server",
		Long: `Start the HTTP server exposing classification, tariff explanation and
search enhancement backed by a local Ollama model.

Examples:
  hscode serve                    # Listen on :8080 with defaults
  hscode serve --addr :9090      # Custom listen address
  hscode serve --model qwen2.5:7b`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("model", "", "Ollama model name")
	cmd.Flags().String("ollama-endpoint", "", "Ollama base URL")

	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("ollama.model", cmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("ollama.endpoint", cmd.Flags().Lookup("ollama-endpoint"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.Default()

	client := ollama.NewClient(cfg.Ollama.Endpoint, cfg.Ollama.Model, logger)

	// Startup probe is informational only; the backend may come up later.
	status := client.Status(ctx)
	if !status.Available {
		logger.Warn("Ollama backend unreachable at startup", "endpoint", cfg.Ollama.Endpoint)
	} else if !status.HasModel {
		logger.Warn("configured model not installed", "model", cfg.Ollama.Model, "installed", status.Models)
	} else {
		logger.Info("Ollama backend ready", "model", cfg.Ollama.Model)
	}

	classifier := llm.NewClassifier(client, llm.Config{
		Timeout:     cfg.Ollama.Timeout,
		Temperature: cfg.Ollama.Temperature,
		MaxTokens:   cfg.Ollama.MaxTokens,
	}, logger)

	limiter := server.NewLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Close()

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		// One timed-out attempt plus one full retry must fit in a single
		// response window.
		WriteTimeout: 2*cfg.Ollama.Timeout + 30*time.Second,
		Debug:        cfg.Server.Debug,
	}, classifier, client, limiter, logger)

	return srv.ListenAndServe(ctx)
}
