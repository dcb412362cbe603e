package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/archestra/guard/internal/config"
	"github.com/archestra/guard/internal/httpapi"
	"github.com/archestra/guard/internal/llmclient"
	"github.com/archestra/guard/internal/metrics"
	"github.com/archestra/guard/internal/proxy"
	"github.com/archestra/guard/internal/store"
	"github.com/archestra/guard/pkg/models"
)

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the guarded proxy's HTTP server",
		Long: `Start the HTTP server: the OpenAI-compatible guarded chat-completions
route, the agent/policy management API, /healthz, and /metrics.

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// main wires a bootstrap handler at info level before config exists;
	// rebuild it here now that the configured level is known.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()}))
	slog.SetDefault(logger)

	var st *store.Store
	if cfg.Database.IsSQLite() {
		st, err = store.NewSQLiteStore(cfg.Database.Path())
	} else {
		st, err = store.NewPostgresStore(cfg.Database.URL, nil)
	}
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	clients := func(provider string) (llmclient.Client, error) {
		apiKey := cfg.DualLLM.OpenAIAPIKey
		if provider == "anthropic" {
			apiKey = cfg.DualLLM.AnthropicAPIKey
		}
		return llmclient.New(provider, apiKey)
	}

	reg := prometheus.NewRegistry()
	metricsRegistry := metrics.NewRegistry(reg)

	pipeline := &proxy.Pipeline{
		Store:   st,
		Clients: clients,
		Logger:  logger,
		Metrics: metricsRegistry,
	}
	server := &httpapi.Server{
		Store:    st,
		Pipeline: pipeline,
		Registry: reg,
		Logger:   logger,
	}

	if err := seedDualLlmConfig(cmd.Context(), st, cfg); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Mount(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	logger.Info("starting archestra-proxy", "addr", cfg.Server.Addr, "sqlite", cfg.Database.IsSQLite())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutdown signal received, draining connections")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// seedDualLlmConfig writes the DualLlmConfig singleton from the loaded
// config's defaults if no row exists yet; an existing row always wins.
func seedDualLlmConfig(ctx context.Context, st *store.Store, cfg *config.Config) error {
	_, err := st.DualLlmConfig.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load dual-llm config: %w", err)
	}
	return st.DualLlmConfig.Set(ctx, &models.DualLlmConfig{
		MainAgentPrompt:        cfg.DualLLM.MainAgentPrompt,
		QuarantinedAgentPrompt: cfg.DualLLM.QuarantinedAgentPrompt,
		SummaryPrompt:          cfg.DualLLM.SummaryPrompt,
		MaxRounds:              cfg.DualLLM.MaxRounds,
	})
}
