// Package main provides the CLI entry point for archestra-proxy.
//
// archestra-proxy is a reverse proxy in front of an OpenAI-compatible
// chat-completions endpoint that enforces tool-invocation policy,
// trusted-data (taint) policy, and dual-LLM quarantine sanitisation on
// every turn.
//
// # Basic usage
//
// Start the server:
//
//	archestra-proxy serve --config archestra.yaml
//
// Apply (or verify) the database schema:
//
//	archestra-proxy migrate up
//
// Manage agents:
//
//	archestra-proxy agents list
//
// Purge stale cached dual-LLM sanitisation results:
//
//	archestra-proxy maintenance purge-dual-llm-cache --older-than 720h
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "archestra-proxy",
		Short: "Guarded OpenAI-compatible chat-completions reverse proxy",
		Long: `archestra-proxy enforces tool-invocation policy, trusted-data policy, and
dual-LLM quarantine sanitisation in front of an OpenAI-compatible
chat-completions endpoint.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildMigrateCmd(),
		buildAgentsCmd(),
		buildMaintenanceCmd(),
	)
	return rootCmd
}
