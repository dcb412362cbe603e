package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/archestra/guard/internal/config"
	"github.com/archestra/guard/internal/store"
)

// buildMaintenanceCmd creates the "maintenance" command group: operational
// hooks that aren't part of the guarded request path and so have no HTTP
// equivalent, grounded on buildMigrateCmd's open-store-then-act shape.
func buildMaintenanceCmd() *cobra.Command {
	var configPath string
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Operational maintenance tasks",
	}

	purgeCmd := &cobra.Command{
		Use:   "purge-dual-llm-cache",
		Short: "Delete cached dual-LLM sanitisation results older than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
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

			purged, err := st.DualLlmResults.PurgeOlderThan(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("purge dual-llm cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d cached dual-llm result(s) older than %s\n", purged, olderThan)
			return nil
		},
	}
	purgeCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	purgeCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold for cached dual-LLM results to delete")
	cmd.AddCommand(purgeCmd)
	return cmd
}
