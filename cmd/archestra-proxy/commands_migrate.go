package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archestra/guard/internal/config"
	"github.com/archestra/guard/internal/store"
)

// buildMigrateCmd creates the "migrate" command group. Both store
// constructors apply internal/store.Schema on open (CREATE TABLE IF NOT
// EXISTS throughout), so "migrate up" opens the store once against the
// configured database and seeds the dual-LLM config singleton if absent.
func buildMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Create any missing tables and indexes",
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
				return fmt.Errorf("apply schema: %w", err)
			}
			defer st.Close()
			if err := seedDualLlmConfig(cmd.Context(), st, cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
	upCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.AddCommand(upCmd)
	return cmd
}
