package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/archestra/guard/internal/config"
	"github.com/archestra/guard/internal/store"
	"github.com/archestra/guard/pkg/models"
)

// buildAgentsCmd creates the "agents" command group for managing the
// security scopes policies attach to, for operators who'd rather script
// agent creation than hit the HTTP API directly.
func buildAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage agents",
	}
	cmd.AddCommand(buildAgentsListCmd(), buildAgentsCreateCmd())
	return cmd
}

func buildAgentsListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(configPath, func(ctx context.Context, st *store.Store) error {
				agents, err := st.Agents.List(ctx)
				if err != nil {
					return err
				}
				return printAgents(cmd.OutOrStdout(), agents)
			})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildAgentsCreateCmd() *cobra.Command {
	var configPath, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(configPath, func(ctx context.Context, st *store.Store) error {
				now := time.Now().UTC()
				agent := &models.Agent{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
				if err := st.Agents.Create(ctx, agent); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created agent %s (%s)\n", agent.Name, agent.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Agent name (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("name"))
	return cmd
}

func withStore(configPath string, fn func(ctx context.Context, st *store.Store) error) error {
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
	return fn(context.Background(), st)
}

func printAgents(w io.Writer, agents []*models.Agent) error {
	if len(agents) == 0 {
		fmt.Fprintln(w, "no agents configured")
		return nil
	}
	for _, a := range agents {
		fmt.Fprintf(w, "%s\t%s\n", a.ID, a.Name)
	}
	return nil
}
