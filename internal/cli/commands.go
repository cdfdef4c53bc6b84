package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/studio-engine/internal/catalog"
	"github.com/terra-clan/studio-engine/internal/config"
	"github.com/terra-clan/studio-engine/internal/models"
	"github.com/terra-clan/studio-engine/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			if cfg.Storage.Driver == config.DriverPostgres {
				if err := storage.MigrateFromDSN(ctx, cfg.Storage.PostgresDSN, cfg.Storage.MigrationsDir); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "postgres migrations applied")
				return nil
			}

			// The sqlite schema is applied on open
			repo, err := storage.OpenSQLite(cfg.Storage.SQLitePath)
			if err != nil {
				return err
			}
			defer repo.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema ready at %s\n", cfg.Storage.SQLitePath)
			return nil
		},
	}
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect studio content",
	}

	var dir string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load the content and print collection sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = cfg.Catalog.Dir
			}
			cat, err := catalog.Load(dir)
			if err != nil {
				return err
			}
			printCounts(cmd, cat.Stats())
			return nil
		},
	}
	validate.Flags().StringVar(&dir, "dir", "", "content directory (default: catalog.dir, then the bundled content)")

	cmd.AddCommand(validate)
	return cmd
}

func printCounts(cmd *cobra.Command, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	for _, name := range names {
		fmt.Fprintf(out, "%-20s %d\n", name, counts[name])
	}
}

func clientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Manage staff API clients",
	}

	var (
		name        string
		permissions []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a staff API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}

			key, err := models.GenerateApiKey()
			if err != nil {
				return fmt.Errorf("generating api key: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			repo, err := openRepository(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer repo.Close()

			client := &models.ApiClient{
				Name:        name,
				ApiKey:      key,
				IsActive:    true,
				Permissions: permissions,
			}
			if err := repo.CreateClient(ctx, client); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Client %q created (id %d).\n", client.Name, client.ID)
			fmt.Fprintf(out, "API key: %s\n", key)
			fmt.Fprintln(out, "Store it now; it is not shown again.")
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "client name")
	create.Flags().StringSliceVar(&permissions, "perm",
		[]string{models.PermBookingsRead, models.PermConsultationsRead, models.PermFeedRead},
		"granted permissions, e.g. bookings:read or bookings:*")

	cmd.AddCommand(create)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// no config needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "studio-engine %s\n", Version)
		},
	}
}
