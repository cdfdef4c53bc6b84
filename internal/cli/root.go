package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/terra-clan/studio-engine/internal/config"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "dev"

var (
	configPath string
	cfg        *config.Config
)

// Execute runs the studio-engine command tree
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "studio-engine",
		Short:        "Backend for the photography studio site: catalog, visitor sessions, bookings",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			slog.SetDefault(cfg.Log.NewLogger())
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config (default $STUDIO_CONFIG)")

	root.AddCommand(serveCmd(), migrateCmd(), catalogCmd(), clientsCmd(), versionCmd())
	return root
}
