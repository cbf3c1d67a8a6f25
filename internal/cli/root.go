// Package cli wires configuration, storage, the mirror and the HTTP server
// into the vault server's commands.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath  string
	Address     string
	DatabaseDSN string
	LogLevel    string
}

// NewRootCommand creates the root command. Without a subcommand it serves.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Account vault server",
		Long: `Stores client-encrypted account records in PostgreSQL or SQLite and
mirrors each new record to a Google Sheets spreadsheet as a best-effort backup.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a JSON or YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.Address, "addr", "a", "", "listen address (ip:port)")
	cmd.PersistentFlags().StringVarP(&opts.DatabaseDSN, "database-dsn", "d", "", "postgres:// URL or sqlite:<path>")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))

	return cmd
}
