package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply database migrations and exit",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd, rootOpts)
			if err != nil {
				return err
			}
			if err := opts.RequireDatabase(); err != nil {
				return err
			}
			log, err := newLogger(opts.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			conn, _, err := openStore(commandContext(cmd), opts.DatabaseDSN, log)
			if err != nil {
				return err
			}
			defer conn.Close()

			log.Info("migrations applied", zap.String("store", describeDSN(opts.DatabaseDSN)))
			return nil
		},
	}
}
