package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atinyakov/accountvault/internal/columns"
	"github.com/atinyakov/accountvault/internal/config"
	"github.com/atinyakov/accountvault/internal/db"
	"github.com/atinyakov/accountvault/internal/logger"
	"github.com/atinyakov/accountvault/internal/mirror"
	"github.com/atinyakov/accountvault/internal/mirror/gsheets"
	"github.com/atinyakov/accountvault/internal/repository"
	"github.com/atinyakov/accountvault/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadOptions reads the configuration and applies any flags set explicitly
// on the command line.
func loadOptions(cmd *cobra.Command, ro *RootOptions) (*config.Options, error) {
	opts, err := config.Load(ro.ConfigPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		opts.Address = ro.Address
	}
	if flags.Changed("database-dsn") {
		opts.DatabaseDSN = ro.DatabaseDSN
	}
	if flags.Changed("log-level") {
		opts.LogLevel = ro.LogLevel
	}
	return opts, nil
}

func newLogger(level string) (*zap.Logger, error) {
	log := logger.New()
	if err := log.Init(level); err != nil {
		return nil, err
	}
	return log.Log, nil
}

// openStore opens and migrates the database named by dsn and returns the
// matching repository.
func openStore(ctx context.Context, dsn string, log *zap.Logger) (*sql.DB, service.VaultRepository, error) {
	conn, dialect, err := db.Open(ctx, dsn, log)
	if err != nil {
		return nil, nil, err
	}
	switch dialect {
	case db.SQLite:
		return conn, repository.NewSQLiteVaultRepository(conn), nil
	default:
		return conn, repository.NewPostgresVaultRepository(conn), nil
	}
}

// newMirror builds the spreadsheet mirror client. Nothing is dialed here.
func newMirror(opts *config.Options, log *zap.Logger) (*mirror.Client, error) {
	creds, err := opts.Sheets.Credentials()
	if err != nil {
		return nil, err
	}
	loc, err := columns.LoadLocation(opts.Sheets.TimeZone)
	if err != nil {
		return nil, err
	}
	projector := columns.NewProjector(columns.ParseSpec(opts.Sheets.Columns), loc, opts.Sheets.TimeFormat)
	return mirror.NewClient(
		mirror.Settings{Target: opts.Sheets.Name, Credentials: creds},
		gsheets.Dial,
		projector,
		log.Named("mirror"),
	), nil
}

// commandContext returns the command's context, falling back to Background
// when the command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// mirrorTimeout is the effective bound on one mirror append.
func mirrorTimeout(opts *config.Options) time.Duration {
	if d := time.Duration(opts.MirrorTimeout); d > 0 {
		return d
	}
	return service.DefaultMirrorTimeout
}

func describeDSN(dsn string) string {
	dialect, _ := db.DialectOf(dsn)
	return fmt.Sprintf("%s database", dialect)
}
