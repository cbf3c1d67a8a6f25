package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handler "github.com/atinyakov/accountvault/internal/server/handler/http"
	"github.com/atinyakov/accountvault/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the HTTP API",
		Long: `Apply pending migrations, then serve the vault API until SIGINT or SIGTERM.

Example:
  server serve --database-dsn sqlite:./vault.db --addr :8080
  DATABASE_URL=postgres://vault@localhost/vault?sslmode=disable server`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions) error {
	opts, err := loadOptions(cmd, rootOpts)
	if err != nil {
		return err
	}
	log, err := newLogger(opts.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := opts.RequireDatabase(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, repo, err := openStore(ctx, opts.DatabaseDSN, log)
	if err != nil {
		log.Fatal("cannot init database", zap.Error(err))
	}
	defer conn.Close()

	m, err := newMirror(opts, log)
	if err != nil {
		log.Fatal("cannot configure mirror", zap.Error(err))
	}

	timeout := mirrorTimeout(opts)
	svc := service.NewVaultService(repo, m, timeout, log)
	router := handler.NewRouter(
		&handler.AccountsHandler{VaultService: svc, Logger: log},
		&handler.DebugHandler{DiagnosticsService: svc, Logger: log},
		log,
	)

	server := &http.Server{
		Addr:              opts.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A create waits for its mirror append.
		WriteTimeout: timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server",
			zap.String("addr", opts.Address),
			zap.String("store", describeDSN(opts.DatabaseDSN)),
			zap.String("mirror_target", opts.Sheets.Name))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
