package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safepass-compliance/internal/app"
	transport "safepass-compliance/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API and the weekly overdue sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	c, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	api := transport.NewAPI(c.service, auth, log)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     api.Routes(),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would cut long-lived leaderboard streams.
		IdleTimeout: 60 * time.Second,
	}

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	sweeper := app.NewOverdueSweeper(c.ledger, cfg.Ledger.OverdueSchedule, log)
	sweepErr := make(chan error, 1)
	go func() { sweepErr <- sweeper.Run(runCtx) }()

	go func() {
		log.Info("starting safepass api", zap.String("addr", server.Addr), zap.Strings("regions", cfg.Quiz.Regions))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
			stopRun()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-runCtx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-sweepErr:
		if err != nil {
			log.Error("overdue sweeper failed", zap.Error(err))
		}
	}
	stopRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
