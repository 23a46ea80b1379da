// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/palladiumhq/identity/internal/auth"
	authpg "github.com/palladiumhq/identity/internal/auth/postgres"
	"github.com/palladiumhq/identity/internal/config"
	"github.com/palladiumhq/identity/internal/httpapi"
	"github.com/palladiumhq/identity/internal/logging"
	"github.com/palladiumhq/identity/internal/notify"
	"github.com/palladiumhq/identity/internal/observability"
	"github.com/palladiumhq/identity/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the identity HTTP service",
		Long: `Start the HTTP service: applies pending schema migrations,
connects to PostgreSQL and NATS, and serves the auth and user endpoints
alongside an observability endpoint for health checks and metrics.`,
		RunE: runServe,
	}

	cmd.Flags().String("listen-addr", "", "HTTP listen address")
	cmd.Flags().String("observability-addr", "", "metrics/health HTTP address")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().String("nats-url", "", "NATS server URL")
	cmd.Flags().String("frontend-origin", "", "frontend base URL for OAuth redirects")
	cmd.Flags().String("log-format", "", "log format (json or text)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger := logging.Setup("identityd", version, cfg.LogFormat, nil)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Schema first, so a half-migrated database never serves traffic.
	migrator, err := store.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		return err
	}
	if closeErr := migrator.Close(); closeErr != nil {
		slog.Warn("closing migrator failed", "error", closeErr)
	}

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	slog.Info("connected to database")

	bus, err := notify.NewBus(cfg.NATSURL)
	if err != nil {
		return err
	}
	defer bus.Close()
	slog.Info("connected to message bus", "url", cfg.NATSURL)

	publisher, err := notify.NewPublisher(bus, cfg.SubjectPrefix)
	if err != nil {
		return err
	}

	st := authpg.NewStore(pool)
	hasher := auth.NewArgon2idHasher()

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte(cfg.Token.AccessSecret),
		RefreshSecret: []byte(cfg.Token.RefreshSecret),
		AccessExpiry:  cfg.Token.AccessExpiry,
		RefreshExpiry: cfg.Token.RefreshExpiry,
	})
	if err != nil {
		return err
	}

	validator, err := auth.NewCredentialValidator(st, hasher)
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessionManager(st, issuer, hasher, logger)
	if err != nil {
		return err
	}
	recovery, err := auth.NewRecoveryManager(st, hasher, publisher, logger)
	if err != nil {
		return err
	}
	reconciler, err := auth.NewIdentityReconciler(st, publisher, logger)
	if err != nil {
		return err
	}
	accounts, err := auth.NewAccountService(st, hasher, publisher, logger)
	if err != nil {
		return err
	}

	var provider httpapi.IdentityProvider
	if cfg.Google.ClientID != "" {
		provider, err = httpapi.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
		if err != nil {
			return err
		}
		slog.Info("google identity provider enabled")
	}

	obsServer := observability.NewServer(cfg.ObservabilityAddr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
			slog.Warn("stopping observability server failed", "error", stopErr)
		}
	}()

	api, err := httpapi.NewServer(
		validator, sessions, recovery, reconciler, accounts, issuer,
		provider, obsServer.Metrics(), logger,
		httpapi.Config{
			FrontendOrigin: cfg.FrontendOrigin,
			CookieMaxAge:   cfg.CookieMaxAge,
		},
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
	}()

	slog.Info("identity service ready",
		"listen_addr", cfg.ListenAddr,
		"observability_addr", cfg.ObservabilityAddr,
	)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case serveErr := <-errCh:
		return oops.Code("HTTP_SERVER_FAILED").Wrap(serveErr)
	case obsErr := <-obsErrCh:
		if obsErr != nil {
			return oops.Code("OBSERVABILITY_FAILED").Wrap(obsErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}

	slog.Info("identity service stopped")
	return nil
}
