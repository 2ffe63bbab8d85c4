package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fedya-eremin/ms-ws/internal/db/bunx"
	"github.com/fedya-eremin/ms-ws/internal/idp/keycloak"
	"github.com/fedya-eremin/ms-ws/internal/logging"
	"github.com/fedya-eremin/ms-ws/internal/repository"
	"github.com/fedya-eremin/ms-ws/internal/server"
	"github.com/fedya-eremin/ms-ws/internal/services/decision"
	"github.com/fedya-eremin/ms-ws/internal/services/entitlement"
	"github.com/fedya-eremin/ms-ws/internal/services/identity"
	"github.com/fedya-eremin/ms-ws/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authorization proxy",
	Long:  `Starts the HTTP server answering Centrifugo publish and subscribe proxy calls.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logger, err := logging.New(cfg.Debug)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()

		shutdownTracing, err := telemetry.Init(ctx, cfg.Observability, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()

		db, err := bunx.NewDB(ctx, cfg.DatabaseURL, bunx.Options{MaxOpenConns: cfg.MaxDBConnections})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)
		logger.Info("connected to database",
			zap.String("type", string(bunx.DetectDatabaseType(cfg.DatabaseURL))),
			zap.Int("max_connections", cfg.MaxDBConnections),
		)

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := telemetry.NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}

		directory := repository.NewBunDirectory(db)
		resolver := identity.NewResolver(directory, keycloak.NewClient(cfg.Keycloak)).
			WithLogger(logger.Named("identity")).
			WithMetrics(metrics)
		decisions := decision.NewService(resolver, entitlement.NewChecker(directory)).
			WithLogger(logger.Named("decision")).
			WithMetrics(metrics)

		routerOpts := server.RouterOptions{
			Decisions:   decisions,
			Logger:      logger,
			Gatherer:    reg,
			HealthCheck: db.PingContext,
		}
		if len(cfg.CORSAllowedOrigins) > 0 {
			corsOpts := server.CORSOptionsFor(cfg.CORSAllowedOrigins)
			routerOpts.CORSOptions = &corsOpts
		}

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      server.NewH2CHandler(routerOpts),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server",
				zap.String("addr", cfg.ServerAddr),
				zap.String("keycloak_realm", cfg.Keycloak.Realm),
			)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down gracefully", zap.Stringer("signal", sig))

			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(sctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
