package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/shift-scheduler/internal/application"
	httptransport "github.com/example/shift-scheduler/internal/http"
	"github.com/example/shift-scheduler/internal/metrics"
	"github.com/example/shift-scheduler/internal/refresh"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.HTTPPort = port
			}
			logger := newLogger(os.Stdout, cfg.LogLevel)

			recorder := metrics.NewRecorder()
			env, err := setupWith(cmd.Context(), cfg, logger, application.WithMetrics(recorder))
			if err != nil {
				return err
			}
			defer env.Close()

			return serve(cmd.Context(), env, recorder)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides SCHEDULER_HTTP_PORT)")
	return cmd
}

// newServerHandler wires the HTTP handlers around env's service. API key
// authentication is enabled when a key hash is configured.
func newServerHandler(env *environment, recorder *metrics.Recorder) (http.Handler, error) {
	logger := env.logger

	routerCfg := httptransport.RouterConfig{
		Conflicts:  httptransport.NewConflictHandler(env.service, logger),
		Rules:      httptransport.NewRuleHandler(env.service, logger),
		Profiles:   httptransport.NewProfileHandler(env.service, logger),
		Calendars:  httptransport.NewCalendarHandler(env.service, logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	}
	if recorder != nil {
		routerCfg.Metrics = recorder.Handler()
	}
	if env.cfg.APIKeyHash != "" {
		verifier, err := application.NewKeyVerifier(env.cfg.APIKeyHash)
		if err != nil {
			return nil, fmt.Errorf("api key hash: %w", err)
		}
		routerCfg.Auth = httptransport.RequireAPIKey(verifier, logger)
	} else {
		logger.Warn("no API key hash configured, the API is unauthenticated")
	}
	return httptransport.NewRouter(routerCfg), nil
}

func serve(ctx context.Context, env *environment, recorder *metrics.Recorder) error {
	logger := env.logger

	handler, err := newServerHandler(env, recorder)
	if err != nil {
		return err
	}

	if env.cfg.RefreshCron != "" {
		refresher, err := refresh.New(env.cfg.RefreshCron, env.service, logger)
		if err != nil {
			return err
		}
		refresher.Start()
		logger.Info("working hours refresh scheduled", "schedule", env.cfg.RefreshCron)
		defer stopRefresher(refresher, logger)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", env.cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr, "store", env.cfg.Store)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	logger.Info("scheduler API stopped")
	return nil
}

func stopRefresher(r *refresh.Refresher, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		logger.Error("failed to stop refresh schedule", "error", err)
	}
}
