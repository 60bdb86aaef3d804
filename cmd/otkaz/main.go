package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"otkaz/internal/cli"
	apphttp "otkaz/internal/http"
	applog "otkaz/internal/log"
	"otkaz/internal/middleware/auth"
	"otkaz/internal/middleware/ratelimit"
	"otkaz/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	app, err := cli.NewApp(ctx, logger, cfg, cli.AppOptions{UseAMQP: true, UseMQTT: true, UseAdvice: true})
	if err != nil {
		cli.Fatal(logger, "Failed to start", err)
	}

	// With a queue the worker owns reconciliation.
	var reconciler *services.Reconciler
	if app.AMQP == nil && app.CloudEnabled() {
		reconciler = services.NewReconciler(app.Sync, services.ReconcilerConfig{Interval: cfg.ReconcileInterval})
		if err := reconciler.Start(ctx); err != nil {
			logger.Warn("Reconciler not started", "error", err)
			reconciler = nil
		}
	}

	app.Caches.StartCleanup(ctx, cacheCleanupInterval)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Reports:      app.Sync,
		Stats:        app.Stats,
		Advice:       app.Advice,
		Capabilities: app.Remote.Capabilities,
		Store:        app.Local,
		Auth: auth.Config{
			BotToken:      cfg.TelegramBotToken,
			AllowedUserID: cfg.AllowedUserID,
			MaxAge:        cfg.InitDataMaxAge,
		},
		RateLimit: ratelimit.DefaultConfig(),
		Logger:    logger.WithComponent(applog.ComponentHTTP),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting otkaz server",
			"port", cfg.Port,
			"remote_backend", cfg.RemoteBackend,
			"host_version", cfg.HostVersion,
			"cloud_storage", app.CloudEnabled(),
			"auth", cfg.TelegramBotToken != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", "error", err, "port", cfg.Port)
		}
	}

	var stopReconciler func(context.Context) error
	if reconciler != nil {
		stopReconciler = reconciler.Stop
	}
	cli.Shutdown(shutdownTimeout, srv.Shutdown, stopReconciler, app.Close)
}
