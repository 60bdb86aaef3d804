package main

import (
	"context"
	"errors"
	"time"

	"otkaz/internal/amqp"
	"otkaz/internal/cli"
	applog "otkaz/internal/log"
	"otkaz/internal/services"
	"otkaz/internal/worker"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Worker needs a queue", errors.New("AMQP_URL is not set"))
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	// The worker writes the remote store directly, so its own adapter must
	// not push back through the queue.
	app, err := cli.NewApp(ctx, logger, cfg, cli.AppOptions{UseMQTT: true})
	if err != nil {
		cli.Fatal(logger, "Failed to start", err)
	}
	if !app.CloudEnabled() {
		logger.Warn("Remote store unavailable, messages will be acknowledged without a write",
			"remote_backend", cfg.RemoteBackend, "host_version", cfg.HostVersion)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		_ = app.Close(context.Background())
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	w := worker.NewSyncWorker(app.Remote.Remote, cfg.RemoteCeiling)
	app.Caches.Register("dedupe", w.Dedupe())
	app.Caches.StartCleanup(ctx, cacheCleanupInterval)

	reconciler := services.NewReconciler(app.Sync, services.ReconcilerConfig{Interval: cfg.ReconcileInterval})

	logger.Info("Performing startup sync check...")
	if err := worker.StartupSyncCheck(ctx, reconciler); err != nil {
		// keep consuming
		logger.Error("Failed startup sync check", "error", err)
	}
	if err := reconciler.Start(ctx); err != nil {
		logger.Error("Reconciler not started", "error", err)
	}

	consumeDone := make(chan error, 1)
	go func() {
		logger.Info("Consuming cloud sync messages", "queue", cfg.AMQPQueue)
		consumeDone <- client.ConsumeCloudSync(ctx, w.HandleCloudSync)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-consumeDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}
	stop()

	cli.Shutdown(shutdownTimeout,
		reconciler.Stop,
		func(context.Context) error { return client.Close() },
		app.Close,
	)
}
