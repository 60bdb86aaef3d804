// Package cli provides the start-up steps shared by cmd/otkaz,
// cmd/otkaz-worker and cmd/otkazctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"otkaz/internal/config"
	applog "otkaz/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the component logger from LOG_LEVEL and LOG_FILE and
// installs it as the slog default.
func SetupLogger(component string) *applog.Logger {
	cfg, err := applog.ConfigFromEnv(component)
	logger := applog.New(cfg)
	if err != nil {
		logger.Warn("Ignoring log configuration", "error", err)
	}
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Shutdown runs the cleanup steps in order, each bounded by what is left of
// timeout, and logs the ones that fail.
func Shutdown(timeout time.Duration, steps ...func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for i, step := range steps {
		if step == nil {
			continue
		}
		if err := step(ctx); err != nil {
			slog.WarnContext(ctx, "Shutdown step failed", "step", i, "error", err)
		}
	}
	if ctx.Err() != nil {
		slog.Warn("Shutdown timeout reached")
		return
	}
	slog.Info("Shutdown complete")
}

// Fatal logs err and exits.
func Fatal(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	fmt.Fprintln(os.Stderr, msg+":", err)
	os.Exit(1)
}
