// Command otkazctl reads and writes the sobriety journal from a terminal,
// using the same stores and derivations as the server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"otkaz/internal/cli"
	"otkaz/internal/config"
	applog "otkaz/internal/log"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dbPath  string
	backend string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "otkazctl",
		Short:         "Sobriety journal from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "local store path (default $SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&opts.backend, "remote", "", "remote backend: none, memory or sheets (default $REMOTE_BACKEND)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr at info level")

	root.AddCommand(newReportCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newHeatmapCmd(opts))
	root.AddCommand(newMotivationCmd(opts))
	root.AddCommand(newSettingsCmd(opts))
	root.AddCommand(newTriggersCmd(opts))
	root.AddCommand(newSOSCmd(opts))
	return root
}

// loadApp builds the application from the environment and the global
// flags. Logs go to stderr so that stdout stays parseable.
func loadApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions, appOpts cli.AppOptions) (*cli.App, error) {
	cfg := config.Load()
	if opts.dbPath != "" {
		cfg.SQLiteDBPath = opts.dbPath
	}
	if opts.backend != "" {
		cfg.RemoteBackend = opts.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg, err := applog.ConfigFromEnv(applog.ComponentCLI)
	if err != nil {
		return nil, err
	}
	logCfg.Output = cmd.ErrOrStderr()
	if !opts.verbose {
		logCfg.Level = slog.LevelWarn
	}
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	return cli.NewApp(ctx, logger, cfg, appOpts)
}

// withApp runs fn against a freshly loaded application and closes it
// afterwards, waiting for remote pushes.
func withApp(cmd *cobra.Command, opts *rootOptions, appOpts cli.AppOptions, fn func(context.Context, *cli.App, io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := loadApp(ctx, cmd, opts, appOpts)
	if err != nil {
		return err
	}

	runErr := fn(ctx, app, cmd.OutOrStdout())
	if err := app.Close(context.Background()); err != nil && runErr == nil {
		return fmt.Errorf("close: %w", err)
	}
	return runErr
}
