package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"otkaz/internal/cli"
	"otkaz/internal/core"
)

func newTriggersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "triggers",
		Short: "List the known triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, cli.AppOptions{}, func(_ context.Context, app *cli.App, out io.Writer) error {
				for _, t := range app.Catalog {
					fmt.Fprintf(out, "%-12s %s %s\n", t.ID, t.Emoji, t.Label)
				}
				return nil
			})
		},
	}
}

func newSOSCmd(opts *rootOptions) *cobra.Command {
	var (
		craving, mood int
		triggers      []string
	)

	cmd := &cobra.Command{
		Use:   "sos [what is going on]",
		Short: "Ask for help through a craving",
		Long: `Asks the advice model for a short answer. Trigger ids come from
--trigger; any arguments are passed along as a free-text trigger.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if craving < 0 || craving > core.MaxLevel {
				return core.ErrInvalidCraving
			}
			if mood < 0 || mood > core.MaxLevel {
				return core.ErrInvalidMood
			}
			var custom []string
			if len(args) > 0 {
				custom = []string{strings.Join(args, " ")}
			}

			return withApp(cmd, opts, cli.AppOptions{UseAdvice: true}, func(ctx context.Context, app *cli.App, out io.Writer) error {
				labels := core.TriggerLabels(app.Catalog, triggers, custom)
				fmt.Fprintln(out, app.Advice.RequestAdvice(ctx, craving, labels, mood))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&craving, "craving", 8, "craving level, 0-10")
	cmd.Flags().IntVar(&mood, "mood", 3, "mood level, 0-10")
	cmd.Flags().StringSliceVar(&triggers, "trigger", nil, "trigger id, repeatable")
	return cmd
}
