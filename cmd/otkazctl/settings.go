package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"otkaz/internal/cli"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the savings settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, cli.AppOptions{}, func(ctx context.Context, app *cli.App, out io.Writer) error {
				s := app.Sync.LoadSettings(ctx)
				fmt.Fprintf(out, "Cost per day: %s %s\n", humanize.Commaf(s.CostPerDay), s.Currency)
				if s.StartDate != "" {
					fmt.Fprintf(out, "Start date:   %s\n", s.StartDate)
				}
				return nil
			})
		},
	}

	var (
		cost      float64
		currency  string
		startDate string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the settings; omitted flags keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("cost") && !flags.Changed("currency") && !flags.Changed("start-date") {
				return fmt.Errorf("nothing to change: pass --cost, --currency or --start-date")
			}
			return withApp(cmd, opts, cli.AppOptions{UseAMQP: true}, func(ctx context.Context, app *cli.App, out io.Writer) error {
				s := app.Sync.LoadSettings(ctx)
				if flags.Changed("cost") {
					s.CostPerDay = cost
				}
				if flags.Changed("currency") {
					s.Currency = strings.TrimSpace(currency)
				}
				if flags.Changed("start-date") {
					s.StartDate = startDate
				}
				if err := app.Sync.SaveSettings(ctx, s); err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved: %s %s per day\n", humanize.Commaf(s.CostPerDay), s.Currency)
				return nil
			})
		},
	}
	set.Flags().Float64Var(&cost, "cost", 0, "money spent on alcohol per day")
	set.Flags().StringVar(&currency, "currency", "", "currency symbol")
	set.Flags().StringVar(&startDate, "start-date", "", "start date, YYYY-MM-DD")

	settings.AddCommand(set)
	return settings
}
