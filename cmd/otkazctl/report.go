package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"otkaz/internal/cli"
	"otkaz/internal/core"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		drank         bool
		mood, craving int
		triggers      []string
		note, date    string
		alcoholType   string
		alcoholAmount string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Log today's report",
		Long: `Saves a report stamped with the current time. A report with the
same --date replaces the stored one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, cli.AppOptions{UseAMQP: true}, func(ctx context.Context, app *cli.App, out io.Writer) error {
				r := core.NewReport(time.Now(), drank, mood, craving, triggers,
					strings.TrimSpace(note), alcoholType, alcoholAmount)
				if date != "" {
					r.Date = date
				}
				reports, err := app.Sync.SaveReport(ctx, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved report %s (%s). %d reports stored.\n",
					r.Date, outcome(r), len(reports))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&drank, "drank", false, "the day ended in a relapse")
	cmd.Flags().IntVar(&mood, "mood", 5, "mood level, 0-10")
	cmd.Flags().IntVar(&craving, "craving", 0, "craving level, 0-10")
	cmd.Flags().StringSliceVar(&triggers, "trigger", nil, "trigger id, repeatable")
	cmd.Flags().StringVar(&note, "note", "", "free text note")
	cmd.Flags().StringVar(&date, "date", "", "report timestamp to write instead of now")
	cmd.Flags().StringVar(&alcoholType, "alcohol-type", "", "what was drunk, with --drank")
	cmd.Flags().StringVar(&alcoholAmount, "alcohol-amount", "", "how much was drunk, with --drank")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, cli.AppOptions{}, func(ctx context.Context, app *cli.App, out io.Writer) error {
				reports, err := app.Sync.LoadReports(ctx)
				if err != nil {
					return err
				}
				if len(reports) == 0 {
					fmt.Fprintln(out, "No reports yet")
					return nil
				}

				reports = core.NewestFirst(reports)
				if limit > 0 && len(reports) > limit {
					reports = reports[:limit]
				}
				for _, r := range reports {
					fmt.Fprintf(out, "%-24s  %-8s  mood %2d  craving %2d  %-14s  %s\n",
						r.Date, outcome(r), r.MoodLevel, r.CravingLevel,
						humanize.Time(r.At()),
						strings.Join(reportTriggers(app.Catalog, r.Triggers), ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n reports")
	return cmd
}

// reportTriggers labels catalog ids and keeps free-text triggers as written.
func reportTriggers(c core.Catalog, triggers []string) []string {
	var custom []string
	for _, t := range triggers {
		if _, ok := c.Find(t); !ok {
			custom = append(custom, t)
		}
	}
	return core.TriggerLabels(c, triggers, custom)
}

func outcome(r core.DailyReport) string {
	if r.DidDrink {
		return "relapse"
	}
	return "sober"
}
