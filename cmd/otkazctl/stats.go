package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"otkaz/internal/cli"
	"otkaz/internal/core"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show streaks and trigger counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, cli.AppOptions{}, func(ctx context.Context, app *cli.App, out io.Writer) error {
				o, err := app.Stats.Overview(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Sober since:    %s (%s)\n", o.SobrietyStart, days(o.DaysSober))
				fmt.Fprintf(out, "Reports:        %d\n", o.Streaks.TotalDays)
				fmt.Fprintf(out, "Current streak: %s\n", days(o.Streaks.CurrentStreak))
				fmt.Fprintf(out, "Best streak:    %s\n", days(o.Streaks.BestStreak))
				fmt.Fprintf(out, "Relapses:       %d\n", o.Streaks.RelapseCount)

				if len(o.Triggers) > 0 {
					fmt.Fprintln(out, "Triggers:")
					for _, t := range o.Triggers {
						fmt.Fprintf(out, "  %s %-14s %d\n", t.Emoji, t.Label, t.Count)
					}
				}
				return nil
			})
		},
	}
}

var heatGlyphs = map[core.HeatLevel]string{
	core.HeatNone:      "·",
	core.HeatRelapse:   "x",
	core.HeatExcellent: "█",
	core.HeatGood:      "▓",
	core.HeatTough:     "░",
}

func newHeatmapCmd(opts *rootOptions) *cobra.Command {
	var weeks int

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Draw the last weeks, one row per weekday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if weeks < 1 {
				return fmt.Errorf("--weeks must be at least 1")
			}
			return withApp(cmd, opts, cli.AppOptions{}, func(ctx context.Context, app *cli.App, out io.Writer) error {
				grid, err := app.Stats.Heatmap(ctx, weeks)
				if err != nil {
					return err
				}
				fmt.Fprint(out, renderHeatmap(grid))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&weeks, "weeks", "w", 20, "number of weeks")
	return cmd
}

// renderHeatmap transposes the week columns into weekday rows, Monday
// first. Days after today are left blank.
func renderHeatmap(grid [][]core.HeatDay) string {
	names := [7]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}
	var b strings.Builder
	for day := range 7 {
		b.WriteString(names[day])
		b.WriteByte(' ')
		for _, week := range grid {
			if day < len(week) {
				b.WriteString(heatGlyphs[week[day].Level])
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func newMotivationCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "motivation",
		Short: "Show savings, achievements and the health timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, cli.AppOptions{}, func(ctx context.Context, app *cli.App, out io.Writer) error {
				m, err := app.Stats.Motivation(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s sober, %s %s saved\n",
					days(m.DaysSober), humanize.Commaf(m.Savings), m.Currency)

				fmt.Fprintln(out, "Achievements:")
				for _, a := range m.Achievements {
					mark := " "
					if a.Unlocked {
						mark = "*"
					}
					fmt.Fprintf(out, "  [%s] %s %-12s %s\n", mark, a.Icon, a.Title, days(a.Days))
				}

				fmt.Fprintln(out, "Health:")
				for _, h := range m.Timeline {
					state := fmt.Sprintf("%3.0f%%", h.Progress)
					if h.Completed {
						state = "done"
					}
					fmt.Fprintf(out, "  %s %-20s %s\n", h.Icon, h.Title, state)
				}
				return nil
			})
		},
	}
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return humanize.Comma(int64(n)) + " days"
}
