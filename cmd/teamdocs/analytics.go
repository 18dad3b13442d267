package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/teamdocs/internal/analytics"
	"github.com/ConfabulousDev/teamdocs/internal/client"
)

func newAnalyticsCmd(api func() *client.Client) *cobra.Command {
	var (
		asJSON bool
		reset  bool
	)
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show the team's contribution analytics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if reset {
				n, err := api().ResetAnalytics(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Deleted %s activity events\n", humanize.Comma(n))
				return nil
			}

			payload, err := api().Analytics(cmd.Context())
			if err != nil {
				return err
			}
			if payload == nil {
				fmt.Fprintln(out, "No activity yet.")
				return nil
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}
			printAnalytics(out, payload)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw payload")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete the team's activity history")
	return cmd
}

func printAnalytics(out io.Writer, p *analytics.Payload) {
	fmt.Fprintln(out, "Contributors:")
	for _, c := range p.Contributors {
		line := fmt.Sprintf("  %-20s %8s words  %5d edits", c.Username, humanize.Comma(int64(c.TotalWords)), c.TotalEdits)
		if len(c.Badges) > 0 {
			line += "  [" + strings.Join(c.Badges, ", ") + "]"
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out, "Activity by weekday:")
	for _, day := range analytics.DayLabels {
		fmt.Fprintf(out, "  %s %s\n", day, strings.Repeat("#", p.CollaborationHeatmap[day]))
	}

	if len(p.Alerts) > 0 {
		fmt.Fprintln(out, "Alerts:")
		for _, a := range p.Alerts {
			fmt.Fprintf(out, "  ! %s\n", a)
		}
	}
}
