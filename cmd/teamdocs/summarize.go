package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/teamdocs/internal/client"
)

func newSummarizeCmd(api func() *client.Client) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Summarize a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			summary, err := api().Summarize(cmd.Context(), text, style)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "short", "short, medium or bullets")
	return cmd
}
