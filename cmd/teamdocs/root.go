package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/teamdocs/internal/client"
)

const requestTimeout = 30 * time.Second

// newRootCmd builds the command tree. Every command shares one client that
// is created from the stored config before the command runs.
func newRootCmd() *cobra.Command {
	var (
		backendURL string
		api        *client.Client
	)

	root := &cobra.Command{
		Use:   "teamdocs",
		Short: "Work with team documents from the terminal",
		Long: `teamdocs talks to a teamdocs server: log in as a team member, edit and
upload documents, read the team's activity analytics and summarize text.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := client.LoadConfig()
			if err != nil {
				return err
			}
			if backendURL != "" {
				cfg.BackendURL = backendURL
			}
			api = client.New(cfg, requestTimeout, client.WithTokenSaver(client.SaveConfig))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&backendURL, "backend-url", "", "server URL (default from config, or "+client.DefaultBackendURL+")")

	get := func() *client.Client { return api }
	root.AddCommand(
		newSignupCmd(get),
		newLoginCmd(get),
		newLogoutCmd(get),
		newDocsCmd(get),
		newUploadCmd(get),
		newAnalyticsCmd(get),
		newSummarizeCmd(get),
		newMembersCmd(get),
	)
	return root
}
