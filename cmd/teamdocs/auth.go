package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/teamdocs/internal/client"
)

// passwordFrom prefers the flag and falls back to TEAMDOCS_PASSWORD.
func passwordFrom(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("TEAMDOCS_PASSWORD"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("password required: pass --password or set TEAMDOCS_PASSWORD")
}

func newSignupCmd(api func() *client.Client) *cobra.Command {
	var (
		email    string
		password string
		members  []string
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new team",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			if err := api().Signup(cmd.Context(), email, pw, members); err != nil {
				return fmt.Errorf("signup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Team %s registered with %d member(s)\n", email, len(members))
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'teamdocs login' to start a session.")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "team email")
	cmd.Flags().StringVar(&password, "password", "", "team password")
	cmd.Flags().StringArrayVar(&members, "member", nil, "member username (repeatable)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("member")
	return cmd
}

func newLoginCmd(api func() *client.Client) *cobra.Command {
	var (
		email    string
		username string
		password string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as a team member",
		Long: `Authenticates with the team email, a member username and the team password.
Tokens are stored in ~/.teamdocs/config.json and refreshed automatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			c := api()
			if err := c.Login(cmd.Context(), email, username, pw); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in to %s as %s (%s)\n", c.Config().BackendURL, username, email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "team email")
	cmd.Flags().StringVar(&username, "username", "", "member username")
	cmd.Flags().StringVar(&password, "password", "", "team password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd(api func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := api().Config()
			if !cfg.LoggedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			cfg.ClearSession()
			if err := client.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}

func newMembersCmd(api func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List the team's members",
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := api().TeamMembers(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range members {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}
