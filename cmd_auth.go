package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/agenda/pkg/auth"
)

func (c *cli) authCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize read access to Google Calendar (GOOGLE_USE_OAUTH)",
		Long: `Runs the installed-app OAuth flow. Place the OAuth client secrets in
credentials.json next to the config file first. Any cached token is replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := auth.ConfigDir()
			if err != nil {
				return fmt.Errorf("could not find path to configuration file: %w", err)
			}
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			out := cmd.OutOrStdout()
			flow := &auth.OAuthFlow{
				Dir:    dir,
				Scopes: auth.Scopes,
				Log:    c.log,
				Prompt: func(authURL string) {
					fmt.Fprintf(out, "Open the following URL in your browser to authorize agenda:\n%s\n", authURL)
				},
			}
			if err := flow.Authorize(ctx); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Fprintf(out, "Authentication successful! Token saved to %s\n", filepath.Join(dir, auth.TokenFile))
			return nil
		},
	}
}
