package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/agenda/pkg/config"
)

const redacted = "<redacted>"

func (c *cli) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the merged configuration as YAML with secrets redacted",
			RunE: func(cmd *cobra.Command, args []string) error {
				return writeConfig(cmd.OutOrStdout(), c.cfg)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the default config file location",
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)
	return cmd
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(redact(*cfg)); err != nil {
		return err
	}
	return enc.Close()
}

// redact returns a copy with every credential masked.
func redact(cfg config.Config) config.Config {
	for _, s := range []*string{
		&cfg.Source.Notion.APIKey,
		&cfg.Calendar.PrivateKey,
		&cfg.Notifier.DiscordWebhookURL,
		&cfg.Notifier.SlackWebhookURL,
		&cfg.Bot.Token,
		&cfg.Summary.APIKey,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	return cfg
}
