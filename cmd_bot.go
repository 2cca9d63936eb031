package main

import (
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/agenda/pkg/app"
	"github.com/harrisonrobin/agenda/pkg/config"
)

func (c *cli) botCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Discord bot for /evening, /done, /defer and /reschedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.Validate(config.AppModeBot); err != nil {
				return err
			}
			return c.runBot()
		},
	}
}

func (c *cli) runBot() error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := app.New(ctx, c.cfg, c.log, nil)
	if err != nil {
		return err
	}
	discord, store, err := a.NewBot()
	if err != nil {
		return err
	}
	defer store.Close()
	return discord.Run(ctx)
}
