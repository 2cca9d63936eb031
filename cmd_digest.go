package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/agenda/pkg/app"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/digest"
	"github.com/harrisonrobin/agenda/pkg/schedule"
)

func (c *cli) digestCommand() *cobra.Command {
	var (
		mode    string
		preview bool
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Compute the digest, post it and write the daily log",
		Example: `  agenda digest --mode morning
  agenda digest --preview`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("mode") {
				mode = c.cfg.DigestMode
			}
			return c.runDigest(cmd, mode, preview, force)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "both", "morning, evening, or both")
	cmd.Flags().BoolVar(&preview, "preview", false, "print the digest to the terminal instead of posting it")
	cmd.Flags().BoolVar(&force, "force", false, "ignore ENFORCE_LOCAL_HOUR")
	return cmd
}

func (c *cli) runDigest(cmd *cobra.Command, mode string, preview, force bool) error {
	modes, err := schedule.ParseModes(mode)
	if err != nil {
		return err
	}
	if !preview {
		if err := c.cfg.Validate(config.AppModeDigest); err != nil {
			return err
		}
	}

	if c.cfg.Schedule.EnforceLocalHour && !force && !preview {
		now := time.Now()
		modes = schedule.DueModes(modes, now, c.cfg.Location(), c.cfg.Schedule)
		if len(modes) == 0 {
			c.log.Info("skipping digest: local hour check failed",
				"mode", mode, "timezone", c.cfg.Timezone, "hour", now.In(c.cfg.Location()).Hour())
			return nil
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := app.New(ctx, c.cfg, c.log, nil)
	if err != nil {
		return err
	}

	if preview {
		out := cmd.OutOrStdout()
		useColor := isTerminal(os.Stdout)
		for _, m := range modes {
			d, err := a.Digests.Compute(ctx, m)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, colorize(digest.Text(d, a.RenderOptions()), useColor))
			fmt.Fprintln(out)
		}
		return nil
	}

	runner, err := a.NewRunner()
	if err != nil {
		return err
	}
	for _, m := range modes {
		if err := runner.Run(ctx, m); err != nil {
			return fmt.Errorf("%s digest: %w", m, err)
		}
	}
	return nil
}
