package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/logging"
)

// cli carries state shared by every subcommand. Config is loaded once in
// the root pre-run hook.
type cli struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "agenda",
		Short: "Daily task digest with confirm-gated quick actions",
		Long: `agenda ranks open tasks from Notion, Taskwarrior or org files, checks
them against today's calendar, and posts a short digest to Discord or
Slack. The bot lets you mark tasks done, defer or reschedule them behind a
confirm step.

Without a subcommand, APP_MODE selects what runs: digest, bot, or both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAppMode(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/agenda/config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		c.digestCommand(),
		c.botCommand(),
		c.serveCommand(),
		c.authCommand(),
		c.configCommand(),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	c.cfg = cfg
	c.log = logging.New(level, cfg.Log.Format, os.Stderr)
	return nil
}

// runAppMode mirrors the container entrypoint: digest first, then the bot.
func (c *cli) runAppMode(cmd *cobra.Command) error {
	if err := c.cfg.Validate(c.cfg.AppMode); err != nil {
		return err
	}
	if c.cfg.AppMode == config.AppModeDigest || c.cfg.AppMode == config.AppModeBoth {
		if err := c.runDigest(cmd, c.cfg.DigestMode, false, false); err != nil {
			return err
		}
	}
	if c.cfg.AppMode == config.AppModeBot || c.cfg.AppMode == config.AppModeBoth {
		return c.runBot()
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
