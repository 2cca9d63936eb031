// Package notify delivers the rendered digest to a chat webhook.
package notify

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/slack-go/slack"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/logging"
)

// discordContentLimit stays under Discord's 2000 character message cap.
const discordContentLimit = 1990

// Notifier posts a digest text.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// New returns the notifier selected by cfg. Dry runs only log.
func New(cfg *config.Config, log *slog.Logger) (Notifier, error) {
	log = logging.OrDiscard(log)
	if cfg.DryRun {
		return &DryRun{log: log}, nil
	}
	switch cfg.Notifier.Kind {
	case "slack":
		if cfg.Notifier.SlackWebhookURL == "" {
			return nil, apperr.New(apperr.Configuration, "SLACK_WEBHOOK_URL is required")
		}
		return &Slack{url: cfg.Notifier.SlackWebhookURL}, nil
	case "discord":
		return NewDiscord(cfg.Notifier.DiscordWebhookURL)
	default:
		return nil, apperr.New(apperr.Configuration, "invalid notifier %q: use discord or slack", cfg.Notifier.Kind)
	}
}

// DryRun logs instead of posting.
type DryRun struct {
	log *slog.Logger
}

func (d *DryRun) Notify(_ context.Context, text string) error {
	d.log.Info("dry run: digest not posted", "text", text)
	return nil
}

// Slack posts to an incoming webhook.
type Slack struct {
	url string
}

func (s *Slack) Notify(ctx context.Context, text string) error {
	if err := slack.PostWebhookContext(ctx, s.url, &slack.WebhookMessage{Text: text}); err != nil {
		return apperr.Wrap(apperr.Upstream, err, "slack webhook failed")
	}
	return nil
}

type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts through a channel webhook.
type Discord struct {
	exec  webhookExecutor
	id    string
	token string
}

// NewDiscord parses a webhook URL of the form .../api/webhooks/<id>/<token>.
func NewDiscord(webhookURL string) (*Discord, error) {
	id, token, err := ParseDiscordWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, err
	}
	return &Discord{exec: session, id: id, token: token}, nil
}

func (d *Discord) Notify(ctx context.Context, text string) error {
	params := &discordgo.WebhookParams{Content: truncate(text, discordContentLimit)}
	if _, err := d.exec.WebhookExecute(d.id, d.token, false, params, discordgo.WithContext(ctx)); err != nil {
		return apperr.Wrap(apperr.Upstream, err, "discord webhook failed")
	}
	return nil
}

// ParseDiscordWebhook extracts the webhook id and token.
func ParseDiscordWebhook(raw string) (string, string, error) {
	if raw == "" {
		return "", "", apperr.New(apperr.Configuration, "DISCORD_WEBHOOK_URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", apperr.Wrap(apperr.Configuration, err, "invalid discord webhook url")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", apperr.New(apperr.Configuration, "invalid discord webhook url: %s", redact(raw))
}

func redact(raw string) string {
	if i := strings.Index(raw, "/webhooks/"); i >= 0 {
		return raw[:i] + "/webhooks/..."
	}
	return "..."
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

var (
	_ Notifier = (*DryRun)(nil)
	_ Notifier = (*Slack)(nil)
	_ Notifier = (*Discord)(nil)
)
