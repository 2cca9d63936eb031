package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/spf13/viper"
)

const (
	xdgAppName = "agenda"
	configFile = "config.yaml"
)

// App modes select which long-running parts of the program start.
const (
	AppModeDigest = "digest"
	AppModeBot    = "bot"
	AppModeBoth   = "both"
)

// Config is built once at startup and passed by pointer into each
// component. Nothing mutates it after Load returns.
type Config struct {
	AppMode     string `mapstructure:"app_mode" yaml:"app_mode"`
	DigestMode  string `mapstructure:"digest_mode" yaml:"digest_mode"` // morning, evening or both
	Timezone    string `mapstructure:"timezone" yaml:"timezone"`
	DryRun      bool   `mapstructure:"dry_run" yaml:"dry_run"`
	LogDir      string `mapstructure:"log_dir" yaml:"log_dir"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`

	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Scoring  ScoringConfig  `mapstructure:"scoring" yaml:"scoring"`
	Calendar CalendarConfig `mapstructure:"calendar" yaml:"calendar"`
	Notifier NotifierConfig `mapstructure:"notifier" yaml:"notifier"`
	Bot      BotConfig      `mapstructure:"bot" yaml:"bot"`
	Summary  SummaryConfig  `mapstructure:"summary" yaml:"summary"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`

	location *time.Location
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type SourceConfig struct {
	Kind        string            `mapstructure:"kind" yaml:"kind"` // notion, taskwarrior or org
	Notion      NotionConfig      `mapstructure:"notion" yaml:"notion"`
	Taskwarrior TaskwarriorConfig `mapstructure:"taskwarrior" yaml:"taskwarrior"`
	Org         OrgConfig         `mapstructure:"org" yaml:"org"`
}

type NotionConfig struct {
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	DatabaseID        string  `mapstructure:"database_id" yaml:"database_id"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	TaskProp             string `mapstructure:"task_prop" yaml:"task_prop"`
	PriorityProp         string `mapstructure:"priority_prop" yaml:"priority_prop"`
	StatusProp           string `mapstructure:"status_prop" yaml:"status_prop"`
	DueProp              string `mapstructure:"due_prop" yaml:"due_prop"`
	DoneCheckboxProp     string `mapstructure:"done_checkbox_prop" yaml:"done_checkbox_prop"`
	ProjectProp          string `mapstructure:"project_prop" yaml:"project_prop"`
	EstimatedMinutesProp string `mapstructure:"estimated_minutes_prop" yaml:"estimated_minutes_prop"`
	CreatedTimeProp      string `mapstructure:"created_time_prop" yaml:"created_time_prop"`
	LastEditedProp       string `mapstructure:"last_edited_prop" yaml:"last_edited_prop"`
}

type TaskwarriorConfig struct {
	Binary string   `mapstructure:"binary" yaml:"binary"`
	Filter []string `mapstructure:"filter" yaml:"filter"`
}

type OrgConfig struct {
	Files []string `mapstructure:"files" yaml:"files"`
}

type ScoringConfig struct {
	WPriority                     float64  `mapstructure:"w_priority" yaml:"w_priority"`
	WDue                          float64  `mapstructure:"w_due" yaml:"w_due"`
	WStale                        float64  `mapstructure:"w_stale" yaml:"w_stale"`
	OverdueBoost                  float64  `mapstructure:"overdue_boost" yaml:"overdue_boost"`
	StalenessCapDays              int      `mapstructure:"staleness_cap_days" yaml:"staleness_cap_days"`
	DueSoonDays                   int      `mapstructure:"due_soon_days" yaml:"due_soon_days"`
	DueWindowDays                 int      `mapstructure:"due_window_days" yaml:"due_window_days"`
	ProjectDiversityMaxPerProject int      `mapstructure:"project_diversity_max_per_project" yaml:"project_diversity_max_per_project"`
	DefaultEstimatedMinutes       int      `mapstructure:"default_estimated_minutes" yaml:"default_estimated_minutes"`
	HighPriorityValues            []string `mapstructure:"high_priority_values" yaml:"high_priority_values"`
	ClosedStatuses                []string `mapstructure:"closed_statuses" yaml:"closed_statuses"`
}

type CalendarConfig struct {
	ID                 string `mapstructure:"id" yaml:"id"`
	Name               string `mapstructure:"name" yaml:"name"`
	ClientEmail        string `mapstructure:"client_email" yaml:"client_email"`
	PrivateKey         string `mapstructure:"private_key" yaml:"private_key"`
	UseOAuth           bool   `mapstructure:"use_oauth" yaml:"use_oauth"`
	WorkdayStartHour   int    `mapstructure:"workday_start_hour" yaml:"workday_start_hour"`
	WorkdayEndHour     int    `mapstructure:"workday_end_hour" yaml:"workday_end_hour"`
	FocusBufferMinutes int    `mapstructure:"focus_buffer_minutes" yaml:"focus_buffer_minutes"`
}

type NotifierConfig struct {
	Kind               string `mapstructure:"kind" yaml:"kind"` // discord or slack
	DiscordWebhookURL  string `mapstructure:"discord_webhook_url" yaml:"discord_webhook_url"`
	SlackWebhookURL    string `mapstructure:"slack_webhook_url" yaml:"slack_webhook_url"`
	MaxLines           int    `mapstructure:"max_lines" yaml:"max_lines"`
	MaxTasksPerSection int    `mapstructure:"max_tasks_per_section" yaml:"max_tasks_per_section"`
}

type BotConfig struct {
	Token          string `mapstructure:"token" yaml:"token"`
	AppID          string `mapstructure:"app_id" yaml:"app_id"`
	GuildID        string `mapstructure:"guild_id" yaml:"guild_id"`
	StateBackend   string `mapstructure:"state_backend" yaml:"state_backend"` // file or sqlite
	StatePath      string `mapstructure:"state_path" yaml:"state_path"`
	TTLMinutes     int    `mapstructure:"ttl_minutes" yaml:"ttl_minutes"`
	MaxActionTasks int    `mapstructure:"max_action_tasks" yaml:"max_action_tasks"`
}

type SummaryConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Model      string `mapstructure:"model" yaml:"model"`
	WindowDays int    `mapstructure:"window_days" yaml:"window_days"`
	MaxTasks   int    `mapstructure:"max_tasks" yaml:"max_tasks"`
}

type ScheduleConfig struct {
	MorningHour      int  `mapstructure:"morning_hour" yaml:"morning_hour"`
	EveningHour      int  `mapstructure:"evening_hour" yaml:"evening_hour"`
	EnforceLocalHour bool `mapstructure:"enforce_local_hour" yaml:"enforce_local_hour"`
}

// Location returns the configured timezone. Load guarantees it is set.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// CalendarConfigured reports whether a calendar identity and credentials are present.
func (c *Config) CalendarConfigured() bool {
	cal := c.Calendar
	if cal.ID == "" && cal.Name == "" {
		return false
	}
	return cal.UseOAuth || (cal.ClientEmail != "" && cal.PrivateKey != "")
}

// GetConfigPath returns the default config file location.
func GetConfigPath() (string, error) {
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, xdgAppName, configFile), nil
}

// Load reads defaults, then the YAML file at path (or the default location
// when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		p, err := GetConfigPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, apperr.Wrap(apperr.Configuration, err, "invalid timezone %q", cfg.Timezone)
	}
	cfg.location = loc
	return &cfg, nil
}

func (c *Config) normalize() {
	c.AppMode = strings.ToLower(strings.TrimSpace(c.AppMode))
	c.DigestMode = strings.ToLower(strings.TrimSpace(c.DigestMode))
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	c.Notifier.Kind = strings.ToLower(strings.TrimSpace(c.Notifier.Kind))
	c.Bot.StateBackend = strings.ToLower(strings.TrimSpace(c.Bot.StateBackend))
	c.Source.Org.Files = splitList(c.Source.Org.Files)
	c.Scoring.HighPriorityValues = lowerSet(c.Scoring.HighPriorityValues)
	c.Scoring.ClosedStatuses = lowerSet(c.Scoring.ClosedStatuses)
	c.Calendar.PrivateKey = strings.ReplaceAll(c.Calendar.PrivateKey, `\n`, "\n")
}

// lowerSet trims, lower-cases and drops empties. Env values arrive as a
// single comma separated string, so entries are split on commas too.
func lowerSet(values []string) []string {
	var out []string
	for _, raw := range values {
		for _, v := range strings.Split(raw, ",") {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// splitList trims and splits comma separated entries, keeping case.
func splitList(values []string) []string {
	var out []string
	for _, raw := range values {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// Validate checks the options required by appMode and reports every
// missing one at once.
func (c *Config) Validate(appMode string) error {
	switch appMode {
	case AppModeDigest, AppModeBot, AppModeBoth:
	default:
		return apperr.New(apperr.Configuration, "invalid app mode %q: use digest, bot, or both", appMode)
	}

	var missing []string
	switch c.Source.Kind {
	case "notion":
		if c.Source.Notion.APIKey == "" {
			missing = append(missing, "NOTION_API_KEY")
		}
		if c.Source.Notion.DatabaseID == "" {
			missing = append(missing, "NOTION_DATABASE_ID")
		}
	case "taskwarrior":
	case "org":
		if len(c.Source.Org.Files) == 0 {
			missing = append(missing, "ORG_FILES")
		}
	default:
		return apperr.New(apperr.Configuration, "invalid task source %q: use notion, taskwarrior, or org", c.Source.Kind)
	}

	if c.Notifier.Kind != "discord" && c.Notifier.Kind != "slack" {
		return apperr.New(apperr.Configuration, "invalid notifier %q: use discord or slack", c.Notifier.Kind)
	}
	if (appMode == AppModeDigest || appMode == AppModeBoth) && !c.DryRun {
		if c.Notifier.Kind == "discord" && c.Notifier.DiscordWebhookURL == "" {
			missing = append(missing, "DISCORD_WEBHOOK_URL")
		}
		if c.Notifier.Kind == "slack" && c.Notifier.SlackWebhookURL == "" {
			missing = append(missing, "SLACK_WEBHOOK_URL")
		}
	}
	if appMode == AppModeBot || appMode == AppModeBoth {
		if c.Bot.Token == "" {
			missing = append(missing, "DISCORD_BOT_TOKEN")
		}
		if c.Bot.AppID == "" {
			missing = append(missing, "DISCORD_APP_ID")
		}
		if c.Bot.GuildID == "" {
			missing = append(missing, "DISCORD_GUILD_ID")
		}
		if c.Bot.StateBackend != "file" && c.Bot.StateBackend != "sqlite" {
			return apperr.New(apperr.Configuration, "invalid state backend %q: use file or sqlite", c.Bot.StateBackend)
		}
		if c.Bot.TTLMinutes <= 0 {
			return apperr.New(apperr.Configuration, "action ttl must be positive, got %d", c.Bot.TTLMinutes)
		}
	}
	if len(missing) > 0 {
		return apperr.New(apperr.Configuration, "missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
