package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_mode", AppModeDigest)
	v.SetDefault("digest_mode", "both")
	v.SetDefault("timezone", "America/Los_Angeles")
	v.SetDefault("dry_run", false)
	v.SetDefault("log_dir", "logs")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("source.kind", "notion")
	v.SetDefault("source.notion.requests_per_second", 3.0)
	v.SetDefault("source.notion.task_prop", "Task")
	v.SetDefault("source.notion.priority_prop", "Priority")
	v.SetDefault("source.notion.status_prop", "Status")
	v.SetDefault("source.notion.due_prop", "Due")
	v.SetDefault("source.notion.done_checkbox_prop", "done")
	v.SetDefault("source.notion.project_prop", "Project")
	v.SetDefault("source.notion.estimated_minutes_prop", "estimated_minutes")
	v.SetDefault("source.notion.created_time_prop", "Created time")
	v.SetDefault("source.notion.last_edited_prop", "Last edited time")
	v.SetDefault("source.taskwarrior.binary", "task")
	v.SetDefault("source.taskwarrior.filter", []string{"status:pending"})

	v.SetDefault("scoring.w_priority", 0.5)
	v.SetDefault("scoring.w_due", 0.35)
	v.SetDefault("scoring.w_stale", 0.15)
	v.SetDefault("scoring.overdue_boost", 0.0)
	v.SetDefault("scoring.staleness_cap_days", 30)
	v.SetDefault("scoring.due_soon_days", 3)
	v.SetDefault("scoring.due_window_days", 7)
	v.SetDefault("scoring.project_diversity_max_per_project", 2)
	v.SetDefault("scoring.default_estimated_minutes", 30)
	v.SetDefault("scoring.high_priority_values", []string{"p0"})
	v.SetDefault("scoring.closed_statuses", []string{"done"})

	v.SetDefault("calendar.workday_start_hour", 9)
	v.SetDefault("calendar.workday_end_hour", 18)
	v.SetDefault("calendar.focus_buffer_minutes", 60)

	v.SetDefault("notifier.kind", "discord")
	v.SetDefault("notifier.max_lines", 15)
	v.SetDefault("notifier.max_tasks_per_section", 2)

	v.SetDefault("bot.state_backend", "file")
	v.SetDefault("bot.state_path", filepath.Join("logs", "discord-bot-state.json"))
	v.SetDefault("bot.ttl_minutes", 30)
	v.SetDefault("bot.max_action_tasks", 10)

	v.SetDefault("summary.enabled", false)
	v.SetDefault("summary.model", "gemini-2.5-flash")
	v.SetDefault("summary.window_days", 3)
	v.SetDefault("summary.max_tasks", 12)

	v.SetDefault("schedule.morning_hour", 9)
	v.SetDefault("schedule.evening_hour", 19)
	v.SetDefault("schedule.enforce_local_hour", false)
}

// envBindings keeps the environment names operators already use.
var envBindings = map[string]string{
	"app_mode":     "APP_MODE",
	"digest_mode":  "MODE",
	"timezone":     "TIMEZONE",
	"dry_run":      "DRY_RUN",
	"log_dir":      "LOG_DIR",
	"metrics_addr": "METRICS_ADDR",
	"log.level":    "LOG_LEVEL",
	"log.format":   "LOG_FORMAT",

	"source.kind":                          "TASK_SOURCE",
	"source.notion.api_key":                "NOTION_API_KEY",
	"source.notion.database_id":            "NOTION_DATABASE_ID",
	"source.notion.task_prop":              "NOTION_TASK_PROP",
	"source.notion.priority_prop":          "NOTION_PRIORITY_PROP",
	"source.notion.status_prop":            "NOTION_STATUS_PROP",
	"source.notion.due_prop":               "NOTION_DUE_PROP",
	"source.notion.done_checkbox_prop":     "NOTION_DONE_CHECKBOX_PROP",
	"source.notion.project_prop":           "NOTION_PROJECT_PROP",
	"source.notion.estimated_minutes_prop": "NOTION_ESTIMATED_MINUTES_PROP",
	"source.notion.created_time_prop":      "NOTION_CREATED_TIME_PROP",
	"source.notion.last_edited_prop":       "NOTION_LAST_EDITED_PROP",
	"source.taskwarrior.binary":            "TASKWARRIOR_BIN",
	"source.org.files":                     "ORG_FILES",

	"scoring.w_priority":                        "W_PRIORITY",
	"scoring.w_due":                             "W_DUE",
	"scoring.w_stale":                           "W_STALE",
	"scoring.overdue_boost":                     "OVERDUE_BOOST",
	"scoring.staleness_cap_days":                "STALENESS_CAP_DAYS",
	"scoring.due_soon_days":                     "DUE_SOON_DAYS",
	"scoring.due_window_days":                   "DUE_WINDOW_DAYS",
	"scoring.project_diversity_max_per_project": "TOP3_MAX_PER_PROJECT",
	"scoring.default_estimated_minutes":         "DEFAULT_ESTIMATED_MINUTES",
	"scoring.high_priority_values":              "HIGH_PRIORITY_VALUES",
	"scoring.closed_statuses":                   "CLOSED_STATUS_VALUES",

	"calendar.id":                   "GOOGLE_CALENDAR_ID",
	"calendar.name":                 "GOOGLE_CALENDAR_NAME",
	"calendar.client_email":         "GOOGLE_CLIENT_EMAIL",
	"calendar.private_key":          "GOOGLE_PRIVATE_KEY",
	"calendar.use_oauth":            "GOOGLE_USE_OAUTH",
	"calendar.workday_start_hour":   "WORKDAY_START_HOUR",
	"calendar.workday_end_hour":     "WORKDAY_END_HOUR",
	"calendar.focus_buffer_minutes": "FOCUS_BUFFER_MINUTES",

	"notifier.kind":                  "NOTIFIER",
	"notifier.discord_webhook_url":   "DISCORD_WEBHOOK_URL",
	"notifier.slack_webhook_url":     "SLACK_WEBHOOK_URL",
	"notifier.max_lines":             "MAX_SLACK_LINES",
	"notifier.max_tasks_per_section": "MAX_TASKS_PER_SECTION",

	"bot.token":            "DISCORD_BOT_TOKEN",
	"bot.app_id":           "DISCORD_APP_ID",
	"bot.guild_id":         "DISCORD_GUILD_ID",
	"bot.state_backend":    "DISCORD_BOT_STATE_BACKEND",
	"bot.state_path":       "DISCORD_BOT_STATE_PATH",
	"bot.ttl_minutes":      "DISCORD_INTERACTION_TTL_MINUTES",
	"bot.max_action_tasks": "DISCORD_MAX_ACTION_TASKS",

	"summary.enabled":     "ENABLE_AI_SUMMARY",
	"summary.api_key":     "GEMINI_API_KEY",
	"summary.model":       "GEMINI_MODEL",
	"summary.window_days": "AI_SUMMARY_WINDOW_DAYS",
	"summary.max_tasks":   "AI_SUMMARY_MAX_TASKS",

	"schedule.morning_hour":       "MORNING_HOUR_LOCAL",
	"schedule.evening_hour":       "EVENING_HOUR_LOCAL",
	"schedule.enforce_local_hour": "ENFORCE_LOCAL_HOUR",
}

func bindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}
