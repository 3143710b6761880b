package config

import "github.com/spf13/viper"

// SetDefaults registers default values for every configuration key.
// Defaults match Notion's documented rate ceiling and a retry budget that
// keeps a failing job alive for roughly four minutes before going terminal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "kaasync.db")

	v.SetDefault("notion.token", "")
	v.SetDefault("notion.projects_database_id", "")
	v.SetDefault("notion.leads_database_id", "")
	v.SetDefault("notion.requests_per_second", 3.0)

	v.SetDefault("queue.max_concurrent", 3)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.base_delay_seconds", 30)
	v.SetDefault("queue.retention_days", 7)
	v.SetDefault("queue.cleanup_interval_hours", 12)
}
