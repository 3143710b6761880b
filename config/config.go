// Package config loads kaasync configuration from TOML files and the
// environment using Viper.
package config

// Config is the root kaasync configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Notion   NotionConfig   `mapstructure:"notion"`
	Queue    QueueConfig    `mapstructure:"queue"`
}

// DatabaseConfig configures the SQLite database used for job persistence.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// NotionConfig configures the Notion integration.
// An empty Token disables syncing entirely: trigger hooks become no-ops.
type NotionConfig struct {
	Token              string  `mapstructure:"token"`
	ProjectsDatabaseID string  `mapstructure:"projects_database_id"`
	LeadsDatabaseID    string  `mapstructure:"leads_database_id"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"` // Notion enforces ~3 req/s
}

// QueueConfig configures the sync job queue and its processing loop.
type QueueConfig struct {
	MaxConcurrent        int `mapstructure:"max_concurrent"`         // jobs in flight at once
	MaxRetries           int `mapstructure:"max_retries"`            // attempts before terminal failure
	BaseDelaySeconds     int `mapstructure:"base_delay_seconds"`     // backoff base: delay = base * 2^(retry-1)
	RetentionDays        int `mapstructure:"retention_days"`         // completed-job retention window
	CleanupIntervalHours int `mapstructure:"cleanup_interval_hours"` // janitor cadence
}

// Enabled reports whether the Notion integration is configured.
func (n NotionConfig) Enabled() bool {
	return n.Token != ""
}
