package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kaasync.toml")
	contents := `
[database]
path = "/var/lib/kaasync/jobs.db"

[notion]
token = "secret_abc"
projects_database_id = "db-projects"
leads_database_id = "db-leads"

[queue]
max_retries = 5
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/kaasync/jobs.db", cfg.Database.Path)
	assert.Equal(t, "secret_abc", cfg.Notion.Token)
	assert.True(t, cfg.Notion.Enabled())
	assert.Equal(t, 5, cfg.Queue.MaxRetries)

	// Unset keys fall back to defaults
	assert.Equal(t, 3.0, cfg.Notion.RequestsPerSecond)
	assert.Equal(t, 3, cfg.Queue.MaxConcurrent)
	assert.Equal(t, 30, cfg.Queue.BaseDelaySeconds)
	assert.Equal(t, 7, cfg.Queue.RetentionDays)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestNotionConfig_Enabled(t *testing.T) {
	assert.False(t, NotionConfig{}.Enabled())
	assert.True(t, NotionConfig{Token: "x"}.Enabled())
}
