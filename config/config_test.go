package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pacer.db", cfg.Database.Path)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Scheduler.BatchLimit)
	assert.Equal(t, 4, cfg.Scheduler.Workers)
	assert.Equal(t, 300, cfg.Scheduler.JobTimeoutSeconds)
	assert.Zero(t, cfg.Scheduler.RatePerSecond)
	assert.Equal(t, 300, cfg.Executors.TimeoutSeconds)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacer.toml")
	content := `
[database]
path = "/var/lib/pacer/pacer.db"

[server]
port = 9001

[scheduler]
batch_limit = 25
workers = 8
job_timeout_seconds = 120
rate_per_second = 2.5

[executors]
workflow_url = "http://engines.internal/workflows"
timeout_seconds = 60

[log]
json = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/pacer/pacer.db", cfg.Database.Path)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Scheduler.BatchLimit)
	assert.Equal(t, 8, cfg.Scheduler.Workers)
	assert.Equal(t, 120, cfg.Scheduler.JobTimeoutSeconds)
	assert.Equal(t, 2.5, cfg.Scheduler.RatePerSecond)
	assert.Equal(t, "http://engines.internal/workflows", cfg.Executors.WorkflowURL)
	assert.Equal(t, 60, cfg.Executors.TimeoutSeconds)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadFromFile_PartialFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacer.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nworkers = 16\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Scheduler.Workers)
	assert.Equal(t, 50, cfg.Scheduler.BatchLimit)
	assert.Equal(t, "pacer.db", cfg.Database.Path)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/pacer.toml")
	assert.Error(t, err)
}
