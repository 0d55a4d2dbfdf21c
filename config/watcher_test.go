package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacer.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nworkers = 4\n"), 0o644))

	watcher, err := NewWatcher(path)
	require.NoError(t, err)
	defer watcher.Stop()

	reloaded := make(chan *Config, 1)
	watcher.OnReload(func(cfg *Config) error {
		select {
		case reloaded <- cfg:
		default:
		}
		return nil
	})
	watcher.Start()

	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nworkers = 12\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 12, cfg.Scheduler.Workers)
	case <-time.After(5 * time.Second):
		t.Fatal("config reload never fired")
	}
}

func TestWatcher_KeepsPreviousConfigOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacer.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nworkers = 4\n"), 0o644))

	watcher, err := NewWatcher(path)
	require.NoError(t, err)
	defer watcher.Stop()

	called := make(chan struct{}, 1)
	watcher.OnReload(func(cfg *Config) error {
		called <- struct{}{}
		return nil
	})
	watcher.Start()

	// Corrupt TOML is logged and dropped; callbacks never see it
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o644))

	select {
	case <-called:
		t.Fatal("callback fired for an unparseable config")
	case <-time.After(1 * time.Second):
	}
}

func TestNewWatcher_MissingFile(t *testing.T) {
	_, err := NewWatcher("/nonexistent/pacer.toml")
	assert.Error(t, err)
}
