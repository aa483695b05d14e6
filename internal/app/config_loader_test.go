package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ericstone57/dl-history/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfigFile(t, `
store:
  database_path: /var/lib/dl/history.sqlite
  ignore_history: true
  busy_timeout: 5s
server:
  port: 9000
logging:
  level: debug
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/dl/history.sqlite", config.Store.DatabasePath)
	assert.True(t, config.Store.IgnoreHistory)
	assert.False(t, config.Store.IgnoreCache)
	assert.Equal(t, 5*time.Second, config.Store.BusyTimeout)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, "store:\n  database_path: /from/file.sqlite\n")
	t.Setenv("DLHISTORY_STORE_DATABASE_PATH", "/from/env.sqlite")
	t.Setenv("DLHISTORY_STORE_IGNORE_CACHE", "true")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env.sqlite", config.Store.DatabasePath)
	assert.True(t, config.Store.IgnoreCache)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfigFile(t, "store:\n  database_path: ~/dl/history.sqlite\nlogging:\n  logs_dir: $HOME/logs\n")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "dl", "history.sqlite"), config.Store.DatabasePath)
	assert.Equal(t, filepath.Join(home, "logs"), config.Logging.LogsDir)
	assert.Equal(t, "stderr", config.Logging.OutputPath)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty database path", "store:\n  database_path: \"\"\n"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"negative busy timeout", "store:\n  busy_timeout: -1s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	config := domain.DefaultConfig()
	config.Store.DatabasePath = "/data/history.sqlite"
	config.Store.IgnoreCache = true
	config.Store.BusyTimeout = 2 * time.Second
	config.Server.Port = 9100

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.Store, loaded.Store)
	assert.Equal(t, config.Server, loaded.Server)
}
