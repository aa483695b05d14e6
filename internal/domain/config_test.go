package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "$HOME/.dl-history/download_history.sqlite", config.Store.DatabasePath)
	assert.False(t, config.Store.IgnoreHistory)
	assert.False(t, config.Store.IgnoreCache)
	assert.Equal(t, 30*time.Second, config.Store.BusyTimeout)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8089, config.Server.Port)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "stderr", config.Logging.OutputPath)
	assert.Empty(t, config.Logging.LogsDir)
}
