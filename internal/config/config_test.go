package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data/queue.db", cfg.QueuePath)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 5.0, cfg.SyncRatePerSec)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_PlainEnvNames(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/detail")
	t.Setenv("PORT", "9090")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/detail", cfg.DatabaseURL)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://plain")
	t.Setenv("DETAIL_DATABASE_URL", "postgres://prefixed")
	t.Setenv("DETAIL_LOG_LEVEL", "DEBUG")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://prefixed", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
queue_path: /var/lib/detail/queue.db
sync_interval: 2m
nats_url: nats://127.0.0.1:4222
log:
  format: console
`), 0o600))
	t.Setenv("PORT", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "/var/lib/detail/queue.db", cfg.QueuePath)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	err := Config{Port: "8080", QueuePath: "q.db", SyncInterval: 0, LogFormat: "xml"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync_interval")
	assert.Contains(t, err.Error(), "log format")
}
