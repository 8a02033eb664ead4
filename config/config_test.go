package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, "localhost:8080", cfg.Addr())
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
catalog:
  dir: /data/catalog
schedules:
  seed_filter: math
  seed_count: 3
  idle_timeout: 10m
websocket:
  allowed_origins:
    - https://app.example
log:
  format: logfmt
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, "/data/catalog", cfg.Catalog.Dir)
		assert.Equal(t, "schedules", cfg.Schedules.Dir)
		assert.Equal(t, "math", cfg.Schedules.SeedFilter)
		assert.Equal(t, 3, cfg.Schedules.SeedCount)
		assert.Equal(t, 10*time.Minute, cfg.Schedules.IdleTimeout)
		assert.Equal(t, time.Minute, cfg.Schedules.SweepInterval)
		assert.Equal(t, []string{"https://app.example"}, cfg.WebSocket.AllowedOrigins)
		assert.Equal(t, "logfmt", cfg.Log.Format)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [1, 2"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		tests := map[string]string{
			"port":       "server:\n  port: 70000\n",
			"catalog":    "catalog:\n  dir: \"\"\n",
			"seed count": "schedules:\n  seed_count: -1\n",
			"sweep":      "schedules:\n  sweep_interval: 0s\n",
			"log format": "log:\n  format: xml\n",
		}
		for name, content := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := Load(writeConfig(t, content))
				assert.Error(t, err)
			})
		}
	})
}
