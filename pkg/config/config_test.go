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
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 1024, cfg.Cache.Size)
	assert.Equal(t, uint64(3), cfg.Retry.MaxRetries)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
dataDir: /var/lib/portal
log:
  level: debug
  json: true
redis:
  address: localhost:6379
  db: 2
retry:
  baseDelay: 200ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/portal", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "portal:invalidate", cfg.Redis.Channel)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, uint64(3), cfg.Retry.MaxRetries)
	assert.Equal(t, 1024, cfg.Cache.Size)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "cach:\n  size: 3\n", "failed to parse config"},
		{"bad duration", "retry:\n  baseDelay: soon\n", "failed to parse config"},
		{"zero cache", "cache:\n  size: 0\n", "cache.size must be positive"},
		{"bad level", "log:\n  level: loud\n", `log.level "loud"`},
		{"redis without channel", "redis:\n  address: r:6379\n  channel: \"\"\n", "redis.channel is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.DataDir = " "
	cfg.Cache.Size = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataDir must not be empty")
	assert.Contains(t, err.Error(), "cache.size must be positive")
}

func TestLoadWidgets(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
registry:
  validateNames: true
  widgets:
    - provider: core
      name: calendar
      title: Calendar
      locations: [body, right]
    - name: news
`))
	require.NoError(t, err)
	assert.True(t, cfg.Registry.ValidateNames)
	require.Len(t, cfg.Registry.Widgets, 2)
	assert.Equal(t, []string{"body", "right"}, cfg.Registry.Widgets[0].Locations)
	assert.Equal(t, "", cfg.Registry.Widgets[1].Provider)

	_, err = Load(writeConfig(t, "registry:\n  widgets:\n    - title: nameless\n"))
	assert.ErrorContains(t, err, "registry.widgets[0] has no name")
}
