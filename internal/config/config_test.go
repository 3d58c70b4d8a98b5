package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, "config.yaml", `
timezone: UTC
database:
  path: `+filepath.Join(dir, "nested", "isomero.db")+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, SourceSQLite, cfg.Store.Source)
	assert.Equal(t, "configs/hours.yaml", cfg.Store.HoursPath)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "GISHUSHU", cfg.LiveStatus.DefaultLocation)
	assert.Equal(t, 10*time.Minute, cfg.StoreRefreshInterval())
	assert.Equal(t, 5*time.Minute, cfg.LiveStatusInterval())
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
	assert.Equal(t, time.UTC, cfg.TimeLocation())

	_, err = os.Stat(filepath.Join(dir, "nested"))
	assert.NoError(t, err, "database directory should be created")
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ISOMERO_TEST_TOKEN", "secret-token")
	path := writeFile(t, "config.yaml", `
timezone: UTC
store:
  source: file
telegram:
  enabled: true
  bot_token: ${ISOMERO_TEST_TOKEN}
redis:
  cache_ttl_seconds: 90
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Telegram.BotToken)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL())
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown source", "timezone: UTC\nstore:\n  source: ftp\n"},
		{"sheets without spreadsheet", "timezone: UTC\nstore:\n  source: sheets\n"},
		{"bad timezone", "timezone: Mars/Olympus\nstore:\n  source: file\n"},
		{"negative rate", "timezone: UTC\nstore:\n  source: file\nhttp:\n  rate_limit_rps: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
