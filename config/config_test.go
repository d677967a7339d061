package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe/study-engine/config"
)

func TestLoadOrCreate_WritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultConfigFileName)

	cfg, err := config.LoadOrCreate(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, config.DefaultDBName, cfg.DBPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, "Monthly", cfg.MonthlyKey)
	assert.Equal(t, "Daily", cfg.DailyKey)
	assert.Equal(t, "@every 30m", cfg.RefreshSpec)
	assert.Equal(t, 20, cfg.FetchTimeoutSecs)
	assert.Equal(t, 3, cfg.FetchRetries)
	assert.Equal(t, 500, cfg.FetchBackoffMS)
	assert.Empty(t, cfg.SourceURL)
	assert.Empty(t, cfg.AuthToken)
}

func TestLoadOrCreate_ReloadsWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultConfigFileName)

	first, err := config.LoadOrCreate(path)
	require.NoError(t, err)

	second, err := config.LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadOrCreate_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_url = "https://example.com/exec"
port = 9090
auth_token = "secret"
daily_key = "daily_OCT"
`), 0o644))

	cfg, err := config.LoadOrCreate(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/exec", cfg.SourceURL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "secret", cfg.AuthToken)
	assert.Equal(t, "daily_OCT", cfg.DailyKey)
	// Omitted fields keep their defaults.
	assert.Equal(t, config.DefaultDBName, cfg.DBPath)
}

func TestLoadOrCreate_EnvFillsEmptySourceURL(t *testing.T) {
	t.Setenv(config.EnvSourceURL, "https://env.example.com/exec")
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := config.LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/exec", cfg.SourceURL)
}

func TestLoadOrCreate_FileSourceURLWinsOverEnv(t *testing.T) {
	t.Setenv(config.EnvSourceURL, "https://env.example.com/exec")
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`source_url = "https://file.example.com/exec"`), 0o644))

	cfg, err := config.LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com/exec", cfg.SourceURL)
}

func TestLocation_FallsBackToFixedOffset(t *testing.T) {
	cfg := config.Config{Timezone: "Not/AZone"}

	loc := cfg.Location()
	_, offset := time.Date(2025, 10, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 5*3600+1800, offset)
}
