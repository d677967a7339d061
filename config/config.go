// Package config loads the server configuration from a TOML file,
// writing the defaults out on first run. The source URL may also come
// from the SHEET_WEB_APP_URL environment variable, which takes effect
// when the file leaves it empty.
package config

import (
	"errors"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "schedule.db"

	// EnvSourceURL overrides an empty source_url in the file.
	EnvSourceURL = "SHEET_WEB_APP_URL"
)

// Config is the full server configuration surface.
type Config struct {
	SourceURL  string `toml:"source_url"`
	DBPath     string `toml:"db_path"`
	Port       int    `toml:"port"`
	AuthToken  string `toml:"auth_token"`
	Timezone   string `toml:"timezone"`
	MonthlyKey string `toml:"monthly_key"`
	DailyKey   string `toml:"daily_key"`

	RefreshSpec      string `toml:"refresh_spec"`
	FetchTimeoutSecs int    `toml:"fetch_timeout_secs"`
	FetchRetries     int    `toml:"fetch_retries"`
	FetchBackoffMS   int    `toml:"fetch_backoff_ms"`
}

// LoadOrCreate reads the config at path, creating it with defaults when
// absent. Missing fields fall back to their defaults.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return applyEnv(cfg), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	return applyEnv(cfg), nil
}

// Location resolves the configured timezone. When tzdata is missing the
// default zone degrades to a fixed UTC+5:30 offset.
func (c Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*3600+1800)
}

func applyEnv(cfg Config) Config {
	if cfg.SourceURL == "" {
		cfg.SourceURL = os.Getenv(EnvSourceURL)
	}
	return cfg
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DBPath:           DefaultDBName,
		Port:             8080,
		Timezone:         "Asia/Kolkata",
		MonthlyKey:       "Monthly",
		DailyKey:         "Daily",
		RefreshSpec:      "@every 30m",
		FetchTimeoutSecs: 20,
		FetchRetries:     3,
		FetchBackoffMS:   500,
	}
}
