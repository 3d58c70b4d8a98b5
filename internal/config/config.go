package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceSQLite = "sqlite"
	SourceSheets = "sheets"
	SourceFile   = "file"
)

type Config struct {
	Timezone string `yaml:"timezone"`

	Log struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Store struct {
		Source                 string `yaml:"source"`
		HoursPath              string `yaml:"hours_path"`
		SeedFromHours          bool   `yaml:"seed_from_hours"`
		RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
		WatchIntervalSeconds   int    `yaml:"watch_interval_seconds"`
		FailoverRetrySeconds   int    `yaml:"failover_retry_seconds"`
		PastDays               int    `yaml:"past_days"`
		FutureDays             int    `yaml:"future_days"`
	} `yaml:"store"`

	Google struct {
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SchedulesRange  string `yaml:"schedules_range"`
		ExceptionsRange string `yaml:"exceptions_range"`
	} `yaml:"google"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	HTTP struct {
		Port           int     `yaml:"port"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"http"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	LiveStatus struct {
		DefaultLocation        string `yaml:"default_location"`
		RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
	} `yaml:"live_status"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Store.Source == SourceSQLite {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Africa/Kigali"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/isomero.db"
	}
	if c.Store.Source == "" {
		c.Store.Source = SourceSQLite
	}
	if c.Store.HoursPath == "" {
		c.Store.HoursPath = "configs/hours.yaml"
	}
	if c.Store.PastDays <= 0 {
		c.Store.PastDays = 62
	}
	if c.Store.FutureDays <= 0 {
		c.Store.FutureDays = 400
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.LiveStatus.DefaultLocation == "" {
		c.LiveStatus.DefaultLocation = "GISHUSHU"
	}
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Store.Source {
	case SourceSQLite, SourceFile:
	case SourceSheets:
		if c.Google.SpreadsheetID == "" {
			return fmt.Errorf("store.source is %q but google.spreadsheet_id is empty", SourceSheets)
		}
		if c.Google.CredentialsFile == "" {
			return fmt.Errorf("store.source is %q but google.credentials_file is empty", SourceSheets)
		}
	default:
		return fmt.Errorf("store.source: unknown source %q (want sqlite, sheets or file)", c.Store.Source)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("http.rate_limit_rps cannot be negative")
	}
	return nil
}

// TimeLocation is the single wall-clock zone every date is interpreted in.
func (c *Config) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) StoreRefreshInterval() time.Duration {
	if c.Store.RefreshIntervalSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Store.RefreshIntervalSeconds) * time.Second
}

func (c *Config) HoursWatchInterval() time.Duration {
	if c.Store.WatchIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Store.WatchIntervalSeconds) * time.Second
}

func (c *Config) FailoverRetry() time.Duration {
	if c.Store.FailoverRetrySeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Store.FailoverRetrySeconds) * time.Second
}

func (c *Config) LiveStatusInterval() time.Duration {
	if c.LiveStatus.RefreshIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.LiveStatus.RefreshIntervalSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
