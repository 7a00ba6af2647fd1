package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Block        string `yaml:"block"`
	UniverseFile string `yaml:"universe_file"`
	Timezone     string `yaml:"timezone"`
	DataSource   struct {
		Provider        string        `yaml:"provider"`
		Fallback        string        `yaml:"fallback"`
		RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
		Timeout         time.Duration `yaml:"timeout"`
		Retries         int           `yaml:"retries"`
	} `yaml:"data_source"`
	Refresh struct {
		Interval        time.Duration `yaml:"interval"`
		MaintenanceCron string        `yaml:"maintenance_cron"`
		AlertAfter      int           `yaml:"alert_after"`
	} `yaml:"refresh"`
	Fetch struct {
		QuoteChunkSize   int           `yaml:"quote_chunk_size"`
		HistoryBatchSize int           `yaml:"history_batch_size"`
		MaxWorkers       int           `yaml:"max_workers"`
		HistoryDepth     int           `yaml:"history_depth"`
		TaskTimeout      time.Duration `yaml:"task_timeout"`
	} `yaml:"fetch"`
	Metrics struct {
		MAWindow        int `yaml:"ma_window"`
		VolumeWindow    int `yaml:"volume_window"`
		AmplitudeWindow int `yaml:"amplitude_window"`
		MomentumCycles  int `yaml:"momentum_cycles"`
	} `yaml:"metrics"`
	Annotations struct {
		File string `yaml:"file"`
	} `yaml:"annotations"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopN     int    `yaml:"top_n"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SCREENER_BLOCK"); v != "" {
		cfg.Block = v
	}
	if v := os.Getenv("UNIVERSE_FILE"); v != "" {
		cfg.UniverseFile = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("REFRESH_INTERVAL: %w", err)
		}
		cfg.Refresh.Interval = d
	}
	if v := os.Getenv("MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MAX_WORKERS: %w", err)
		}
		cfg.Fetch.MaxWorkers = n
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.UniverseFile == "" {
		c.UniverseFile = "data/blockstockV3.xml"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Shanghai"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "tencent"
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 10 * time.Second
	}
	if c.DataSource.RateLimitPerSec == 0 {
		c.DataSource.RateLimitPerSec = 20
	}
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = 20 * time.Second
	}
	if c.Refresh.MaintenanceCron == "" {
		c.Refresh.MaintenanceCron = "0 5 0 * * *"
	}
	if c.Refresh.AlertAfter == 0 {
		c.Refresh.AlertAfter = 3
	}
	if c.Fetch.QuoteChunkSize == 0 {
		c.Fetch.QuoteChunkSize = 100
	}
	if c.Fetch.HistoryBatchSize == 0 {
		c.Fetch.HistoryBatchSize = 10
	}
	if c.Fetch.MaxWorkers == 0 {
		c.Fetch.MaxWorkers = 10
	}
	if c.Fetch.HistoryDepth == 0 {
		c.Fetch.HistoryDepth = 20
	}
	if c.Fetch.TaskTimeout == 0 {
		c.Fetch.TaskTimeout = 15 * time.Second
	}
	if c.Metrics.MAWindow == 0 {
		c.Metrics.MAWindow = 5
	}
	if c.Metrics.VolumeWindow == 0 {
		c.Metrics.VolumeWindow = 10
	}
	if c.Metrics.AmplitudeWindow == 0 {
		c.Metrics.AmplitudeWindow = 10
	}
	if c.Metrics.MomentumCycles == 0 {
		c.Metrics.MomentumCycles = 5
	}
	if c.Annotations.File == "" {
		c.Annotations.File = "data/custom_data.json"
	}
	if c.Telegram.TopN == 0 {
		c.Telegram.TopN = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Block == "" {
		return fmt.Errorf("block is required")
	}
	if c.Refresh.Interval < time.Second {
		return fmt.Errorf("refresh.interval must be at least 1s")
	}
	if c.Fetch.MaxWorkers < 1 {
		return fmt.Errorf("fetch.max_workers must be positive")
	}
	if c.Fetch.QuoteChunkSize < 1 || c.Fetch.HistoryBatchSize < 1 {
		return fmt.Errorf("fetch chunk sizes must be positive")
	}
	need := c.Metrics.MAWindow
	if c.Metrics.VolumeWindow+1 > need {
		need = c.Metrics.VolumeWindow + 1
	}
	if c.Metrics.AmplitudeWindow > need {
		need = c.Metrics.AmplitudeWindow
	}
	if c.Fetch.HistoryDepth < need {
		return fmt.Errorf("fetch.history_depth must cover the longest metric window (%d)", need)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Location resolves the exchange timezone, falling back to a fixed UTC+8
// zone when the tz database is unavailable.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}
