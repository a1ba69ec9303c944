package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Cryptopulse CryptopulseConfig `yaml:"cryptopulse"`
	Provider    ProviderConfig    `yaml:"provider"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Cycle       CycleConfig       `yaml:"cycle"`
	Storage     StorageConfig     `yaml:"storage"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type CryptopulseConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ProviderConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	TopN              int    `yaml:"top_n"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type TelegramConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	BotToken       string `yaml:"bot_token"`
	ChatID         string `yaml:"chat_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type CycleConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type StorageConfig struct {
	DataDir    string   `yaml:"data_dir"`
	SQLiteFile string   `yaml:"sqlite_file"`
	S3         S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
}

type ArchiveConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Interval returns the cycle interval as a duration.
func (c CycleConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Timeout returns the provider request timeout as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Timeout returns the telegram request timeout as a duration.
func (t TelegramConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// SQLitePath joins the data directory and sqlite file name.
func (s StorageConfig) SQLitePath() string {
	return strings.TrimRight(s.DataDir, "/") + "/" + s.SQLiteFile
}

// LoadConfig reads the yaml configuration file, applies environment
// overrides for secrets, fills defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(resolveConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)
	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides lets environment variables take precedence over the
// file for credentials, matching how the process is deployed.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COINMARKETCAP_API_KEY"); v != "" {
		cfg.Provider.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = strings.TrimSpace(v)
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = strings.TrimSpace(v)
	}
	if cfg.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://pro-api.coinmarketcap.com"
	}
	if cfg.Provider.TopN == 0 {
		cfg.Provider.TopN = 100
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.Provider.RequestsPerMinute == 0 {
		cfg.Provider.RequestsPerMinute = 30
	}
	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = "https://api.telegram.org"
	}
	if cfg.Telegram.TimeoutSeconds == 0 {
		cfg.Telegram.TimeoutSeconds = 10
	}
	if cfg.Cycle.IntervalSeconds == 0 {
		cfg.Cycle.IntervalSeconds = 3600
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLiteFile == "" {
		cfg.Storage.SQLiteFile = "crypto_data.db"
	}
	if cfg.Archive.Compression == "" {
		cfg.Archive.Compression = "snappy"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Cryptopulse.Name == "" {
		return fmt.Errorf("cryptopulse.name is required")
	}

	if cfg.Cryptopulse.Version == "" {
		return fmt.Errorf("cryptopulse.version is required")
	}

	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required (or COINMARKETCAP_API_KEY)")
	}

	if cfg.Provider.TopN < 1 {
		return fmt.Errorf("provider.top_n must be greater than 0")
	}

	if cfg.Cycle.IntervalSeconds < 1 {
		return fmt.Errorf("cycle.interval_seconds must be greater than 0")
	}

	if cfg.Telegram.Enabled {
		if cfg.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required (or TELEGRAM_BOT_TOKEN)")
		}
		if cfg.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required (or TELEGRAM_CHAT_ID)")
		}
	}

	if cfg.Storage.S3.Enabled && cfg.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when s3 is enabled")
	}

	switch cfg.Archive.Compression {
	case "snappy", "gzip", "none":
	default:
		return fmt.Errorf("archive.compression must be one of snappy, gzip, none")
	}

	return nil
}
