// Package config provides configuration management for the application.
// Values are loaded from a YAML file and environment variables via viper;
// an unparseable or invalid configuration is fatal at startup.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/gomeme/internal/logger"
)

// Server defaults.
const (
	defaultServerAddress      = ":8080"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second
)

// Pipeline defaults.
const (
	defaultRequestLimit     = 100
	defaultUserAgent        = "gomeme/1.0"
	defaultDownloadTimeout  = 2 * time.Minute
	defaultTranscodeTimeout = 5 * time.Minute
	defaultMaxRetries       = 3
	defaultRetryBaseDelay   = time.Second
	defaultRetryMaxDelay    = 30 * time.Second
	defaultTempDir          = "tmp/media"
	defaultHashSize         = 32
	defaultOCRTimeout       = 30 * time.Second
	defaultHashThreshold    = 10
	defaultPostsPerDay      = 24
	defaultPreloadLead      = 300 * time.Second
	defaultRetentionDays    = 30

	// maxPostsPerDay caps the cadence at one post per second; the
	// scheduler divides 86400 by this value in whole seconds.
	maxPostsPerDay = 86400
)

// ServerConfig holds the admin API server configuration.
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings for the history store.
type DatabaseConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

// SourceConfig holds the candidate feed settings.
type SourceConfig struct {
	Subreddits    []string      `yaml:"subreddits" mapstructure:"subreddits"`
	RequestLimit  int           `yaml:"request_limit" mapstructure:"request_limit"`
	IncludeVideos bool          `yaml:"include_videos" mapstructure:"include_videos"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBase     time.Duration `yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
	RetryMax      time.Duration `yaml:"retry_max_delay" mapstructure:"retry_max_delay"`
}

// TelegramConfig holds the publishing channel settings.
type TelegramConfig struct {
	Token   string  `yaml:"token" mapstructure:"token"`
	Channel string  `yaml:"channel" mapstructure:"channel"`
	Caption string  `yaml:"caption" mapstructure:"caption"`
	Admins  []int64 `yaml:"admins" mapstructure:"admins"`
}

// MediaConfig holds the media acquisition settings.
type MediaConfig struct {
	TempDir          string        `yaml:"temp_dir" mapstructure:"temp_dir"`
	DownloadTimeout  time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	TranscodeTimeout time.Duration `yaml:"transcode_timeout" mapstructure:"transcode_timeout"`
	// MaxGifSizeMB rejects animated candidates larger than this before
	// download. Zero disables the probe.
	MaxGifSizeMB float64 `yaml:"max_gif_size_mb" mapstructure:"max_gif_size_mb"`
}

// FingerprintConfig holds the fingerprinting settings.
type FingerprintConfig struct {
	// HashSize is the side of the difference-hash grid; the perceptual
	// hash carries HashSize*HashSize bits.
	HashSize   int  `yaml:"hash_size" mapstructure:"hash_size"`
	OCREnabled bool `yaml:"ocr_enabled" mapstructure:"ocr_enabled"`
	// OCRTimeout bounds a single tesseract run.
	OCRTimeout time.Duration `yaml:"ocr_timeout" mapstructure:"ocr_timeout"`
}

// FilterConfig holds the duplicate/policy filter settings.
type FilterConfig struct {
	// HashThreshold rejects a candidate whose Hamming distance to any
	// historical hash is strictly below it. Zero disables hash screening.
	HashThreshold  int      `yaml:"hash_threshold" mapstructure:"hash_threshold"`
	TitleBlocklist []string `yaml:"title_blocklist" mapstructure:"title_blocklist"`
}

// ScheduleConfig holds the publish cadence settings.
type ScheduleConfig struct {
	PostsPerDay   int           `yaml:"posts_per_day" mapstructure:"posts_per_day"`
	StartDelay    time.Duration `yaml:"start_delay" mapstructure:"start_delay"`
	PreloadLead   time.Duration `yaml:"preload_lead" mapstructure:"preload_lead"`
	RetentionDays int           `yaml:"retention_days" mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Logging     *logger.Config     `yaml:"logging" mapstructure:"logging"`
	Server      *ServerConfig      `yaml:"server" mapstructure:"server"`
	Database    *DatabaseConfig    `yaml:"database" mapstructure:"database"`
	Source      *SourceConfig      `yaml:"source" mapstructure:"source"`
	Telegram    *TelegramConfig    `yaml:"telegram" mapstructure:"telegram"`
	Media       *MediaConfig       `yaml:"media" mapstructure:"media"`
	Fingerprint *FingerprintConfig `yaml:"fingerprint" mapstructure:"fingerprint"`
	Filter      *FilterConfig      `yaml:"filter" mapstructure:"filter"`
	Schedule    *ScheduleConfig    `yaml:"schedule" mapstructure:"schedule"`
}

// Load unmarshals the configuration from an initialized viper instance,
// applies defaults and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	if cfg.Logging == nil {
		cfg.Logging = &logger.Config{Level: "info"}
	}
	if cfg.Server == nil {
		cfg.Server = &ServerConfig{}
	}
	if cfg.Database == nil {
		cfg.Database = &DatabaseConfig{}
	}
	if cfg.Source == nil {
		cfg.Source = &SourceConfig{}
	}
	if cfg.Telegram == nil {
		cfg.Telegram = &TelegramConfig{}
	}
	if cfg.Media == nil {
		cfg.Media = &MediaConfig{}
	}
	if cfg.Fingerprint == nil {
		cfg.Fingerprint = &FingerprintConfig{}
	}
	if cfg.Filter == nil {
		cfg.Filter = &FilterConfig{HashThreshold: defaultHashThreshold}
	}
	if cfg.Schedule == nil {
		cfg.Schedule = &ScheduleConfig{}
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultServerIdleTimeout
	}

	if cfg.Source.RequestLimit == 0 {
		cfg.Source.RequestLimit = defaultRequestLimit
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = defaultUserAgent
	}
	if cfg.Source.MaxRetries == 0 {
		cfg.Source.MaxRetries = defaultMaxRetries
	}
	if cfg.Source.RetryBase == 0 {
		cfg.Source.RetryBase = defaultRetryBaseDelay
	}
	if cfg.Source.RetryMax == 0 {
		cfg.Source.RetryMax = defaultRetryMaxDelay
	}

	if cfg.Media.TempDir == "" {
		cfg.Media.TempDir = defaultTempDir
	}
	if cfg.Media.DownloadTimeout == 0 {
		cfg.Media.DownloadTimeout = defaultDownloadTimeout
	}
	if cfg.Media.TranscodeTimeout == 0 {
		cfg.Media.TranscodeTimeout = defaultTranscodeTimeout
	}

	if cfg.Fingerprint.HashSize == 0 {
		cfg.Fingerprint.HashSize = defaultHashSize
	}
	if cfg.Fingerprint.OCRTimeout == 0 {
		cfg.Fingerprint.OCRTimeout = defaultOCRTimeout
	}

	if cfg.Schedule.PostsPerDay == 0 {
		cfg.Schedule.PostsPerDay = defaultPostsPerDay
	}
	if cfg.Schedule.PreloadLead == 0 {
		cfg.Schedule.PreloadLead = defaultPreloadLead
	}
	if cfg.Schedule.RetentionDays == 0 {
		cfg.Schedule.RetentionDays = defaultRetentionDays
	}

	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Schedule.PostsPerDay <= 0 || c.Schedule.PostsPerDay > maxPostsPerDay {
		return fmt.Errorf("schedule: posts_per_day must be between 1 and %d, got %d", maxPostsPerDay, c.Schedule.PostsPerDay)
	}
	if c.Schedule.StartDelay < 0 {
		return errors.New("schedule: start_delay must not be negative")
	}
	if c.Schedule.PreloadLead < 0 {
		return errors.New("schedule: preload_lead must not be negative")
	}
	if c.Schedule.RetentionDays <= 0 {
		return fmt.Errorf("schedule: retention_days must be positive, got %d", c.Schedule.RetentionDays)
	}
	if c.Fingerprint.HashSize <= 0 {
		return fmt.Errorf("fingerprint: hash_size must be positive, got %d", c.Fingerprint.HashSize)
	}
	if c.Fingerprint.OCRTimeout < 0 {
		return errors.New("fingerprint: ocr_timeout must not be negative")
	}
	if c.Filter.HashThreshold < 0 {
		return fmt.Errorf("filter: hash_threshold must not be negative, got %d", c.Filter.HashThreshold)
	}
	if c.Media.MaxGifSizeMB < 0 {
		return errors.New("media: max_gif_size_mb must not be negative")
	}
	if len(c.Source.Subreddits) == 0 {
		return errors.New("source: at least one subreddit is required")
	}
	return nil
}
