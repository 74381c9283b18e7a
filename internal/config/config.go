// Package config loads the studio-portrait configuration from YAML and the
// environment, and validates it before any component is built.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"studio-portrait/internal/algorithms"
	"studio-portrait/internal/core"
	pio "studio-portrait/internal/io"
)

// Config is the application configuration
type Config struct {
	Logging      LoggingConfig             `yaml:"logging"`
	Detector     DetectorConfig            `yaml:"detector"`
	Segmentation algorithms.SegmentParams  `yaml:"segmentation"`
	Bokeh        algorithms.BokehParams    `yaml:"bokeh"`
	Texture      algorithms.TextureParams  `yaml:"texture"`
	Tone         algorithms.ToneParams     `yaml:"tone"`
	Contrast     algorithms.ContrastParams `yaml:"contrast"`
	Metrics      MetricsConfig             `yaml:"metrics"`
	Server       ServerConfig              `yaml:"server"`
	Cache        CacheConfig               `yaml:"cache"`
	Queue        QueueConfig               `yaml:"queue"`
	Storage      StorageConfig             `yaml:"storage"`
	Database     DatabaseConfig            `yaml:"database"`
	Sentry       SentryConfig              `yaml:"sentry"`
}

type LoggingConfig struct {
	// Debug switches to human readable text output
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
}

type DetectorConfig struct {
	// CascadePath is the Haar cascade XML. Empty searches the OpenCV install dirs.
	CascadePath string                  `yaml:"cascadePath"`
	Params      algorithms.DetectParams `yaml:"params"`
}

type MetricsConfig struct {
	Collect bool `yaml:"collect"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr" validate:"required"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes" validate:"gte=1024"`
	JPEGQuality  int    `yaml:"jpegQuality" validate:"gte=1,lte=100"`
}

type CacheConfig struct {
	Enabled     bool          `yaml:"enabled"`
	NumCounters int64         `yaml:"numCounters" validate:"gte=1"`
	MaxCost     int64         `yaml:"maxCost" validate:"gte=1"`
	TTL         time.Duration `yaml:"ttl"`
}

type QueueConfig struct {
	RedisAddr   string `yaml:"redisAddr"`
	Concurrency int    `yaml:"concurrency" validate:"gte=1"`
	Queue       string `yaml:"queue" validate:"required"`
}

type StorageConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UsePathStyle    bool   `yaml:"usePathStyle"`
	// Enabled turns on s3:// handles
	Enabled bool `yaml:"enabled"`
}

type DatabaseConfig struct {
	// URL is a PostgreSQL connection string. Empty disables the run ledger.
	URL string `yaml:"url"`
}

type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Logging.Level = "info"

	cfg.Detector.Params = algorithms.DefaultDetectParams()
	cfg.Segmentation = algorithms.DefaultSegmentParams()
	cfg.Bokeh = algorithms.DefaultBokehParams()
	cfg.Texture = algorithms.DefaultTextureParams()
	cfg.Tone = algorithms.DefaultToneParams()
	cfg.Contrast = algorithms.DefaultContrastParams()

	cfg.Server.Addr = ":8080"
	cfg.Server.MaxBodyBytes = 32 << 20
	cfg.Server.JPEGQuality = 95

	cfg.Cache.Enabled = true
	cfg.Cache.NumCounters = 1000
	cfg.Cache.MaxCost = 256 << 20
	cfg.Cache.TTL = 30 * time.Minute

	cfg.Queue.RedisAddr = "127.0.0.1:6379"
	cfg.Queue.Concurrency = runtime.NumCPU()
	cfg.Queue.Queue = "portraits"

	cfg.Sentry.Environment = "development"

	return cfg
}

// LoadConfig loads configuration from a YAML file, then applies environment
// overrides and validates the result. A missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides deployment settings from the environment
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("STUDIO_CASCADE_PATH"); v != "" {
		c.Detector.CascadePath = v
	}
	if v := getenv("STUDIO_REDIS_ADDR"); v != "" {
		c.Queue.RedisAddr = v
	}
	if v := getenv("STUDIO_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := getenv("SENTRY_DSN"); v != "" {
		c.Sentry.DSN = v
	}
	if v := getenv("STUDIO_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// Validate checks every section against its constraints
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Options converts the stage sections into pipeline options
func (c *Config) Options() core.Options {
	return core.Options{
		Detect:         c.Detector.Params,
		Segment:        c.Segmentation,
		Bokeh:          c.Bokeh,
		Texture:        c.Texture,
		Tone:           c.Tone,
		Contrast:       c.Contrast,
		CollectMetrics: c.Metrics.Collect,
	}
}

// S3Options converts the storage section into client options
func (c *Config) S3Options() pio.S3Options {
	return pio.S3Options{
		Endpoint:        c.Storage.Endpoint,
		Region:          c.Storage.Region,
		AccessKeyID:     c.Storage.AccessKeyID,
		SecretAccessKey: c.Storage.SecretAccessKey,
		UsePathStyle:    c.Storage.UsePathStyle,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("odd", ValidateOdd)
	return v
}

// ValidateOdd accepts odd integers, as required by OpenCV kernel sizes
func ValidateOdd(fl validator.FieldLevel) bool {
	return fl.Field().Int()%2 == 1
}
