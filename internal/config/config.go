package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/tenable/pkg/session"
	"github.com/JaimeStill/tenable/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvFile      = ".env"
	EnvFileLocal = ".env.local"

	EnvTioEnv     = "TIO_ENV"
	EnvTioVersion = "TIO_VERSION"
)

var sessionEnv = &session.Env{
	URL:          "TIO_URL",
	AccessKey:    "TIO_ACCESS_KEY",
	SecretKey:    "TIO_SECRET_KEY",
	Timeout:      "TIO_TIMEOUT",
	UserAgent:    "TIO_USER_AGENT",
	MaxErrorBody: "TIO_MAX_ERROR_BODY",
}

var storageEnv = &storage.Env{
	AzureConnectionString: "TIO_STORAGE_AZURE_CONNECTION_STRING",
	AzureAccountURL:       "TIO_STORAGE_AZURE_ACCOUNT_URL",
	S3Enabled:             "TIO_STORAGE_S3_ENABLED",
	S3Region:              "TIO_STORAGE_S3_REGION",
	S3Endpoint:            "TIO_STORAGE_S3_ENDPOINT",
	S3AccessKeyID:         "TIO_STORAGE_S3_ACCESS_KEY_ID",
	S3SecretAccessKey:     "TIO_STORAGE_S3_SECRET_ACCESS_KEY",
	S3UsePathStyle:        "TIO_STORAGE_S3_USE_PATH_STYLE",
}

// Config is the root configuration for the tio command.
type Config struct {
	Session session.Config `toml:"session"`
	Storage storage.Config `toml:"storage"`
	Upload  UploadConfig   `toml:"upload"`
	Log     LogConfig      `toml:"log"`
	Metrics MetricsConfig  `toml:"metrics"`
	Version string         `toml:"version"`
}

// Env returns the TIO_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvTioEnv); env != "" {
		return env
	}
	return "local"
}

// Load reads .env files, the base config at path (BaseConfigFile when empty),
// applies any environment overlay, and finalizes all values. A missing base
// file is not an error unless path was given explicitly.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = BaseConfigFile
	}

	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if explicit {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if overlay := overlayPath(); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Session.Merge(&overlay.Session)
	c.Storage.Merge(&overlay.Storage)
	c.Upload.Merge(&overlay.Upload)
	c.Log.Merge(&overlay.Log)
	c.Metrics.Merge(&overlay.Metrics)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.Session.Finalize(sessionEnv); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Upload.Finalize(); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := c.Log.Finalize(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Metrics.Finalize(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvTioVersion); v != "" {
		c.Version = v
	}
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvTioEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadEnvFiles loads .env without overriding the process environment, then
// .env.local with override.
func loadEnvFiles() error {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", EnvFile, err)
	}
	if err := godotenv.Overload(EnvFileLocal); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", EnvFileLocal, err)
	}
	return nil
}
