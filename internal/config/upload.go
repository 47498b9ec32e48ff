package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/tenable/pkg/formatting"
)

const (
	EnvUploadConcurrency = "TIO_UPLOAD_CONCURRENCY"
	EnvUploadMaxSize     = "TIO_UPLOAD_MAX_SIZE"
	EnvUploadEncrypted   = "TIO_UPLOAD_ENCRYPTED"
)

// UploadConfig controls batch uploads.
type UploadConfig struct {
	Concurrency int    `toml:"concurrency"`
	MaxSize     string `toml:"max_size"`
	Encrypted   bool   `toml:"encrypted"`
}

// MaxSizeBytes returns MaxSize as a byte count.
func (c *UploadConfig) MaxSizeBytes() int64 {
	n, err := formatting.ParseBytes(c.MaxSize)
	if err != nil {
		return 2 << 30
	}
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *UploadConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *UploadConfig) Merge(overlay *UploadConfig) {
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.MaxSize != "" {
		c.MaxSize = overlay.MaxSize
	}
	if overlay.Encrypted {
		c.Encrypted = true
	}
}

func (c *UploadConfig) loadDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.MaxSize == "" {
		c.MaxSize = "2GB"
	}
}

func (c *UploadConfig) loadEnv() {
	if v := os.Getenv(EnvUploadConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
	if v := os.Getenv(EnvUploadMaxSize); v != "" {
		c.MaxSize = v
	}
	if v := os.Getenv(EnvUploadEncrypted); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Encrypted = b
		}
	}
}

func (c *UploadConfig) validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency: %d", c.Concurrency)
	}
	if n, err := formatting.ParseBytes(c.MaxSize); err != nil {
		return fmt.Errorf("invalid max_size: %w", err)
	} else if n <= 0 {
		return fmt.Errorf("invalid max_size: %q", c.MaxSize)
	}
	return nil
}
