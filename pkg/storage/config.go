package storage

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds the remote upload source backends. Local files need no configuration.
type Config struct {
	Azure AzureConfig `toml:"azure"`
	S3    S3Config    `toml:"s3"`
}

// AzureConfig holds Azure Blob Storage connection parameters. A connection
// string takes precedence; otherwise AccountURL is used with the default
// Azure credential chain.
type AzureConfig struct {
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
}

// S3Config holds Amazon S3 connection parameters. Without static keys the
// default AWS credential chain is used.
type S3Config struct {
	Enabled         bool   `toml:"enabled"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	UsePathStyle    bool   `toml:"use_path_style"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	AzureConnectionString string
	AzureAccountURL       string
	S3Enabled             string
	S3Region              string
	S3Endpoint            string
	S3AccessKeyID         string
	S3SecretAccessKey     string
	S3UsePathStyle        string
}

// Enabled reports whether Azure Blob Storage is configured.
func (c *AzureConfig) Enabled() bool {
	return c.ConnectionString != "" || c.AccountURL != ""
}

// Finalize applies environment variable overrides and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Azure.ConnectionString != "" {
		c.Azure.ConnectionString = overlay.Azure.ConnectionString
	}
	if overlay.Azure.AccountURL != "" {
		c.Azure.AccountURL = overlay.Azure.AccountURL
	}
	if overlay.S3.Enabled {
		c.S3.Enabled = true
	}
	if overlay.S3.Region != "" {
		c.S3.Region = overlay.S3.Region
	}
	if overlay.S3.Endpoint != "" {
		c.S3.Endpoint = overlay.S3.Endpoint
	}
	if overlay.S3.AccessKeyID != "" {
		c.S3.AccessKeyID = overlay.S3.AccessKeyID
	}
	if overlay.S3.SecretAccessKey != "" {
		c.S3.SecretAccessKey = overlay.S3.SecretAccessKey
	}
	if overlay.S3.UsePathStyle {
		c.S3.UsePathStyle = true
	}
}

func (c *Config) loadEnv(env *Env) {
	str := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	flag := func(name string, dst *bool) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str(env.AzureConnectionString, &c.Azure.ConnectionString)
	str(env.AzureAccountURL, &c.Azure.AccountURL)
	flag(env.S3Enabled, &c.S3.Enabled)
	str(env.S3Region, &c.S3.Region)
	str(env.S3Endpoint, &c.S3.Endpoint)
	str(env.S3AccessKeyID, &c.S3.AccessKeyID)
	str(env.S3SecretAccessKey, &c.S3.SecretAccessKey)
	flag(env.S3UsePathStyle, &c.S3.UsePathStyle)
}

func (c *Config) validate() error {
	if c.Azure.ConnectionString == "" && c.Azure.AccountURL != "" {
		u, err := url.Parse(c.Azure.AccountURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid azure account_url: %q", c.Azure.AccountURL)
		}
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return fmt.Errorf("s3 access_key_id and secret_access_key must be set together")
	}
	if c.S3.Endpoint != "" {
		if _, err := url.Parse(c.S3.Endpoint); err != nil {
			return fmt.Errorf("invalid s3 endpoint: %w", err)
		}
	}
	return nil
}
