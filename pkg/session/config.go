package session

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/JaimeStill/tenable/pkg/formatting"
)

// DefaultURL is the Tenable.io cloud endpoint.
const DefaultURL = "https://cloud.tenable.com"

// Config holds connection parameters for a Tenable.io API session.
type Config struct {
	URL          string `toml:"url"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	Timeout      string `toml:"timeout"`
	UserAgent    string `toml:"user_agent"`
	MaxErrorBody string `toml:"max_error_body"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL          string
	AccessKey    string
	SecretKey    string
	Timeout      string
	UserAgent    string
	MaxErrorBody string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// MaxErrorBodyBytes returns MaxErrorBody as a byte count.
func (c *Config) MaxErrorBodyBytes() int64 {
	n, err := formatting.ParseBytes(c.MaxErrorBody)
	if err != nil {
		return 1 << 20
	}
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.AccessKey != "" {
		c.AccessKey = overlay.AccessKey
	}
	if overlay.SecretKey != "" {
		c.SecretKey = overlay.SecretKey
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.UserAgent != "" {
		c.UserAgent = overlay.UserAgent
	}
	if overlay.MaxErrorBody != "" {
		c.MaxErrorBody = overlay.MaxErrorBody
	}
}

func (c *Config) loadDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Timeout == "" {
		c.Timeout = "5m"
	}
	if c.UserAgent == "" {
		c.UserAgent = "tenable-go"
	}
	if c.MaxErrorBody == "" {
		c.MaxErrorBody = "1MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(env.URL, &c.URL)
	set(env.AccessKey, &c.AccessKey)
	set(env.SecretKey, &c.SecretKey)
	set(env.Timeout, &c.Timeout)
	set(env.UserAgent, &c.UserAgent)
	set(env.MaxErrorBody, &c.MaxErrorBody)
}

func (c *Config) validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url scheme %q: must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", c.URL)
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("access_key and secret_key must be set together")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxErrorBody); err != nil {
		return fmt.Errorf("invalid max_error_body: %w", err)
	}
	return nil
}
