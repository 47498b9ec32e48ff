package config

import (
	"fmt"
	"net/url"
	"os"
)

const (
	EnvMetricsPushGateway = "TIO_METRICS_PUSHGATEWAY"
	EnvMetricsJob         = "TIO_METRICS_JOB"
)

// MetricsConfig controls where run metrics are pushed. An empty PushGateway
// disables the push.
type MetricsConfig struct {
	Namespace   string `toml:"namespace"`
	PushGateway string `toml:"pushgateway"`
	Job         string `toml:"job"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *MetricsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *MetricsConfig) Merge(overlay *MetricsConfig) {
	if overlay.Namespace != "" {
		c.Namespace = overlay.Namespace
	}
	if overlay.PushGateway != "" {
		c.PushGateway = overlay.PushGateway
	}
	if overlay.Job != "" {
		c.Job = overlay.Job
	}
}

func (c *MetricsConfig) loadDefaults() {
	if c.Namespace == "" {
		c.Namespace = "tenable"
	}
	if c.Job == "" {
		c.Job = "tio"
	}
}

func (c *MetricsConfig) loadEnv() {
	if v := os.Getenv(EnvMetricsPushGateway); v != "" {
		c.PushGateway = v
	}
	if v := os.Getenv(EnvMetricsJob); v != "" {
		c.Job = v
	}
}

func (c *MetricsConfig) validate() error {
	if c.PushGateway == "" {
		return nil
	}
	u, err := url.Parse(c.PushGateway)
	if err != nil {
		return fmt.Errorf("invalid pushgateway: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid pushgateway %q: scheme must be http or https", c.PushGateway)
	}
	return nil
}
