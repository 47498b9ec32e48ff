// Package infrastructure assembles the systems a tio command run depends on:
// lifecycle coordination, logging, metrics, the Tenable.io client, and upload
// sources.
package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JaimeStill/tenable/internal/config"
	"github.com/JaimeStill/tenable/pkg/lifecycle"
	"github.com/JaimeStill/tenable/pkg/metrics"
	"github.com/JaimeStill/tenable/pkg/storage"
	"github.com/JaimeStill/tenable/pkg/tenableio"
)

// Infrastructure holds the core systems shared by tio commands.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Collector
	Client    *tenableio.Client
	Storage   *storage.Resolver

	push config.MetricsConfig
}

// New creates an Infrastructure from the application configuration. Logs are
// written to logOut. Cancelling ctx cancels the lifecycle context.
func New(ctx context.Context, cfg *config.Config, logOut io.Writer) (*Infrastructure, error) {
	lc := lifecycle.New(ctx)
	logger := cfg.Log.Logger(logOut)

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(cfg.Metrics.Namespace, reg)
	if err != nil {
		return nil, fmt.Errorf("metrics init failed: %w", err)
	}

	client, err := tenableio.New(&cfg.Session, logger, collector)
	if err != nil {
		return nil, fmt.Errorf("client init failed: %w", err)
	}

	store, err := storage.New(lc.Context(), &cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Registry:  reg,
		Metrics:   collector,
		Client:    client,
		Storage:   store,
		push:      cfg.Metrics,
	}, nil
}

// PushMetrics sends the registry to the configured Pushgateway. It is a no-op
// when no gateway is configured.
func (i *Infrastructure) PushMetrics(ctx context.Context) error {
	if i.push.PushGateway == "" {
		return nil
	}

	err := push.New(i.push.PushGateway, i.push.Job).
		Gatherer(i.Registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}

	i.Logger.Debug("metrics pushed", "gateway", i.push.PushGateway, "job", i.push.Job)
	return nil
}
