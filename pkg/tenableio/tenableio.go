// Package tenableio assembles the Tenable.io endpoint wrappers over a shared session.
package tenableio

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/tenable/pkg/files"
	"github.com/JaimeStill/tenable/pkg/metrics"
	"github.com/JaimeStill/tenable/pkg/session"
)

// Client is the entry point for Tenable.io API calls.
type Client struct {
	Session *session.Session
	Files   *files.API
}

// New creates a Client from a finalized session config. m may be nil.
func New(cfg *session.Config, logger *slog.Logger, m *metrics.Collector, opts ...session.Option) (*Client, error) {
	if m != nil {
		opts = append(opts, session.WithMetrics(m))
	}

	s, err := session.New(cfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Client{
		Session: s,
		Files:   files.New(s, logger, m),
	}, nil
}
