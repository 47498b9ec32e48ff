// Package session provides the HTTP plumbing shared by Tenable.io endpoint
// wrappers: base URL resolution, API key headers, middleware, and translation
// of failed responses into apierror values.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/JaimeStill/tenable/pkg/apierror"
	"github.com/JaimeStill/tenable/pkg/metrics"
	"github.com/JaimeStill/tenable/pkg/middleware"
)

// APIKeysHeader carries the static access and secret keys.
const APIKeysHeader = "X-ApiKeys"

// Session issues requests against a single Tenable.io base URL.
type Session struct {
	base         *url.URL
	client       *http.Client
	logger       *slog.Logger
	maxErrorBody int64
}

// Option customizes a Session during construction.
type Option func(*options)

type options struct {
	client  *http.Client
	stack   []middleware.Func
	metrics *metrics.Collector
}

// WithHTTPClient supplies the underlying client. Its Transport is wrapped,
// not replaced, by the session middleware. A zero Timeout is replaced by the
// configured timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithMiddleware appends RoundTripper middleware after the built-in stack.
func WithMiddleware(mws ...middleware.Func) Option {
	return func(o *options) {
		o.stack = append(o.stack, mws...)
	}
}

// WithMetrics records request metrics in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// New creates a Session from a finalized Config.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Session, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse session url: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := &http.Client{}
	if o.client != nil {
		c := *o.client
		client = &c
	}
	if client.Timeout == 0 {
		client.Timeout = cfg.TimeoutDuration()
	}

	logger = logger.With("system", "session")

	mw := middleware.New()
	mw.Use(middleware.Headers(defaultHeaders(cfg)))
	mw.Use(middleware.Logger(logger))
	if o.metrics != nil {
		mw.Use(middleware.Metrics(o.metrics))
	}
	for _, fn := range o.stack {
		mw.Use(fn)
	}
	client.Transport = mw.Apply(client.Transport)

	return &Session{
		base:         base,
		client:       client,
		logger:       logger,
		maxErrorBody: cfg.MaxErrorBodyBytes(),
	}, nil
}

// URL returns the absolute URL for an API path relative to the base URL.
func (s *Session) URL(path string) string {
	return s.base.JoinPath(path).String()
}

// Do sends a request to path. Responses with a status of 400 or above are
// returned as an *apierror.Error with the response body closed; otherwise the
// caller owns the response body.
func (s *Session) Do(
	ctx context.Context,
	method, path string,
	body io.Reader,
	header http.Header,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := apierror.NewWithLimit(resp, s.maxErrorBody)
		s.logger.Warn(
			"api error",
			"method", method,
			"path", path,
			"status", apiErr.Code,
			"request_uuid", apiErr.UUID,
		)
		return nil, apiErr
	}

	return resp, nil
}

// Get issues a GET request to path.
func (s *Session) Get(ctx context.Context, path string) (*http.Response, error) {
	return s.Do(ctx, http.MethodGet, path, nil, nil)
}

// Post issues a POST request to path with the given body and content type.
func (s *Session) Post(ctx context.Context, path string, body io.Reader, contentType string) (*http.Response, error) {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return s.Do(ctx, http.MethodPost, path, body, header)
}

// DecodeJSON decodes the response body into T and closes it.
func DecodeJSON[T any](resp *http.Response) (T, error) {
	var out T
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func defaultHeaders(cfg *Config) http.Header {
	h := http.Header{}
	h.Set("User-Agent", cfg.UserAgent)
	h.Set("Accept", "application/json")
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		h.Set(APIKeysHeader, fmt.Sprintf("accessKey=%s;secretKey=%s;", cfg.AccessKey, cfg.SecretKey))
	}
	return h
}
