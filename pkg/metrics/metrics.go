// Package metrics records Prometheus metrics for Tenable.io client traffic.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the client metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	uploadBytes prometheus.Histogram
}

// New creates a Collector under namespace and registers it with reg.
func New(namespace string, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total API requests by method, path and response code.",
			},
			[]string{"method", "path", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "API request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		uploadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_bytes",
				Help:      "Size of uploaded files.",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
	}

	for _, col := range []prometheus.Collector{c.requests, c.duration, c.uploadBytes} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return c, nil
}

// ObserveRequest records one completed request. A code of 0 marks a
// transport failure with no response.
func (c *Collector) ObserveRequest(method, path string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	c.duration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveUpload records the size of an uploaded file.
func (c *Collector) ObserveUpload(n int64) {
	if c == nil {
		return
	}
	c.uploadBytes.Observe(float64(n))
}
