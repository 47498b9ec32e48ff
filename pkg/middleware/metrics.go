package middleware

import (
	"net/http"
	"time"

	"github.com/JaimeStill/tenable/pkg/metrics"
)

// Metrics returns middleware that records request counts and latency in c.
func Metrics(c *metrics.Collector) Func {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			code := 0
			if resp != nil {
				code = resp.StatusCode
			}
			c.ObserveRequest(r.Method, r.URL.Path, code, time.Since(start))

			return resp, err
		})
	}
}
