package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tenable/pkg/apierror"
)

// Logger returns middleware that logs each request's method, URI, status,
// platform request UUID, and duration. Every request gets a client-side
// correlation id so its start and completion lines can be matched.
func Logger(logger *slog.Logger) Func {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			id := uuid.NewString()
			start := time.Now()

			logger.Debug(
				"request started",
				"id", id,
				"method", r.Method,
				"uri", r.URL.RequestURI(),
			)

			resp, err := next.RoundTrip(r)
			if err != nil {
				logger.Error(
					"request failed",
					"id", id,
					"method", r.Method,
					"uri", r.URL.RequestURI(),
					"duration", time.Since(start),
					"error", err,
				)
				return nil, err
			}

			logger.Info(
				"request",
				"id", id,
				"method", r.Method,
				"uri", r.URL.RequestURI(),
				"status", resp.StatusCode,
				"request_uuid", resp.Header.Get(apierror.RequestUUIDHeader),
				"duration", time.Since(start),
			)
			return resp, nil
		})
	}
}
