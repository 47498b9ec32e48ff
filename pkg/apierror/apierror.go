// Package apierror classifies failed Tenable.io API responses.
//
// Every failing response becomes an *Error whose Kind is one of the package
// sentinels, so callers branch with errors.Is regardless of how deeply the
// error was wrapped:
//
//	if errors.Is(err, apierror.ErrNotFound) { ... }
//
// The concrete *Error keeps the status code, the request UUID assigned by the
// platform, and the response itself for further inspection.
package apierror

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// RequestUUIDHeader carries the identifier used to trace a request through
// the Tenable.io infrastructure. Non-Tenable.io products do not send it.
const RequestUUIDHeader = "X-Request-Uuid"

// DefaultMaxBody bounds how much of a failed response body is retained.
const DefaultMaxBody int64 = 1 << 20

// Error describes a response the API did not answer as expected.
type Error struct {
	Kind     error
	Code     int
	UUID     string
	Body     []byte
	Response *http.Response
}

// New builds an Error from resp, retaining up to DefaultMaxBody bytes of the body.
func New(resp *http.Response) *Error {
	return NewWithLimit(resp, DefaultMaxBody)
}

// NewWithLimit builds an Error from resp, retaining up to limit bytes of the body.
// The original body is closed and replaced with a re-readable copy of what was
// retained, so Response remains usable after the error is constructed.
func NewWithLimit(resp *http.Response, limit int64) *Error {
	if resp == nil {
		return &Error{Kind: ErrUnknown}
	}

	e := &Error{
		Kind:     MapStatus(resp.StatusCode),
		Code:     resp.StatusCode,
		UUID:     resp.Header.Get(RequestUUIDHeader),
		Response: resp,
	}

	if resp.Body != nil {
		if limit <= 0 {
			limit = DefaultMaxBody
		}
		e.Body, _ = io.ReadAll(io.LimitReader(resp.Body, limit))
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(e.Body))
	}

	return e
}

// Check returns nil for successful responses and an *Error otherwise.
func Check(resp *http.Response) error {
	if resp != nil && resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	return New(resp)
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d %s", e.UUID, e.Code, bytes.TrimSpace(e.Body))
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// RequestID parses the request UUID. It reports false when the header was
// absent or not a valid UUID.
func (e *Error) RequestID() (uuid.UUID, bool) {
	if e.UUID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(e.UUID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
