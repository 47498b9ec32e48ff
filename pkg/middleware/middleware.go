// Package middleware composes client-side http.RoundTripper middleware.
package middleware

import "net/http"

// Func wraps a RoundTripper with additional behavior.
type Func func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// System manages an ordered stack of RoundTripper middleware.
type System interface {
	Use(mw Func)
	Apply(base http.RoundTripper) http.RoundTripper
}

type mw struct {
	stack []Func
}

// New creates an empty middleware System.
func New() System {
	return &mw{
		stack: []Func{},
	}
}

func (m *mw) Use(fn Func) {
	m.stack = append(m.stack, fn)
}

// Apply wraps base so the first middleware registered is the outermost.
// A nil base uses http.DefaultTransport.
func (m *mw) Apply(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(m.stack) - 1; i >= 0; i-- {
		base = m.stack[i](base)
	}
	return base
}

// Headers sets each header in h on outgoing requests, replacing existing values.
func Headers(h http.Header) Func {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())
			for key, values := range h {
				r.Header.Del(key)
				for _, v := range values {
					r.Header.Add(key, v)
				}
			}
			return next.RoundTrip(r)
		})
	}
}
