package apierror

import (
	"errors"
	"net/http"
)

// Error kinds keyed to the HTTP status of a failed response.
var (
	// ErrInvalidInput indicates incomplete or invalid information was sent to the API (400).
	ErrInvalidInput = errors.New("invalid input")
	// ErrPermission indicates the caller lacks the permissions required for the request (403).
	ErrPermission = errors.New("permission denied")
	// ErrNotFound indicates the requested object does not exist or cannot be retrieved (404).
	ErrNotFound = errors.New("not found")
	// ErrServer indicates the request could not be completed due to a server-side issue (500).
	ErrServer = errors.New("server error")
	// ErrUnknown is the fallback for any other failing status.
	ErrUnknown = errors.New("unknown error")

	// ErrUnexpectedValue indicates a parameter value outside its accepted bounds.
	ErrUnexpectedValue = errors.New("unexpected value")
)

// MapStatus maps an HTTP status code to its error kind.
func MapStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrInvalidInput
	case http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusInternalServerError:
		return ErrServer
	}
	return ErrUnknown
}

// Exit codes returned by MapExitCode.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitBadValue     = 2
	ExitInvalidInput = 3
	ExitPermission   = 4
	ExitNotFound     = 5
	ExitServer       = 6
	ExitUnknown      = 7
)

// MapExitCode maps API errors to process exit codes.
func MapExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUnexpectedValue):
		return ExitBadValue
	case errors.Is(err, ErrInvalidInput):
		return ExitInvalidInput
	case errors.Is(err, ErrPermission):
		return ExitPermission
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrServer):
		return ExitServer
	case errors.Is(err, ErrUnknown):
		return ExitUnknown
	}
	return ExitFailure
}
