package main

import (
	"errors"

	"github.com/JaimeStill/tenable/internal/upload"
	"github.com/JaimeStill/tenable/pkg/apierror"
	"github.com/JaimeStill/tenable/pkg/storage"
)

const (
	exitOK    = apierror.ExitOK
	exitUsage = 64
)

// exitCode maps an error to a process status. Storage failures share codes
// with their API counterparts.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, storage.ErrNotFound):
		return apierror.ExitNotFound
	case errors.Is(err, storage.ErrForbidden):
		return apierror.ExitPermission
	case errors.Is(err, storage.ErrEmptyKey),
		errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, storage.ErrNotConfigured),
		errors.Is(err, upload.ErrFileTooLarge):
		return apierror.ExitBadValue
	}
	return apierror.MapExitCode(err)
}

// worstExit returns the highest exit code across results.
func worstExit(results []upload.Result) int {
	code := exitOK
	for _, r := range results {
		code = max(code, exitCode(r.Err))
	}
	return code
}
