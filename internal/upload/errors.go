package upload

import "errors"

// ErrFileTooLarge indicates a source exceeds the configured maximum upload size.
var ErrFileTooLarge = errors.New("file exceeds maximum upload size")
