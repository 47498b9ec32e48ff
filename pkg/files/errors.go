package files

import "errors"

// ErrMissingField indicates the upload response did not name the stored file.
var ErrMissingField = errors.New("upload response missing fileuploaded field")

var errBodyFinished = errors.New("upload body finished")
