package archive

import (
	"errors"
	"fmt"
)

// Sentinel errors for archive building.
var (
	// ErrMissingInput indicates the platforms root directory does not exist.
	ErrMissingInput = errors.New("platforms directory not found")

	// ErrNoArchives indicates zero archives were created across all platforms.
	ErrNoArchives = errors.New("no platform archives created")
)

// WriteError reports a failure while writing one platform's archive.
// Write failures are recoverable per platform: the builder records the
// error and continues with the remaining platforms.
type WriteError struct {
	// Platform is the target whose archive failed.
	Platform Platform
	// Path is the destination archive path.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s archive %s: %v", e.Platform, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error { return e.Err }
