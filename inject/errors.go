// Package inject merges platform archives into release archives.
package inject

import (
	"errors"
	"fmt"
)

// ErrNoPlatformArchives indicates there was nothing to inject. Run
// returns it wrapped when the platforms directory is missing or empty;
// callers treat it as a skip with a warning, not a failure.
var ErrNoPlatformArchives = errors.New("no platform archives to inject")

// StepError reports a failure while processing one release archive.
// Failures are isolated per archive: siblings keep processing.
type StepError struct {
	// Op is the step that failed: "extract", "rewrite", or "swap".
	Op string
	// Archive is the release archive filename.
	Archive string
	// Err is the underlying error.
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Archive, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error { return e.Err }
