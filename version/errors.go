package version

import "errors"

// ErrInvalidFormat indicates a string that does not match the release
// version grammar. Use errors.Is(err, ErrInvalidFormat) for typed
// assertions; the concrete error is *FormatError.
var ErrInvalidFormat = errors.New("invalid version format")
