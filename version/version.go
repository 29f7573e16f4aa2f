// Package version validates and orders release version identifiers.
//
// A release version is a tag of the form vMAJOR.MINOR.PATCH with an
// optional -SNAPSHOT suffix. The tag form ("v1.2.3") and the numeric
// form ("1.2.3") convert losslessly in both directions.
package version

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// tagPattern is the accepted release version grammar.
// Pre-release forms other than -SNAPSHOT are rejected.
var tagPattern = regexp.MustCompile(`^v\d+\.\d+\.\d+(-SNAPSHOT)?$`)

// Version is a validated release version. The zero value is invalid;
// obtain instances through Validate or FromNumeric.
type Version struct {
	tag    string
	parsed *semver.Version
}

// Validate parses a version tag ("v1.2.3" or "v1.2.3-SNAPSHOT").
// Anything else fails with a *FormatError matching ErrInvalidFormat.
func Validate(input string) (Version, error) {
	if !tagPattern.MatchString(input) {
		return Version{}, &FormatError{Input: input}
	}
	parsed, err := semver.NewVersion(strings.TrimPrefix(input, "v"))
	if err != nil {
		// Unreachable for inputs that pass the grammar; kept as a guard.
		return Version{}, &FormatError{Input: input}
	}
	return Version{tag: input, parsed: parsed}, nil
}

// FromNumeric parses a numeric version string ("1.2.3") by prefixing
// it with "v" and validating the result. Inputs that already carry the
// prefix are accepted unchanged.
func FromNumeric(input string) (Version, error) {
	if strings.HasPrefix(input, "v") {
		return Validate(input)
	}
	return Validate("v" + input)
}

// Tag returns the tag form ("v1.2.3").
func (v Version) Tag() string { return v.tag }

// Numeric returns the numeric form ("1.2.3"), preserving any
// -SNAPSHOT suffix.
func (v Version) Numeric() string { return strings.TrimPrefix(v.tag, "v") }

// Snapshot reports whether this is a -SNAPSHOT pre-release.
func (v Version) Snapshot() bool { return strings.HasSuffix(v.tag, "-SNAPSHOT") }

// String returns the tag form.
func (v Version) String() string { return v.tag }

// Compare orders two versions by (major, minor, patch), never by
// string comparison. A snapshot sorts before its release.
func Compare(a, b Version) int {
	return a.parsed.Compare(b.parsed)
}

// SortDescending sorts versions newest first, in place.
func SortDescending(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) > 0
	})
}

// FormatError reports a string that does not match the release
// version grammar.
type FormatError struct {
	// Input is the offending string as given.
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid version format %q (expected vMAJOR.MINOR.PATCH or vMAJOR.MINOR.PATCH-SNAPSHOT)", e.Input)
}

// Is matches ErrInvalidFormat for errors.Is assertions.
func (e *FormatError) Is(target error) bool { return target == ErrInvalidFormat }
