// Package archive builds per-platform binary archives.
//
// Each supported platform has a conventional archive format: zip for
// Windows-family targets, tar.gz for everything else. The set of
// platforms is fixed at compile time.
package archive

import (
	"path/filepath"
	"strings"
)

// Format tags an archive's on-disk encoding.
type Format string

const (
	// FormatTarGz is a gzip-compressed tarball.
	FormatTarGz Format = "tar.gz"
	// FormatZip is a deflate-compressed zip file.
	FormatZip Format = "zip"
)

// Platform identifies one build target as "{os}-{arch}".
type Platform string

// Supported platform targets, in build order.
const (
	LinuxAmd64   Platform = "linux-amd64"
	LinuxArm64   Platform = "linux-arm64"
	WindowsAmd64 Platform = "windows-amd64"
	DarwinAmd64  Platform = "darwin-amd64"
)

// Platforms returns the closed set of supported platform targets.
func Platforms() []Platform {
	return []Platform{LinuxAmd64, LinuxArm64, WindowsAmd64, DarwinAmd64}
}

// Format returns the conventional archive format for the platform.
func (p Platform) Format() Format {
	if strings.HasPrefix(string(p), "windows") {
		return FormatZip
	}
	return FormatTarGz
}

// ArchiveName returns the archive filename for the platform,
// e.g. "linux-amd64.tar.gz" or "windows-amd64.zip".
func (p Platform) ArchiveName() string {
	return string(p) + "." + string(p.Format())
}

// FormatOf derives the archive format from a filename, or "" when the
// extension is not a recognized archive format.
func FormatOf(name string) Format {
	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		return FormatTarGz
	case strings.HasSuffix(name, ".zip"):
		return FormatZip
	default:
		return ""
	}
}

// Archive is a handle to a sealed archive file on disk.
type Archive struct {
	// Path is the absolute or caller-relative file path.
	Path string
	// Format is the archive encoding.
	Format Format

	size int64 // lazily populated by Size
}

// Name returns the archive filename.
func (a *Archive) Name() string { return filepath.Base(a.Path) }

// Size returns the archive file size in bytes, computed on first call.
func (a *Archive) Size() int64 {
	if a.size == 0 {
		if info, err := statFile(a.Path); err == nil {
			a.size = info.Size()
		}
	}
	return a.size
}
