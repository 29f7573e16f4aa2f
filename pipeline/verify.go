package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cassandragargoyle/shipwright/archive"
)

// ErrNoReleaseArchives reports an artifact set with nothing to ship.
var ErrNoReleaseArchives = errors.New("no release archives found")

// VerifyReport summarizes one artifact-set verification.
type VerifyReport struct {
	// ReleaseArchives are the release archive filenames found.
	ReleaseArchives []string `json:"release_archives"`
	// ChecksumFiles are the checksum filenames found.
	ChecksumFiles []string `json:"checksum_files"`
	// Verified is the number of checksum entries validated.
	Verified int `json:"verified"`
}

// VerifyDist checks the release artifact set in distDir: at least one
// release archive for the product must exist, and every checksum file
// present must validate. A missing checksums file is not an error
// here; the pipeline generates one.
func VerifyDist(distDir, product string) (*VerifyReport, error) {
	report, err := scanDist(distDir, product)
	if err != nil {
		return report, err
	}

	for _, name := range report.ChecksumFiles {
		verified, err := verifyChecksums(filepath.Join(distDir, name), distDir)
		if err != nil {
			return report, fmt.Errorf("verify %s: %w", name, err)
		}
		report.Verified += verified
	}
	return report, nil
}

// scanDist inventories distDir without touching checksum contents.
func scanDist(distDir, product string) (*VerifyReport, error) {
	entries, err := os.ReadDir(distDir)
	if err != nil {
		return nil, fmt.Errorf("dist directory not found: %w", err)
	}

	report := &VerifyReport{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.Contains(name, "checksums"):
			report.ChecksumFiles = append(report.ChecksumFiles, name)
		case strings.HasPrefix(name, product+"_") && archive.FormatOf(name) != "":
			report.ReleaseArchives = append(report.ReleaseArchives, name)
		}
	}

	if len(report.ReleaseArchives) == 0 {
		return report, ErrNoReleaseArchives
	}
	return report, nil
}

// releaseArchivePaths resolves the report's archive names to paths.
func (r *VerifyReport) releaseArchivePaths(distDir string) []string {
	paths := make([]string, len(r.ReleaseArchives))
	for i, name := range r.ReleaseArchives {
		paths[i] = filepath.Join(distDir, name)
	}
	return paths
}
