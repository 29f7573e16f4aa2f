package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cassandragargoyle/shipwright/log"
)

// SkipReason explains why a platform produced no archive.
type SkipReason string

const (
	// SkipMissingDir means the platform subdirectory does not exist.
	SkipMissingDir SkipReason = "directory missing"
	// SkipEmptyDir means the platform subdirectory has no entries.
	SkipEmptyDir SkipReason = "directory empty"
	// SkipWriteFailed means archive creation failed and was recorded.
	SkipWriteFailed SkipReason = "write failed"
)

// Outcome records the result for a single platform.
type Outcome struct {
	Platform Platform
	// Archive is set when the platform's archive was created.
	Archive *Archive
	// Skip is set when the platform produced no archive.
	Skip SkipReason
	// Err carries the write error for SkipWriteFailed outcomes.
	Err error
}

// BuildResult aggregates per-platform outcomes for one builder run.
type BuildResult struct {
	// Created holds the archives actually written, in platform order.
	Created []*Archive
	// Outcomes holds one entry per known platform, in platform order.
	Outcomes []Outcome
}

// CreatedCount returns the number of archives created.
func (r *BuildResult) CreatedCount() int { return len(r.Created) }

// SkippedCount returns the number of platforms that produced no archive.
func (r *BuildResult) SkippedCount() int { return len(r.Outcomes) - len(r.Created) }

// Builder creates one archive per populated platform subdirectory.
type Builder struct {
	// PlatformsDir contains one subdirectory per platform target.
	PlatformsDir string
	// OutputDir receives the archives. Empty means PlatformsDir.
	OutputDir string

	logger *log.Logger
}

// NewBuilder creates a builder writing archives to outputDir.
// An empty outputDir defaults to platformsDir.
func NewBuilder(platformsDir, outputDir string, logger *log.Logger) *Builder {
	if outputDir == "" {
		outputDir = platformsDir
	}
	return &Builder{
		PlatformsDir: platformsDir,
		OutputDir:    outputDir,
		logger:       logger,
	}
}

// Build creates archives for every populated platform subdirectory.
//
// A missing or empty subdirectory is a skip, not a failure: a platform
// legitimately may not have been built this run. A write failure for
// one platform is recorded and the remaining platforms still build.
// Build fails only when the platforms root is missing (ErrMissingInput)
// or when zero archives were created across all platforms (ErrNoArchives).
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	if info, err := os.Stat(b.PlatformsDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, b.PlatformsDir)
	}
	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	result := &BuildResult{}
	for _, platform := range Platforms() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Outcomes = append(result.Outcomes, b.buildPlatform(platform))
	}

	for i := range result.Outcomes {
		if result.Outcomes[i].Archive != nil {
			result.Created = append(result.Created, result.Outcomes[i].Archive)
		}
	}

	if len(result.Created) == 0 {
		return result, ErrNoArchives
	}
	return result, nil
}

func (b *Builder) buildPlatform(platform Platform) Outcome {
	sourceDir := filepath.Join(b.PlatformsDir, string(platform))

	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		b.logger.Warn("platform directory not found", map[string]any{"platform": string(platform), "path": sourceDir})
		return Outcome{Platform: platform, Skip: SkipMissingDir}
	}

	entries, err := listSorted(sourceDir)
	if err == nil && len(entries) == 0 {
		b.logger.Warn("no files in platform directory", map[string]any{"platform": string(platform), "path": sourceDir})
		return Outcome{Platform: platform, Skip: SkipEmptyDir}
	}

	dest := filepath.Join(b.OutputDir, platform.ArchiveName())
	if err := Write(platform.Format(), sourceDir, dest); err != nil {
		// Remove any truncated partial output before moving on.
		_ = os.Remove(dest)
		writeErr := &WriteError{Platform: platform, Path: dest, Err: err}
		b.logger.Error("platform archive failed", map[string]any{"platform": string(platform), "error": err.Error()})
		return Outcome{Platform: platform, Skip: SkipWriteFailed, Err: writeErr}
	}

	created := &Archive{Path: dest, Format: platform.Format()}
	b.logger.Info("platform archive created", map[string]any{
		"platform": string(platform),
		"path":     dest,
		"bytes":    created.Size(),
	})
	return Outcome{Platform: platform, Archive: created}
}

// Discover returns the platform archives present in dir, in platform
// order. Used by injection to pick up archives from a previous run.
func Discover(dir string) []*Archive {
	var found []*Archive
	for _, platform := range Platforms() {
		path := filepath.Join(dir, platform.ArchiveName())
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			found = append(found, &Archive{Path: path, Format: platform.Format(), size: info.Size()})
		}
	}
	return found
}
