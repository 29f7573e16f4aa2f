package inject

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/cassandragargoyle/shipwright/archive"
	"github.com/cassandragargoyle/shipwright/log"
)

// MemberDir is the fixed top-level member path that holds platform
// archives inside every release archive after injection.
const MemberDir = "platforms"

// Options configures injection behavior.
type Options struct {
	// FailFast stops admitting new archives once a failure is recorded,
	// instead of collecting per-archive failures and continuing.
	// In-flight archives still run to completion.
	FailFast bool
	// Parallel is the worker pool width for per-archive processing.
	// Values below 1 mean sequential.
	Parallel int
}

// Result aggregates one injection phase.
type Result struct {
	// Injected names the release archives successfully rewritten.
	Injected []string
	// Failures holds per-archive failures, in archive order.
	Failures []*StepError
	// SkippedNoInput is true when there were no platform archives and
	// the phase was skipped entirely.
	SkippedNoInput bool
}

// Injector merges platform archives into release archives under
// MemberDir without disturbing pre-existing content.
//
// Each release archive is rewritten by extracting it into a fresh
// exclusively-owned scratch directory, merging the platform archives
// in, writing a complete replacement body beside the original, and
// renaming it over the original. The original file is never deleted
// before a complete replacement exists.
type Injector struct {
	// DistDir holds the release archives.
	DistDir string
	// PlatformsDir holds the platform archives to merge in.
	PlatformsDir string
	// Product is the release archive filename prefix.
	Product string

	opts   Options
	logger *log.Logger
}

// New creates an injector over distDir using platform archives from
// platformsDir. Release archives are matched by the product prefix.
func New(distDir, platformsDir, product string, opts Options, logger *log.Logger) *Injector {
	return &Injector{
		DistDir:      distDir,
		PlatformsDir: platformsDir,
		Product:      product,
		opts:         opts,
		logger:       logger,
	}
}

// Run injects platform archives into every release archive in DistDir.
//
// Per-archive failures are isolated: one failed archive never corrupts
// siblings. Without FailFast the failures are collected in the result
// and Run returns the aggregate error; with FailFast, no further
// archives are started after the first recorded failure and Run returns
// that failure once in-flight work completes.
//
// When PlatformsDir holds no archives the phase is skipped and Run
// returns ErrNoPlatformArchives; callers decide whether that matters.
func (inj *Injector) Run(ctx context.Context) (*Result, error) {
	platformArchives := archive.Discover(inj.PlatformsDir)
	if len(platformArchives) == 0 {
		inj.logger.Warn("platforms directory missing or empty, skipping injection", map[string]any{
			"path": inj.PlatformsDir,
		})
		return &Result{SkippedNoInput: true}, fmt.Errorf("%w: %s", ErrNoPlatformArchives, inj.PlatformsDir)
	}

	releases, err := inj.findReleaseArchives()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if len(releases) == 0 {
		inj.logger.Warn("no release archives found", map[string]any{"dir": inj.DistDir, "product": inj.Product})
		return result, nil
	}

	failures := inj.processAll(ctx, releases, platformArchives, result)

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Archive < result.Failures[j].Archive
	})
	sort.Strings(result.Injected)

	if inj.opts.FailFast && len(result.Failures) > 0 {
		return result, result.Failures[0]
	}
	if len(result.Failures) > 0 {
		return result, failures
	}
	return result, nil
}

// processAll runs injection across all release archives on a bounded
// worker pool. Workers operate on disjoint scratch directories; one
// worker's failure never cancels a sibling already running. With
// FailFast no new archive is admitted once a failure is recorded.
func (inj *Injector) processAll(ctx context.Context, releases []*archive.Archive, platformArchives []*archive.Archive, result *Result) error {
	parallel := inj.opts.Parallel
	if parallel < 1 {
		parallel = 1
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		combined error
		failed   bool
	)
	sem := make(chan struct{}, parallel)

	for _, rel := range releases {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		// Workers release their slot after recording the outcome, so
		// after acquiring a slot the previous failures are visible.
		mu.Lock()
		stop := inj.opts.FailFast && failed
		mu.Unlock()
		if stop {
			<-sem
			break
		}
		wg.Add(1)
		go func(rel *archive.Archive) {
			defer wg.Done()
			defer func() { <-sem }()

			err := inj.injectOne(rel, platformArchives)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stepErr, ok := err.(*StepError)
				if !ok {
					stepErr = &StepError{Op: "rewrite", Archive: rel.Name(), Err: err}
				}
				result.Failures = append(result.Failures, stepErr)
				combined = multierr.Append(combined, stepErr)
				failed = true
				return
			}
			result.Injected = append(result.Injected, rel.Name())
		}(rel)
	}
	wg.Wait()
	return combined
}

// injectOne rewrites a single release archive. Once the rewrite of the
// replacement body begins it runs to completion or the archive is
// reported failed; a partial body is never swapped in.
func (inj *Injector) injectOne(rel *archive.Archive, platformArchives []*archive.Archive) error {
	inj.logger.Info("processing release archive", map[string]any{"archive": rel.Name()})

	scratch, err := os.MkdirTemp("", "shipwright-inject-*")
	if err != nil {
		return &StepError{Op: "extract", Archive: rel.Name(), Err: err}
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	if err := extract(rel.Format, rel.Path, scratch); err != nil {
		return &StepError{Op: "extract", Archive: rel.Name(), Err: err}
	}

	memberDir := filepath.Join(scratch, MemberDir)
	if err := os.MkdirAll(memberDir, 0o755); err != nil {
		return &StepError{Op: "rewrite", Archive: rel.Name(), Err: err}
	}
	for _, pa := range platformArchives {
		if err := copyFile(pa.Path, filepath.Join(memberDir, pa.Name())); err != nil {
			return &StepError{Op: "rewrite", Archive: rel.Name(), Err: err}
		}
	}

	// Write the complete replacement beside the original, then swap.
	partial := rel.Path + ".partial-" + uuid.New().String()
	if err := archive.Write(rel.Format, scratch, partial); err != nil {
		_ = os.Remove(partial)
		return &StepError{Op: "rewrite", Archive: rel.Name(), Err: err}
	}
	if err := os.Rename(partial, rel.Path); err != nil {
		_ = os.Remove(partial)
		return &StepError{Op: "swap", Archive: rel.Name(), Err: err}
	}

	inj.logger.Info("platform archives injected", map[string]any{"archive": rel.Name()})
	return nil
}

// findReleaseArchives lists top-level release archives in DistDir,
// matched by product prefix and archive extension.
func (inj *Injector) findReleaseArchives() ([]*archive.Archive, error) {
	entries, err := os.ReadDir(inj.DistDir)
	if err != nil {
		return nil, fmt.Errorf("read dist directory: %w", err)
	}

	var found []*archive.Archive
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, inj.Product+"_") {
			continue
		}
		format := archive.FormatOf(name)
		if format == "" {
			continue
		}
		found = append(found, &archive.Archive{
			Path:   filepath.Join(inj.DistDir, name),
			Format: format,
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}
