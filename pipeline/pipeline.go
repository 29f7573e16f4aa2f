// Package pipeline sequences the release preparation stages:
// validate, check dependencies, update version files, tagged build,
// platform archives, injection, verification, and release notes.
//
// The pipeline is linear with one compensating action: the transient
// version-control tag created to drive the external build tool is
// removed on both the success and the failure path. Every other stage
// failure is surfaced as a plain stage failure because a re-run
// naturally overwrites its file outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/cassandragargoyle/shipwright/archive"
	"github.com/cassandragargoyle/shipwright/buildtool"
	"github.com/cassandragargoyle/shipwright/gitx"
	"github.com/cassandragargoyle/shipwright/inject"
	"github.com/cassandragargoyle/shipwright/log"
	"github.com/cassandragargoyle/shipwright/notes"
	"github.com/cassandragargoyle/shipwright/version"
)

// Tagger manages the transient build tag. *gitx.Repo satisfies it.
type Tagger interface {
	CreateTag(ctx context.Context, name string) error
	DeleteTag(ctx context.Context, name string) error
}

// ToolRunner invokes the external release build tool.
// *buildtool.Tool satisfies it.
type ToolRunner interface {
	Release(ctx context.Context, dir string) error
}

// Config configures one pipeline run. Zero values take defaults in New.
type Config struct {
	// Version is the raw version input, validated in the first stage.
	Version string
	// ProjectRoot is the repository root directory.
	ProjectRoot string
	// DistDir receives release artifacts. Default: {ProjectRoot}/dist.
	DistDir string
	// PlatformsDir holds per-platform binaries and their archives.
	// Default: {DistDir}/platforms.
	PlatformsDir string
	// NotesDir holds release-note records.
	// Default: {ProjectRoot}/release-notes.
	NotesDir string
	// Product is the release archive filename prefix. Default: shipwright.
	Product string
	// BuildScript is the version-default script rewritten before the
	// build. Default: build-with-version.sh. Missing script is a skip.
	BuildScript string
	// BinaryBuildCommand builds the per-platform raw binaries before
	// archiving. Failures are warnings: a platform may legitimately
	// fail to build. Default: make build-all-platforms.
	BinaryBuildCommand []string
	// Inject configures the injection phase.
	Inject inject.Options
	// AggregateNotes also writes the aggregated RELEASE-NOTES.md into
	// DistDir.
	AggregateNotes bool
	// BuildTimeout bounds the build tool invocation. Default: 30m.
	BuildTimeout time.Duration
	// ProbeTimeout bounds the build tool probe. Default: 1m.
	ProbeTimeout time.Duration

	// Tagger overrides the git-backed tag manager (tests).
	Tagger Tagger
	// Tool overrides the probed build tool (tests). When set, the
	// dependency probe is skipped.
	Tool ToolRunner
}

// Orchestrator drives one release preparation run.
type Orchestrator struct {
	config *Config
	logger *log.Logger
	runID  string

	tagger Tagger
	tool   ToolRunner
}

// New creates an orchestrator, applying config defaults.
func New(config *Config) *Orchestrator {
	if config.DistDir == "" {
		config.DistDir = filepath.Join(config.ProjectRoot, "dist")
	}
	if config.PlatformsDir == "" {
		config.PlatformsDir = filepath.Join(config.DistDir, "platforms")
	}
	if config.NotesDir == "" {
		config.NotesDir = filepath.Join(config.ProjectRoot, "release-notes")
	}
	if config.Product == "" {
		config.Product = "shipwright"
	}
	if config.BuildScript == "" {
		config.BuildScript = "build-with-version.sh"
	}
	if config.BinaryBuildCommand == nil {
		config.BinaryBuildCommand = []string{"make", "build-all-platforms"}
	}
	if config.BuildTimeout == 0 {
		config.BuildTimeout = 30 * time.Minute
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = time.Minute
	}

	runID := uuid.New().String()
	return &Orchestrator{
		config: config,
		logger: log.NewLogger(log.RunContext{RunID: runID, Version: config.Version}),
		runID:  runID,
		tagger: config.Tagger,
		tool:   config.Tool,
	}
}

// Logger exposes the run logger for output redirection.
func (o *Orchestrator) Logger() *log.Logger { return o.logger }

// SetOutput redirects pipeline logging (tests).
func (o *Orchestrator) SetOutput(l *log.Logger) { o.logger = l }

// Execute runs the pipeline to completion or the first fatal stage
// failure. The returned Result always carries the terminal status;
// the error, when non-nil, is a *StageError naming the failed stage.
func (o *Orchestrator) Execute(ctx context.Context) (*Result, error) {
	started := time.Now()
	result := &Result{RunID: o.runID, Status: "success"}

	fail := func(stage Stage, err error) (*Result, error) {
		stageErr, ok := err.(*StageError)
		if !ok {
			stageErr = &StageError{Stage: stage, Err: err}
		}
		result.FailedStage = stageErr.Stage
		result.Status = "failed-at-" + string(stageErr.Stage)
		result.Duration = time.Since(started)
		o.logger.Error("pipeline failed", map[string]any{
			"stage": string(stageErr.Stage),
			"error": stageErr.Err.Error(),
		})
		return result, stageErr
	}

	// validate
	v, err := version.Validate(o.config.Version)
	if err != nil {
		return fail(StageValidate, err)
	}
	result.Version = v.Tag()
	o.logger.Info("preparing release", map[string]any{"version": v.Tag()})

	// check-deps
	if err := o.checkDeps(ctx); err != nil {
		return fail(StageCheckDeps, err)
	}

	// update-version-files: best-effort, failures are warnings.
	o.updateVersionFiles(v)

	// tagged-build
	if err := o.taggedBuild(ctx, v); err != nil {
		return fail(StageTaggedBuild, err)
	}

	// platform-archives
	o.buildBinaries(ctx)
	o.buildPlatformArchives(ctx, result)

	// inject
	if err := o.injectArchives(ctx, result); err != nil {
		return fail(StageInject, err)
	}

	// verify
	if err := o.verifyOutputs(v, result); err != nil {
		return fail(StageVerify, err)
	}

	// notes
	if err := o.writeNotes(v, result); err != nil {
		return fail(StageNotes, err)
	}

	result.Duration = time.Since(started)
	o.logger.Info("release prepared", map[string]any{
		"version":  v.Tag(),
		"dist":     o.config.DistDir,
		"duration": result.Duration.String(),
	})
	return result, nil
}

// checkDeps resolves the git repository and the build tool. Both are
// run-level preconditions: their absence aborts immediately.
func (o *Orchestrator) checkDeps(ctx context.Context) error {
	if o.tagger == nil {
		repo, err := gitx.Open(o.config.ProjectRoot)
		if err != nil {
			return err
		}
		o.tagger = repo
	}

	if o.tool == nil {
		if _, err := os.Stat(filepath.Join(o.config.ProjectRoot, ".goreleaser.yml")); err != nil {
			return fmt.Errorf("build tool config not found in %s", o.config.ProjectRoot)
		}

		probeCtx, cancel := context.WithTimeout(ctx, o.config.ProbeTimeout)
		defer cancel()
		tool, err := buildtool.Probe(probeCtx, buildtool.DefaultCandidates())
		if err != nil {
			return err
		}
		o.logger.Info("build tool located", map[string]any{"path": tool.Path, "version": tool.Version})
		o.tool = tool
	}
	return nil
}

// versionDefaultPattern matches the build script's default version line.
var versionDefaultPattern = regexp.MustCompile(`(?m)^VERSION=\$\{1:-v[0-9]+\.[0-9]+\.[0-9]+\}`)

// updateVersionFiles rewrites the default version in the build script.
// Everything here is best-effort; the build injects the real version.
func (o *Orchestrator) updateVersionFiles(v version.Version) {
	path := filepath.Join(o.config.ProjectRoot, o.config.BuildScript)
	content, err := os.ReadFile(path)
	if err != nil {
		o.logger.Debug("build script not found, skipping version file update", map[string]any{"path": path})
		return
	}

	updated := versionDefaultPattern.ReplaceAll(content, []byte("VERSION=${1:-"+v.Tag()+"}"))
	if err := os.WriteFile(path, updated, 0o755); err != nil {
		o.logger.Warn("version file update failed", map[string]any{"path": path, "error": err.Error()})
		return
	}
	o.logger.Info("updated build script default version", map[string]any{"path": path})
}

// taggedBuild runs the external build tool under a transient tag.
// The tag is removed on both paths; a failed removal is reported so
// the operator can delete it before re-running.
func (o *Orchestrator) taggedBuild(ctx context.Context, v version.Version) error {
	// The build tool owns dist; clear previous outputs.
	if err := os.RemoveAll(o.config.DistDir); err != nil {
		return fmt.Errorf("clean dist directory: %w", err)
	}

	o.logger.Info("creating transient build tag", map[string]any{"tag": v.Tag()})
	if err := o.tagger.CreateTag(ctx, v.Tag()); err != nil {
		return fmt.Errorf("create tag %s: %w", v.Tag(), err)
	}

	buildCtx, cancel := context.WithTimeout(ctx, o.config.BuildTimeout)
	defer cancel()
	buildErr := o.tool.Release(buildCtx, o.config.ProjectRoot)

	cleanupErr := o.tagger.DeleteTag(ctx, v.Tag())
	if cleanupErr != nil {
		o.logger.Error("transient tag cleanup failed", map[string]any{"tag": v.Tag(), "error": cleanupErr.Error()})
	} else {
		o.logger.Info("transient build tag removed", map[string]any{"tag": v.Tag()})
	}

	if buildErr != nil {
		return &StageError{Stage: StageTaggedBuild, Err: buildErr, TagCleanupFailed: cleanupErr != nil}
	}
	if cleanupErr != nil {
		return &StageError{Stage: StageTaggedBuild, Err: fmt.Errorf("remove tag %s: %w", v.Tag(), cleanupErr), TagCleanupFailed: true}
	}
	return nil
}

// buildBinaries runs the per-platform binary build. Failures are
// warnings: platforms that did not build are skipped downstream.
func (o *Orchestrator) buildBinaries(ctx context.Context) {
	if len(o.config.BinaryBuildCommand) == 0 {
		return
	}
	cmd := exec.CommandContext(ctx, o.config.BinaryBuildCommand[0], o.config.BinaryBuildCommand[1:]...)
	cmd.Dir = o.config.ProjectRoot
	if err := cmd.Run(); err != nil {
		o.logger.Warn("platform binary build had issues, continuing", map[string]any{"error": err.Error()})
	}
}

// buildPlatformArchives archives whatever platforms were built. Within
// the full pipeline a zero-archive outcome is a warning, not a fatal
// error: injection then no-ops and verification still checks the
// release archives themselves.
func (o *Orchestrator) buildPlatformArchives(ctx context.Context, result *Result) {
	builder := archive.NewBuilder(o.config.PlatformsDir, "", o.logger)
	buildResult, err := builder.Build(ctx)
	if err != nil {
		o.logger.Warn("platform archive creation had issues, continuing", map[string]any{"error": err.Error()})
		if buildResult != nil {
			result.ArchivesSkipped = buildResult.SkippedCount()
		}
		return
	}
	result.ArchivesCreated = buildResult.CreatedCount()
	result.ArchivesSkipped = buildResult.SkippedCount()
}

// injectArchives merges platform archives into the release archives.
// Per-archive failures are reported; whether they fail the run is the
// configured injection policy.
func (o *Orchestrator) injectArchives(ctx context.Context, result *Result) error {
	injector := inject.New(o.config.DistDir, o.config.PlatformsDir, o.config.Product, o.config.Inject, o.logger)
	injectResult, err := injector.Run(ctx)
	if injectResult != nil {
		result.Injected = injectResult.Injected
		result.InjectFailures = len(injectResult.Failures)
	}
	if err != nil {
		if errors.Is(err, inject.ErrNoPlatformArchives) {
			return nil
		}
		if o.config.Inject.FailFast {
			return err
		}
		o.logger.Warn("some release archives failed injection", map[string]any{"error": err.Error()})
	}
	return nil
}

// verifyOutputs checks the generated artifact set. Zero release
// archives is fatal. Injection rewrites archive bytes, so any
// checksums the build tool wrote are stale afterwards: with injected
// archives the checksums file is regenerated, otherwise the existing
// one is verified.
func (o *Orchestrator) verifyOutputs(v version.Version, result *Result) error {
	report, err := scanDist(o.config.DistDir, o.config.Product)
	if report != nil {
		result.ReleaseArchives = len(report.ReleaseArchives)
		result.ChecksumFiles = len(report.ChecksumFiles)
	}
	if err != nil {
		return err
	}

	if len(result.Injected) > 0 || len(report.ChecksumFiles) == 0 {
		name := fmt.Sprintf("%s_%s_checksums.txt", o.config.Product, v.Numeric())
		if len(report.ChecksumFiles) > 0 {
			name = report.ChecksumFiles[0]
		}
		if _, err := writeChecksums(o.config.DistDir, name, report.releaseArchivePaths(o.config.DistDir)); err != nil {
			return fmt.Errorf("write checksums: %w", err)
		}
		result.ChecksumFiles = 1
		o.logger.Info("checksums file written", map[string]any{"file": name})
		return nil
	}

	for _, name := range report.ChecksumFiles {
		verified, err := verifyChecksums(filepath.Join(o.config.DistDir, name), o.config.DistDir)
		if err != nil {
			return fmt.Errorf("verify %s: %w", name, err)
		}
		o.logger.Info("checksums verified", map[string]any{"file": name, "entries": verified})
	}
	return nil
}

// writeNotes writes the per-release notes document into dist, using
// the version's release-note record when one exists.
func (o *Orchestrator) writeNotes(v version.Version, result *Result) error {
	store := &notes.Store{Dir: o.config.NotesDir}

	rec, err := store.Load(v.Numeric())
	if err != nil {
		o.logger.Warn("release-note record unreadable", map[string]any{"version": v.Numeric(), "error": err.Error()})
	}

	commit := "unknown"
	if hs, ok := o.tagger.(interface{ HeadShort() (string, error) }); ok {
		if short, err := hs.HeadShort(); err == nil {
			commit = short
		}
	}

	content := renderReleaseDocument(o.config.Product, v, rec, commit, time.Now().UTC())
	path, err := notes.WriteDocument(o.config.DistDir, fmt.Sprintf("RELEASE_NOTES_%s.md", v.Tag()), content)
	if err != nil {
		return fmt.Errorf("write release notes: %w", err)
	}
	result.NotesPath = path

	if o.config.AggregateNotes {
		agg := notes.NewAggregator(store, o.config.Product, o.logger)
		doc, err := agg.Aggregate(nil)
		if err != nil {
			return fmt.Errorf("aggregate release notes: %w", err)
		}
		if _, err := notes.WriteDocument(o.config.DistDir, notes.DefaultFilename, doc); err != nil {
			return fmt.Errorf("write aggregated release notes: %w", err)
		}
	}
	return nil
}
