package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/cassandragargoyle/shipwright/cli/render"
	"github.com/cassandragargoyle/shipwright/inject"
	"github.com/cassandragargoyle/shipwright/pipeline"
)

// Exit codes for the release command:
//   - 0: release prepared
//   - 1: pipeline failed, repository clean
//   - 2: pipeline failed AND the transient tag was not removed
const (
	exitReleaseFailed    = 1
	exitStaleTagLeftover = 2
)

// ReleaseResponse is the response for the release command.
type ReleaseResponse struct {
	Version         string `json:"version"`
	Status          string `json:"status"`
	ArchivesCreated int    `json:"archives_created"`
	ArchivesSkipped int    `json:"archives_skipped"`
	Injected        int    `json:"injected"`
	InjectFailures  int    `json:"inject_failures"`
	ReleaseArchives int    `json:"release_archives"`
	NotesPath       string `json:"notes_path,omitempty"`
	Duration        string `json:"duration"`
}

// ReleaseCommand returns the release command, the full pipeline from
// version validation through release notes.
func ReleaseCommand() *cli.Command {
	return &cli.Command{
		Name:      "release",
		Usage:     "Prepare a full release for the given version",
		ArgsUsage: "<version>",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:  "root",
				Usage: "Project root directory",
				Value: ".",
			},
			&cli.StringFlag{
				Name:  "dist",
				Usage: "Output directory for release artifacts",
			},
			&cli.StringFlag{
				Name:  "platforms",
				Usage: "Directory holding per-platform binaries",
			},
			&cli.StringFlag{
				Name:  "notes-dir",
				Usage: "Directory holding release-note records",
			},
			&cli.StringFlag{
				Name:  "product",
				Usage: "Release archive filename prefix",
			},
			&cli.BoolFlag{
				Name:  "aggregate-notes",
				Usage: "Also write the aggregated RELEASE-NOTES.md",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "Abort injection on the first failed archive",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "Injection worker count (0 = sequential)",
			},
			&cli.DurationFlag{
				Name:  "build-timeout",
				Usage: "Timeout for the external build tool",
			},
		),
		Action: releaseAction,
	}
}

func releaseAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: shipwright release <version>", exitReleaseFailed)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	reporter := render.NewReporter(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitReleaseFailed)
	}

	pipeConfig := &pipeline.Config{
		Version:      c.Args().First(),
		ProjectRoot:  firstNonEmpty(c.String("root"), cfg.ProjectRoot, "."),
		DistDir:      firstNonEmpty(c.String("dist"), cfg.DistDir),
		PlatformsDir: firstNonEmpty(c.String("platforms"), cfg.PlatformsDir),
		NotesDir:     firstNonEmpty(c.String("notes-dir"), cfg.NotesDir),
		Product:      firstNonEmpty(c.String("product"), cfg.Product),
		BuildScript:  cfg.Build.Script,
		Inject: inject.Options{
			FailFast: c.Bool("fail-fast") || cfg.Inject.FailFast,
			Parallel: intOr(c.Int("parallel"), cfg.Inject.Parallel),
		},
		AggregateNotes: c.Bool("aggregate-notes") || cfg.Notes.Aggregate,
		BuildTimeout:   c.Duration("build-timeout"),
		ProbeTimeout:   cfg.Build.ProbeTimeout.Duration,
	}
	if pipeConfig.BuildTimeout == 0 {
		pipeConfig.BuildTimeout = cfg.Build.Timeout.Duration
	}
	if cfg.Build.BinaryCommand != nil {
		pipeConfig.BinaryBuildCommand = cfg.Build.BinaryCommand
	}

	reporter.Stepf("preparing release %s", pipeConfig.Version)
	result, execErr := pipeline.New(pipeConfig).Execute(c.Context)

	resp := ReleaseResponse{
		Version:         result.Version,
		Status:          result.Status,
		ArchivesCreated: result.ArchivesCreated,
		ArchivesSkipped: result.ArchivesSkipped,
		Injected:        len(result.Injected),
		InjectFailures:  result.InjectFailures,
		ReleaseArchives: result.ReleaseArchives,
		NotesPath:       result.NotesPath,
		Duration:        result.Duration.String(),
	}
	if resp.Version == "" {
		resp.Version = pipeConfig.Version
	}
	if err := r.Render(resp); err != nil {
		return err
	}

	if execErr != nil {
		reporter.Failf("%v", execErr)
		var stageErr *pipeline.StageError
		if errors.As(execErr, &stageErr) && stageErr.TagCleanupFailed {
			return cli.Exit(fmt.Sprintf("transient tag %s may still exist, remove it before re-running", resp.Version), exitStaleTagLeftover)
		}
		return cli.Exit("", exitReleaseFailed)
	}

	reporter.Successf("release %s prepared", resp.Version)
	return nil
}

func intOr(flag, fallback int) int {
	if flag != 0 {
		return flag
	}
	return fallback
}
