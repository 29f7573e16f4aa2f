package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/cassandragargoyle/shipwright/archive"
	"github.com/cassandragargoyle/shipwright/cli/render"
	"github.com/cassandragargoyle/shipwright/log"
)

// ArchivesResponse is the response for the archives command.
type ArchivesResponse struct {
	Created []ArchiveInfo  `json:"created"`
	Skipped []SkipResponse `json:"skipped,omitempty"`
}

// ArchiveInfo describes one created archive.
type ArchiveInfo struct {
	Name   string `json:"name"`
	SizeMB string `json:"size_mb"`
}

// SkipResponse describes one platform that produced no archive.
type SkipResponse struct {
	Platform string `json:"platform"`
	Reason   string `json:"reason"`
}

// ArchivesCommand returns the archives command. Standalone archive
// creation is strict: producing zero archives is a failure, unlike the
// same step inside the release pipeline.
func ArchivesCommand() *cli.Command {
	return &cli.Command{
		Name:  "archives",
		Usage: "Create per-platform archives from built binaries",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:  "platforms",
				Usage: "Directory holding per-platform binaries",
				Value: "dist/platforms",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Archive output directory (defaults to the platforms directory)",
			},
		),
		Action: archivesAction,
	}
}

func archivesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	reporter := render.NewReporter(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	platformsDir := firstNonEmpty(c.String("platforms"), cfg.PlatformsDir, "dist/platforms")

	logger := log.NewLogger(log.RunContext{})
	builder := archive.NewBuilder(platformsDir, c.String("output"), logger)

	result, buildErr := builder.Build(c.Context)

	resp := ArchivesResponse{}
	if result != nil {
		for _, a := range result.Created {
			resp.Created = append(resp.Created, ArchiveInfo{
				Name:   a.Name(),
				SizeMB: fmt.Sprintf("%.1f", float64(a.Size())/(1024*1024)),
			})
		}
		for _, o := range result.Outcomes {
			if o.Skip != "" {
				resp.Skipped = append(resp.Skipped, SkipResponse{
					Platform: string(o.Platform),
					Reason:   string(o.Skip),
				})
			}
		}
	}
	if err := r.Render(resp); err != nil {
		return err
	}

	if buildErr != nil {
		if errors.Is(buildErr, archive.ErrMissingInput) {
			reporter.Failf("platforms directory %s does not exist", platformsDir)
		}
		return cli.Exit(buildErr.Error(), 1)
	}

	reporter.Successf("%d archive(s) created, %d platform(s) skipped", len(resp.Created), len(resp.Skipped))
	return nil
}
