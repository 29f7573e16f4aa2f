package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/cassandragargoyle/shipwright/cli/render"
	"github.com/cassandragargoyle/shipwright/inject"
	"github.com/cassandragargoyle/shipwright/log"
)

// InjectResponse is the response for the inject command.
type InjectResponse struct {
	Injected []string       `json:"injected"`
	Failures []FailResponse `json:"failures,omitempty"`
	Skipped  bool           `json:"skipped_no_input,omitempty"`
}

// FailResponse describes one release archive that failed injection.
type FailResponse struct {
	Archive string `json:"archive"`
	Step    string `json:"step"`
	Error   string `json:"error"`
}

// InjectCommand returns the inject command: merge platform archives
// into existing release archives.
func InjectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inject",
		Usage: "Bundle platform archives into release archives",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:  "dist",
				Usage: "Directory holding release archives",
				Value: "dist",
			},
			&cli.StringFlag{
				Name:  "platforms",
				Usage: "Directory holding platform archives",
			},
			&cli.StringFlag{
				Name:  "product",
				Usage: "Release archive filename prefix",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "Abort on the first failed archive",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "Worker count (0 = sequential)",
			},
		),
		Action: injectAction,
	}
}

func injectAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	reporter := render.NewReporter(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	distDir := firstNonEmpty(c.String("dist"), cfg.DistDir, "dist")
	platformsDir := firstNonEmpty(c.String("platforms"), cfg.PlatformsDir, distDir+"/platforms")
	product := firstNonEmpty(c.String("product"), cfg.Product, "shipwright")

	opts := inject.Options{
		FailFast: c.Bool("fail-fast") || cfg.Inject.FailFast,
		Parallel: intOr(c.Int("parallel"), cfg.Inject.Parallel),
	}

	logger := log.NewLogger(log.RunContext{})
	injector := inject.New(distDir, platformsDir, product, opts, logger)

	result, runErr := injector.Run(c.Context)

	resp := InjectResponse{}
	if result != nil {
		resp.Injected = result.Injected
		resp.Skipped = result.SkippedNoInput
		for _, f := range result.Failures {
			resp.Failures = append(resp.Failures, FailResponse{
				Archive: f.Archive,
				Step:    f.Op,
				Error:   f.Err.Error(),
			})
		}
	}
	if err := r.Render(resp); err != nil {
		return err
	}

	if errors.Is(runErr, inject.ErrNoPlatformArchives) {
		reporter.Warnf("no platform archives found in %s, nothing injected", platformsDir)
		return nil
	}
	if runErr != nil {
		reporter.Failf("%d archive(s) failed injection", len(resp.Failures))
		return cli.Exit("", 1)
	}
	reporter.Successf("%d release archive(s) injected", len(resp.Injected))
	return nil
}
