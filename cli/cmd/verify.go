package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/cassandragargoyle/shipwright/cli/render"
	"github.com/cassandragargoyle/shipwright/pipeline"
)

// VerifyCommand returns the verify command: check an existing release
// artifact set without rebuilding anything.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify release archives and checksums in the dist directory",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:  "dist",
				Usage: "Directory holding release artifacts",
				Value: "dist",
			},
			&cli.StringFlag{
				Name:  "product",
				Usage: "Release archive filename prefix",
			},
		),
		Action: verifyAction,
	}
}

func verifyAction(c *cli.Context) error {
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
	product := firstNonEmpty(c.String("product"), cfg.Product, "shipwright")

	report, verifyErr := pipeline.VerifyDist(distDir, product)
	if report != nil {
		if renderErr := r.Render(report); renderErr != nil {
			return renderErr
		}
	}
	if verifyErr != nil {
		reporter.Failf("%v", verifyErr)
		return cli.Exit("", 1)
	}

	reporter.Successf("%d release archive(s), %d checksum entries verified",
		len(report.ReleaseArchives), report.Verified)
	return nil
}
