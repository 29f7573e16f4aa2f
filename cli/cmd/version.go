package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/cassandragargoyle/shipwright/cli/render"
)

// Version is the canonical project version, overridden via ldflags at
// release time.
var Version = "0.9.0"

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  CommonFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		return r.Render(VersionResponse{
			Version: Version,
			Commit:  commit,
		})
	}
}
