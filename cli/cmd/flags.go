// Package cmd provides CLI commands for the shipwright binary.
package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cassandragargoyle/shipwright/cli/config"
)

// Shared flags across commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag points at the YAML config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to shipwright.yaml config file",
	}
)

// CommonFlags returns the shared flags for all commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		ConfigFlag,
	}
}

// loadConfig resolves the config file for a command. An explicit
// --config path must exist; otherwise shipwright.yaml in the working
// directory is used when present, and an empty config when not.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat("shipwright.yaml"); err == nil {
		return config.Load("shipwright.yaml")
	}
	return &config.Config{}, nil
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
