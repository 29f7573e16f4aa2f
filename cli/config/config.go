package config

import (
	"fmt"
	"time"
)

// Config represents a shipwright.yaml configuration file.
// All values are optional and act as defaults for shipwright commands.
// CLI flags always override config values.
type Config struct {
	Product      string `yaml:"product"`
	ProjectRoot  string `yaml:"project_root"`
	DistDir      string `yaml:"dist_dir"`
	PlatformsDir string `yaml:"platforms_dir"`
	NotesDir     string `yaml:"notes_dir"`

	Build  BuildConfig  `yaml:"build"`
	Inject InjectConfig `yaml:"inject"`
	Notes  NotesConfig  `yaml:"notes"`
}

// BuildConfig holds build-stage defaults from the config file.
type BuildConfig struct {
	// Script is the version-default script rewritten before the build.
	Script string `yaml:"script"`
	// BinaryCommand builds the per-platform binaries, e.g.
	// ["make", "build-all-platforms"].
	BinaryCommand []string `yaml:"binary_command"`
	// Timeout bounds the external build tool invocation.
	Timeout Duration `yaml:"timeout"`
	// ProbeTimeout bounds the build tool probe.
	ProbeTimeout Duration `yaml:"probe_timeout"`
}

// InjectConfig holds injection defaults from the config file.
type InjectConfig struct {
	FailFast bool `yaml:"fail_fast"`
	Parallel int  `yaml:"parallel"`
}

// NotesConfig holds release-notes defaults from the config file.
type NotesConfig struct {
	// Aggregate also writes the aggregated document during a release.
	Aggregate bool `yaml:"aggregate"`
	// WarnOnly downgrades completeness failures to warnings.
	WarnOnly bool `yaml:"warn_only"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
