package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shipwright.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
product: shipwright
project_root: /srv/shipwright
dist_dir: /srv/shipwright/dist
platforms_dir: /srv/shipwright/dist/platforms
notes_dir: /srv/shipwright/release-notes
build:
  script: build-with-version.sh
  binary_command: ["make", "build-all-platforms"]
  timeout: 45m
  probe_timeout: 30s
inject:
  fail_fast: true
  parallel: 4
notes:
  aggregate: true
  warn_only: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Product != "shipwright" {
		t.Errorf("product = %q", cfg.Product)
	}
	if cfg.DistDir != "/srv/shipwright/dist" {
		t.Errorf("dist_dir = %q", cfg.DistDir)
	}
	if cfg.Build.Timeout.Duration != 45*time.Minute {
		t.Errorf("build timeout = %v", cfg.Build.Timeout.Duration)
	}
	if cfg.Build.ProbeTimeout.Duration != 30*time.Second {
		t.Errorf("probe timeout = %v", cfg.Build.ProbeTimeout.Duration)
	}
	if len(cfg.Build.BinaryCommand) != 2 || cfg.Build.BinaryCommand[0] != "make" {
		t.Errorf("binary_command = %v", cfg.Build.BinaryCommand)
	}
	if !cfg.Inject.FailFast || cfg.Inject.Parallel != 4 {
		t.Errorf("inject = %+v", cfg.Inject)
	}
	if !cfg.Notes.Aggregate || !cfg.Notes.WarnOnly {
		t.Errorf("notes = %+v", cfg.Notes)
	}
}

func TestLoadEmptyConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Product != "" || cfg.Inject.FailFast {
		t.Errorf("empty config yielded non-zero values: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "product: [unclosed"))
	if err == nil || !strings.Contains(err.Error(), "invalid YAML") {
		t.Fatalf("err = %v, want invalid YAML", err)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SHIPWRIGHT_DIST", "/builds/out")

	cfg, err := Load(writeConfig(t, "dist_dir: ${SHIPWRIGHT_DIST}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DistDir != "/builds/out" {
		t.Errorf("dist_dir = %q, want /builds/out", cfg.DistDir)
	}
}

func TestDurationInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "build:\n  timeout: banana\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("err = %v, want invalid duration", err)
	}
}
