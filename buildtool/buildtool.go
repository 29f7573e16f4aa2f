// Package buildtool locates and invokes the external release build
// tool (GoReleaser) that produces the per-platform release archives.
//
// The tool is located by probing an ordered candidate list: the first
// candidate whose version check succeeds wins. The build invocation is
// context-bounded; a timeout is a fatal stage failure.
package buildtool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultCandidates returns the ordered probe list for the build tool:
// the bare name on PATH, then the conventional Go install location.
func DefaultCandidates() []string {
	candidates := []string{"goreleaser"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "go", "bin", "goreleaser"))
	}
	return candidates
}

// Tool is a located build tool binary.
type Tool struct {
	// Path is the command or path that answered the probe.
	Path string
	// Version is the first line of the tool's version output.
	Version string
}

// Probe tries each candidate in order and returns the first whose
// version check exits zero. When none answers, the error is a
// *NotFoundError listing every candidate tried.
func Probe(ctx context.Context, candidates []string) (*Tool, error) {
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var out bytes.Buffer
		cmd := exec.CommandContext(ctx, candidate, "--version")
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Run(); err != nil {
			continue
		}

		versionLine := out.String()
		if i := strings.IndexByte(versionLine, '\n'); i >= 0 {
			versionLine = versionLine[:i]
		}
		return &Tool{Path: candidate, Version: strings.TrimSpace(versionLine)}, nil
	}
	return nil, &NotFoundError{Candidates: candidates}
}

// Release runs the tool's release command in dir. The invocation is
// bounded by ctx; publishing and tag validation are skipped because the
// pipeline drives both itself.
func (t *Tool) Release(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, t.Path, "release", "--clean", "--skip-validate", "--skip-publish")
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &RunError{Tool: t.Path, Err: ctxErr, Stderr: tail(stderr.String())}
		}
		return &RunError{Tool: t.Path, Err: err, Stderr: tail(stderr.String())}
	}
	return nil
}

// tail keeps the last few lines of tool output for error reporting.
func tail(s string) string {
	const keep = 20
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= keep {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-keep:], "\n")
}

// NotFoundError reports that no candidate answered the probe.
type NotFoundError struct {
	// Candidates lists every location tried, in probe order.
	Candidates []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("build tool not found (tried: %s)", strings.Join(e.Candidates, ", "))
}

// RunError reports a failed or timed-out build invocation.
type RunError struct {
	// Tool is the command that was run.
	Tool string
	// Err is the underlying exec or context error.
	Err error
	// Stderr is the tail of the captured stderr output.
	Stderr string
}

func (e *RunError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s release failed: %v\n%s", e.Tool, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s release failed: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error { return e.Err }
