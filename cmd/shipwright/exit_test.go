package main

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

// TestReleaseExitCodes documents the release command contract:
//   - 0: release prepared
//   - 1: pipeline failed, repository clean
//   - 2: pipeline failed and the transient tag was not removed
func TestReleaseExitCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"pipeline failure", cli.Exit("stage verify failed", 1), 1},
		{"stale tag leftover", cli.Exit("transient tag v1.2.3 may still exist", 2), 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var exitCoder cli.ExitCoder
			if !errors.As(tc.err, &exitCoder) {
				t.Fatal("cli.Exit should return ExitCoder")
			}
			if exitCoder.ExitCode() != tc.code {
				t.Errorf("ExitCode() = %d, want %d", exitCoder.ExitCode(), tc.code)
			}
		})
	}
}

func TestExitCoder_WrappedStillMatches(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), cli.Exit("inner error", 2))

	var exitCoder cli.ExitCoder
	if !errors.As(wrapped, &exitCoder) {
		t.Fatal("wrapped error should still match cli.ExitCoder")
	}
	if exitCoder.ExitCode() != 2 {
		t.Errorf("exit code = %d, want 2", exitCoder.ExitCode())
	}
}

func TestExitCoder_RegularErrorIsNot(t *testing.T) {
	var exitCoder cli.ExitCoder
	if errors.As(errors.New("regular error"), &exitCoder) {
		t.Fatal("regular error should not be cli.ExitCoder")
	}
}

// TestExitErrHandler_MessageSuppression verifies empty messages don't print.
func TestExitErrHandler_MessageSuppression(t *testing.T) {
	err := cli.Exit("", 0)
	msg := err.Error()

	// Empty message cli.Exit returns empty string or "exit status N".
	// The handler should NOT print these to stderr.
	if msg != "" && msg != "exit status 0" {
		t.Errorf("expected empty or 'exit status 0', got %q", msg)
	}
}
