package pipeline

import (
	"fmt"
	"time"
)

// Stage names one step of the release pipeline, in execution order.
type Stage string

const (
	StageValidate         Stage = "validate"
	StageCheckDeps        Stage = "check-deps"
	StageVersionFiles     Stage = "update-version-files"
	StageTaggedBuild      Stage = "tagged-build"
	StagePlatformArchives Stage = "platform-archives"
	StageInject           Stage = "inject"
	StageVerify           Stage = "verify"
	StageNotes            Stage = "notes"
)

// Result is the terminal state of one pipeline run.
type Result struct {
	// RunID identifies the invocation.
	RunID string
	// Version is the validated release tag.
	Version string
	// Status is "success" or "failed-at-<stage>".
	Status string
	// FailedStage is set when the run failed.
	FailedStage Stage
	// ArchivesCreated is the number of platform archives written.
	ArchivesCreated int
	// ArchivesSkipped is the number of platforms skipped.
	ArchivesSkipped int
	// Injected names the release archives that received platforms/.
	Injected []string
	// InjectFailures counts release archives that failed injection.
	InjectFailures int
	// ReleaseArchives is the number of release archives verified.
	ReleaseArchives int
	// ChecksumFiles is the number of checksum files found.
	ChecksumFiles int
	// NotesPath is the per-release notes document, when written.
	NotesPath string
	// Duration is the total run time.
	Duration time.Duration
}

// StageError is a fatal pipeline failure attributed to one stage.
type StageError struct {
	// Stage is where the run halted.
	Stage Stage
	// Err is the underlying failure.
	Err error
	// TagCleanupFailed is true when the transient build tag could not
	// be removed and may still exist; the operator must delete it
	// before re-running.
	TagCleanupFailed bool
}

func (e *StageError) Error() string {
	if e.TagCleanupFailed {
		return fmt.Sprintf("stage %s: %v (transient tag was NOT cleaned up)", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }
