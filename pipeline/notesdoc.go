package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/cassandragargoyle/shipwright/notes"
	"github.com/cassandragargoyle/shipwright/version"
)

// renderReleaseDocument builds the per-release notes document placed
// next to the release archives. The curated record body is included
// when one exists; otherwise a placeholder marks the gap so it shows
// up in review before publishing.
func renderReleaseDocument(product string, v version.Version, rec *notes.Record, commit string, buildTime time.Time) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(fmt.Sprintf("# %s %s", product, v.Tag()))
	line("")
	line(fmt.Sprintf("**Build Date:** %s", buildTime.Format("2006-01-02 15:04:05 MST")))
	line(fmt.Sprintf("**Commit:** %s", commit))
	if v.Snapshot() {
		line("")
		line("> Snapshot build, not intended for production use.")
	}
	line("")
	line("---")
	line("")

	if rec != nil {
		b.WriteString(notes.RenderVersion(rec))
	} else {
		line("## Changes")
		line("")
		line(fmt.Sprintf("_No release-note record found for %s._", v.Numeric()))
		line("")
	}

	line("---")
	line("")
	line("## Artifacts")
	line("")
	line(fmt.Sprintf("Release archives carry bundled platform archives under `%s/`.", "platforms"))
	line("Verify downloads against the checksums file shipped alongside them.")
	line("")
	return b.String()
}
