package notes

import (
	"fmt"
	"strings"
)

// RenderVersion renders one record as a Markdown section. Ordering is
// deterministic: summary, highlights, each change category in the
// fixed enumeration order (empty categories skipped), affected
// components, then free-text notes.
func RenderVersion(rec *Record) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	versionLabel := rec.Version
	if versionLabel == "" {
		versionLabel = "Unknown"
	}
	dateLabel := rec.Date
	if dateLabel == "" {
		dateLabel = "Unknown"
	}

	line("## " + versionLabel)
	line("")
	line(fmt.Sprintf("**Release Date:** %s", dateLabel))
	line("")

	if rec.Summary != "" {
		line(rec.Summary)
		line("")
	}

	if len(rec.Highlights) > 0 {
		line("### Highlights")
		line("")
		for _, h := range rec.Highlights {
			line("- " + h)
		}
		line("")
	}

	for _, category := range categoryOrder {
		items := rec.Changes[category]
		if len(items) == 0 {
			continue
		}
		line("### " + categoryTitles[category])
		line("")
		for _, item := range items {
			if item.Issue != "" {
				line(fmt.Sprintf("- %s (%s)", item.Description, item.Issue))
			} else {
				line("- " + item.Description)
			}
		}
		line("")
	}

	if len(rec.Components) > 0 {
		line("### Affected Components")
		line("")
		line(strings.Join(rec.Components, ", "))
		line("")
	}

	if rec.Notes != "" {
		line("### Notes")
		line("")
		line(rec.Notes)
		line("")
	}

	return b.String()
}
