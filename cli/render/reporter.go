package render

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
)

// Color palette.
var (
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Reporter styles.
var (
	stepStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	warnStyle    = lipgloss.NewStyle().Foreground(warningColor)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
)

// Reporter writes human-oriented status lines to stderr, keeping
// stdout clean for rendered command output. Styling is dropped with
// --no-color or when stderr is not a TTY.
type Reporter struct {
	out   io.Writer
	color bool
}

// NewReporter creates a reporter from CLI context.
func NewReporter(c *cli.Context) *Reporter {
	return &Reporter{
		out:   os.Stderr,
		color: !c.Bool("no-color") && isTTY(os.Stderr),
	}
}

// NewReporterWithWriter creates a reporter with a custom writer (for testing).
func NewReporterWithWriter(out io.Writer, color bool) *Reporter {
	return &Reporter{out: out, color: color}
}

// Stepf announces a stage starting.
func (r *Reporter) Stepf(format string, args ...any) {
	r.line(stepStyle, "-> "+fmt.Sprintf(format, args...))
}

// Successf reports a completed outcome.
func (r *Reporter) Successf(format string, args ...any) {
	r.line(successStyle, "ok "+fmt.Sprintf(format, args...))
}

// Warnf reports a non-fatal condition.
func (r *Reporter) Warnf(format string, args ...any) {
	r.line(warnStyle, "warning: "+fmt.Sprintf(format, args...))
}

// Failf reports a fatal outcome.
func (r *Reporter) Failf(format string, args ...any) {
	r.line(failStyle, "failed: "+fmt.Sprintf(format, args...))
}

func (r *Reporter) line(style lipgloss.Style, s string) {
	if r.color {
		s = style.Render(s)
	}
	fmt.Fprintln(r.out, s)
}
