package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cassandragargoyle/shipwright/log"
)

// DefaultFilename is the aggregated document's default name.
const DefaultFilename = "RELEASE-NOTES.md"

// Aggregator builds the aggregated release-notes document.
type Aggregator struct {
	// Store provides the record files.
	Store *Store
	// Product is the document title prefix.
	Product string

	logger *log.Logger
	now    func() time.Time
}

// NewAggregator creates an aggregator over the given record store.
func NewAggregator(store *Store, product string, logger *log.Logger) *Aggregator {
	return &Aggregator{
		Store:   store,
		Product: product,
		logger:  logger,
		now:     time.Now,
	}
}

// Aggregate renders the full document. With a non-nil subset only the
// listed versions that actually have records are rendered, silently
// skipping the rest; with a nil subset every recorded version renders,
// newest first by parsed numeric version.
//
// Validation findings are rendered anyway and surfaced as warnings:
// a malformed record must not block document generation.
func (a *Aggregator) Aggregate(subset []string) (string, error) {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(fmt.Sprintf("# %s Release Notes", a.Product))
	line("")
	line(fmt.Sprintf("Generated: %s", a.now().Format("2006-01-02 15:04:05")))
	line("")
	line("---")
	line("")

	toRender, err := a.resolveVersions(subset)
	if err != nil {
		return "", err
	}
	if len(toRender) == 0 {
		line("No release notes available.")
		line("")
		return b.String(), nil
	}

	for _, v := range toRender {
		rec, err := a.Store.Load(v)
		if err != nil {
			a.logger.Warn("skipping unreadable record", map[string]any{"version": v, "error": err.Error()})
			continue
		}
		if rec == nil {
			continue
		}
		for _, verr := range Validate(rec, v) {
			a.logger.Warn("record validation", map[string]any{"version": v, "finding": verr.Message})
		}
		b.WriteString(RenderVersion(rec))
		line("---")
		line("")
	}

	return b.String(), nil
}

func (a *Aggregator) resolveVersions(subset []string) ([]string, error) {
	existing, err := a.Store.Versions()
	if err != nil {
		return nil, err
	}
	if subset == nil {
		return existing, nil
	}

	have := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		have[v] = struct{}{}
	}
	var out []string
	for _, v := range subset {
		if _, ok := have[v]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// WriteDocument writes content to dir/filename atomically: the
// document is never observable partially written.
func WriteDocument(dir, filename, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	target := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, filename+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return target, nil
}

// CheckCompleteness verifies that every known released tag has a
// record. Strict mode fails with *MissingRecordsError; warn-only mode
// logs each missing version and succeeds.
func (a *Aggregator) CheckCompleteness(knownTags []string, warnOnly bool) ([]string, error) {
	missing, err := a.Store.Missing(knownTags)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return nil, nil
	}

	for _, v := range missing {
		a.logger.Warn("missing release-note record", map[string]any{"version": v, "tag": "v" + v})
	}
	if warnOnly {
		return missing, nil
	}
	return missing, &MissingRecordsError{Missing: missing}
}

// MissingRecordsError is the strict-mode completeness failure.
type MissingRecordsError struct {
	// Missing holds the numeric versions without records.
	Missing []string
}

func (e *MissingRecordsError) Error() string {
	return fmt.Sprintf("missing release notes for %d version(s): %s",
		len(e.Missing), strings.Join(e.Missing, ", "))
}
