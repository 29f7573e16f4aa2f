// Package notes loads, validates, and aggregates per-version
// release-note records into Markdown documents.
//
// Records are human-maintained JSON files, one per version, named
// "{version}.json" (no "v" prefix) in the release-notes directory.
// Files with a "_" prefix (such as the advisory "_schema.json") are
// not records.
package notes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cassandragargoyle/shipwright/version"
)

// Change is a single change entry within a category.
type Change struct {
	Description string `json:"description"`
	// Issue is an optional issue reference, rendered in parentheses.
	Issue string `json:"issue,omitempty"`
}

// Record is one version's release notes.
type Record struct {
	Version    string              `json:"version"`
	Date       string              `json:"date"`
	Tag        string              `json:"tag"`
	Summary    string              `json:"summary,omitempty"`
	Highlights []string            `json:"highlights,omitempty"`
	Changes    map[string][]Change `json:"changes,omitempty"`
	Components []string            `json:"components,omitempty"`
	Notes      string              `json:"notes,omitempty"`
}

// Category ordering is fixed: breaking and security render first.
var categoryOrder = []string{"breaking", "security", "features", "improvements", "fixes", "docs"}

var categoryTitles = map[string]string{
	"breaking":     "Breaking Changes",
	"security":     "Security",
	"features":     "New Features",
	"improvements": "Improvements",
	"fixes":        "Bug Fixes",
	"docs":         "Documentation",
}

// ValidationError is one validation finding for a record. Findings are
// non-fatal for document generation and fatal for check mode.
type ValidationError struct {
	Version string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s.json: %s", e.Version, e.Message)
}

// Store reads release-note records from a directory.
type Store struct {
	// Dir is the release-notes directory.
	Dir string
}

// Load reads the record for a numeric version ("1.8.0"). A missing
// file returns (nil, nil): "not yet written" is a normal state, not an
// error. Malformed JSON is an error.
func (s *Store) Load(numericVersion string) (*Record, error) {
	path := filepath.Join(s.Dir, numericVersion+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read record %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return &rec, nil
}

// Versions returns every numeric version that has a record file,
// newest first by parsed numeric version.
func (s *Store) Versions() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read release-notes directory: %w", err)
	}

	var parsed []version.Version
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		v, err := version.FromNumeric(strings.TrimSuffix(name, ".json"))
		if err != nil {
			// Not a version-named record file; ignore.
			continue
		}
		parsed = append(parsed, v)
	}

	version.SortDescending(parsed)
	versions := make([]string, len(parsed))
	for i, v := range parsed {
		versions[i] = v.Numeric()
	}
	return versions, nil
}

// Validate checks a record against its filename-derived version.
// Returned findings: missing required fields (version, date, tag),
// version/filename mismatch, tag not starting with "v".
func Validate(rec *Record, expectedVersion string) []ValidationError {
	var errs []ValidationError
	add := func(msg string) {
		errs = append(errs, ValidationError{Version: expectedVersion, Message: msg})
	}

	if rec.Version == "" {
		add("missing required field: version")
	}
	if rec.Date == "" {
		add("missing required field: date")
	}
	if rec.Tag == "" {
		add("missing required field: tag")
	}

	if rec.Version != "" && rec.Version != expectedVersion {
		add(fmt.Sprintf("version mismatch: file is %s.json but contains version %s", expectedVersion, rec.Version))
	}
	if rec.Tag != "" && !strings.HasPrefix(rec.Tag, "v") {
		add(fmt.Sprintf("tag should start with 'v': %s", rec.Tag))
	}

	return errs
}

// Missing returns the numeric versions in knownTags without a record,
// preserving knownTags order. Tags that are not valid release versions
// are ignored.
func (s *Store) Missing(knownTags []string) ([]string, error) {
	existing, err := s.Versions()
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		have[v] = struct{}{}
	}

	var missing []string
	for _, tag := range knownTags {
		v, err := version.Validate(tag)
		if err != nil || v.Snapshot() {
			continue
		}
		if _, ok := have[v.Numeric()]; !ok {
			missing = append(missing, v.Numeric())
		}
	}
	return missing, nil
}
