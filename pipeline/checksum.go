package pipeline

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cassandragargoyle/shipwright/iox"
)

// fileSHA256 computes the hex SHA-256 digest of a file.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer iox.DiscardClose(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyChecksums validates the entries of a checksums file (standard
// "<hex>  <filename>" lines) against the files in dir. Entries whose
// file is absent are skipped: the checksums file may cover artifacts
// that were filtered out of this run. Returns the number of entries
// verified.
func verifyChecksums(checksumPath, dir string) (int, error) {
	f, err := os.Open(checksumPath)
	if err != nil {
		return 0, err
	}
	defer iox.DiscardClose(f)

	verified := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return verified, fmt.Errorf("malformed checksum line: %q", line)
		}
		wantSum, name := fields[0], fields[1]

		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		gotSum, err := fileSHA256(path)
		if err != nil {
			return verified, fmt.Errorf("hash %s: %w", name, err)
		}
		if !strings.EqualFold(gotSum, wantSum) {
			return verified, fmt.Errorf("checksum mismatch for %s: have %s, want %s", name, gotSum, wantSum)
		}
		verified++
	}
	return verified, scanner.Err()
}

// writeChecksums writes a checksums file covering the given files,
// with names relative to dir.
func writeChecksums(dir, filename string, files []string) (string, error) {
	var b strings.Builder
	for _, path := range files {
		sum, err := fileSHA256(path)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		fmt.Fprintf(&b, "%s  %s\n", sum, filepath.ToSlash(rel))
	}

	target := filepath.Join(dir, filename)
	if err := os.WriteFile(target, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return target, nil
}
