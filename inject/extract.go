package inject

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/cassandragargoyle/shipwright/archive"
	"github.com/cassandragargoyle/shipwright/iox"
)

// extract unpacks a release archive into destDir. Members that would
// escape destDir are rejected.
func extract(format archive.Format, path, destDir string) error {
	switch format {
	case archive.FormatZip:
		return extractZip(path, destDir)
	case archive.FormatTarGz:
		return extractTarGz(path, destDir)
	default:
		return fmt.Errorf("unknown archive format %q", format)
	}
}

func extractZip(path, destDir string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(r)

	for _, f := range r.File {
		target, err := securePath(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := writeExtracted(target, f.Mode(), func(w io.Writer) error {
			rc, err := f.Open()
			if err != nil {
				return err
			}
			defer iox.DiscardClose(rc)
			_, err = io.Copy(w, rc)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

func extractTarGz(path, destDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(f)

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(gz)

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := securePath(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeExtracted(target, os.FileMode(header.Mode), func(w io.Writer) error {
				_, err := io.Copy(w, tr)
				return err
			}); err != nil {
				return err
			}
		default:
			// Symlinks and special files do not occur in release
			// archives; skip anything unexpected.
		}
	}
}

// securePath joins name under destDir and rejects traversal escapes.
func securePath(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive member escapes extraction root: %q", name)
	}
	return filepath.Join(destDir, cleaned), nil
}

func writeExtracted(target string, mode os.FileMode, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	perm := mode.Perm()
	if perm == 0 {
		// Some archive tooling stores members with no mode bits; a
		// 0000 file could not be re-read during the rewrite.
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := fill(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// copyFile copies src to dest, overwriting any existing file. A stale
// copy from a previous partial run is legitimate and gets replaced.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(in)

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
