package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/cassandragargoyle/shipwright/iox"
)

// statFile wraps os.Stat so Archive.Size stays testable without
// touching the package-level os import surface.
func statFile(path string) (os.FileInfo, error) { return os.Stat(path) }

// WriteTarGz archives every entry of sourceDir into a tar.gz at dest.
// Entries are added with paths relative to sourceDir, sorted by name
// so the member set is deterministic for identical inputs.
func WriteTarGz(sourceDir, dest string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	if err := addTree(sourceDir, func(rel string, info fs.FileInfo, path string) error {
		return writeTarEntry(tw, rel, info, path)
	}); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func writeTarEntry(tw *tar.Writer, rel string, info fs.FileInfo, path string) error {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		header.Name += "/"
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(f)
	_, err = io.Copy(tw, f)
	return err
}

// WriteZip archives every file under sourceDir into a zip at dest,
// preserving relative paths recursively. Member order is the sorted
// walk order, so the member set is deterministic for identical inputs.
func WriteZip(sourceDir, dest string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out)

	if err := addTree(sourceDir, func(rel string, info fs.FileInfo, path string) error {
		if info.IsDir() {
			return nil
		}
		return writeZipEntry(zw, rel, info, path)
	}); err != nil {
		return err
	}

	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, rel string, info fs.FileInfo, path string) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(f)
	_, err = io.Copy(w, f)
	return err
}

// addTree walks sourceDir depth-first in sorted name order and calls
// fn for every entry below the root, with rel relative to sourceDir.
func addTree(sourceDir string, fn func(rel string, info fs.FileInfo, path string) error) error {
	return filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == sourceDir {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(rel, info, path)
	})
}

// listSorted returns the names of entries directly under dir, sorted.
func listSorted(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Write creates an archive of sourceDir at dest in the given format.
func Write(format Format, sourceDir, dest string) error {
	switch format {
	case FormatZip:
		return WriteZip(sourceDir, dest)
	case FormatTarGz:
		return WriteTarGz(sourceDir, dest)
	default:
		return fmt.Errorf("unknown archive format %q", format)
	}
}
