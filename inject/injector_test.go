package inject

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/cassandragargoyle/shipwright/archive"
	"github.com/cassandragargoyle/shipwright/log"
)

func testLogger() *log.Logger {
	return log.NewLogger(log.RunContext{RunID: "test"}).WithOutput(io.Discard)
}

// makeRelease writes a release archive with the given members.
func makeRelease(t *testing.T, path string, members map[string]string) {
	t.Helper()
	stage := t.TempDir()
	for name, content := range members {
		full := filepath.Join(stage, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := archive.Write(archive.FormatOf(path), stage, path); err != nil {
		t.Fatalf("write release archive: %v", err)
	}
}

func makePlatformArchives(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"linux-amd64.tar.gz", "windows-amd64.zip"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("payload-"+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readMembers(t *testing.T, path string) map[string]string {
	t.Helper()
	members := make(map[string]string)
	switch archive.FormatOf(path) {
	case archive.FormatZip:
		r, err := zip.OpenReader(path)
		if err != nil {
			t.Fatalf("open %s: %v", path, err)
		}
		defer r.Close()
		for _, f := range r.File {
			if f.FileInfo().IsDir() {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatal(err)
			}
			members[f.Name] = string(data)
		}
	case archive.FormatTarGz:
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("gzip %s: %v", path, err)
		}
		tr := tar.NewReader(gz)
		for {
			header, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatal(err)
			}
			if header.Typeflag != tar.TypeReg {
				continue
			}
			content, err := io.ReadAll(tr)
			if err != nil {
				t.Fatal(err)
			}
			members[header.Name] = string(content)
		}
	default:
		t.Fatalf("unknown format for %s", path)
	}
	return members
}

func TestRun_RoundTripPreservesContent(t *testing.T) {
	dist := t.TempDir()
	platforms := filepath.Join(dist, "platforms")
	makePlatformArchives(t, platforms)

	original := map[string]string{
		"shipwright":  "binary-content",
		"install.sh":  "#!/bin/sh",
		"docs/GUIDE":  "guide",
		"LICENSE.txt": "license",
	}
	relPath := filepath.Join(dist, "shipwright_1.2.3_linux_amd64.tar.gz")
	makeRelease(t, relPath, original)

	inj := New(dist, platforms, "shipwright", Options{}, testLogger())
	result, err := inj.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Injected) != 1 {
		t.Fatalf("Injected = %v, want one archive", result.Injected)
	}

	members := readMembers(t, relPath)
	for name, content := range original {
		if members[name] != content {
			t.Errorf("member %s changed or missing: %q", name, members[name])
		}
	}
	if members["platforms/linux-amd64.tar.gz"] != "payload-linux-amd64.tar.gz" {
		t.Error("linux platform archive missing from platforms/")
	}
	if members["platforms/windows-amd64.zip"] != "payload-windows-amd64.zip" {
		t.Error("windows platform archive missing from platforms/")
	}
}

func TestRun_ZipRelease(t *testing.T) {
	dist := t.TempDir()
	platforms := filepath.Join(dist, "platforms")
	makePlatformArchives(t, platforms)

	relPath := filepath.Join(dist, "shipwright_1.2.3_windows_amd64.zip")
	makeRelease(t, relPath, map[string]string{"shipwright.exe": "binary"})

	inj := New(dist, platforms, "shipwright", Options{}, testLogger())
	if _, err := inj.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	members := readMembers(t, relPath)
	if members["shipwright.exe"] != "binary" {
		t.Error("pre-existing member lost")
	}
	if _, ok := members["platforms/windows-amd64.zip"]; !ok {
		t.Error("platform archive not injected")
	}
}

func TestRun_Idempotent(t *testing.T) {
	dist := t.TempDir()
	platforms := filepath.Join(dist, "platforms")
	makePlatformArchives(t, platforms)

	relPath := filepath.Join(dist, "shipwright_1.2.3_linux_amd64.tar.gz")
	makeRelease(t, relPath, map[string]string{"shipwright": "binary"})

	inj := New(dist, platforms, "shipwright", Options{}, testLogger())
	if _, err := inj.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	once := readMembers(t, relPath)

	if _, err := inj.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	twice := readMembers(t, relPath)

	if len(once) != len(twice) {
		t.Fatalf("member count changed across runs: %d vs %d", len(once), len(twice))
	}
	for name, content := range once {
		if twice[name] != content {
			t.Errorf("member %s differs across runs", name)
		}
	}
}

func TestRun_SkipsWhenNoPlatformArchives(t *testing.T) {
	dist := t.TempDir()
	relPath := filepath.Join(dist, "shipwright_1.2.3_linux_amd64.tar.gz")
	makeRelease(t, relPath, map[string]string{"shipwright": "binary"})
	before := readMembers(t, relPath)

	inj := New(dist, filepath.Join(dist, "platforms"), "shipwright", Options{}, testLogger())
	result, err := inj.Run(context.Background())
	if !errors.Is(err, ErrNoPlatformArchives) {
		t.Fatalf("Run error = %v, want ErrNoPlatformArchives", err)
	}
	if !result.SkippedNoInput {
		t.Fatal("expected SkippedNoInput")
	}

	after := readMembers(t, relPath)
	if len(before) != len(after) {
		t.Error("release archive modified despite skip")
	}
}

func TestRun_FailureIsolatedPerArchive(t *testing.T) {
	dist := t.TempDir()
	platforms := filepath.Join(dist, "platforms")
	makePlatformArchives(t, platforms)

	good := filepath.Join(dist, "shipwright_1.2.3_linux_amd64.tar.gz")
	makeRelease(t, good, map[string]string{"shipwright": "binary"})

	// Corrupt archive: valid name, invalid gzip body.
	bad := filepath.Join(dist, "shipwright_1.2.3_darwin_amd64.tar.gz")
	if err := os.WriteFile(bad, []byte("not a gzip stream"), 0o644); err != nil {
		t.Fatal(err)
	}

	inj := New(dist, platforms, "shipwright", Options{}, testLogger())
	result, err := inj.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregate error for corrupt archive")
	}

	if len(result.Injected) != 1 || result.Injected[0] != filepath.Base(good) {
		t.Errorf("good archive not injected: %v", result.Injected)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %v, want one", result.Failures)
	}
	if result.Failures[0].Op != "extract" {
		t.Errorf("failure op = %s, want extract", result.Failures[0].Op)
	}

	// The corrupt original must be left in place, not deleted.
	data, readErr := os.ReadFile(bad)
	if readErr != nil {
		t.Fatalf("corrupt archive removed: %v", readErr)
	}
	if string(data) != "not a gzip stream" {
		t.Error("corrupt archive body changed")
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Errorf("aggregate error does not expose *StepError: %v", err)
	}
}

func TestRun_FailFastStopsRemainingArchives(t *testing.T) {
	dist := t.TempDir()
	platforms := filepath.Join(dist, "platforms")
	makePlatformArchives(t, platforms)

	// Corrupt archive sorting before the healthy one.
	bad := filepath.Join(dist, "shipwright_1.2.3_darwin_amd64.tar.gz")
	if err := os.WriteFile(bad, []byte("not a gzip stream"), 0o644); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dist, "shipwright_1.2.3_linux_amd64.tar.gz")
	makeRelease(t, good, map[string]string{"shipwright": "binary"})
	before := readMembers(t, good)

	inj := New(dist, platforms, "shipwright", Options{FailFast: true}, testLogger())
	result, err := inj.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure from corrupt archive")
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error is not a *StepError: %v", err)
	}
	if len(result.Injected) != 0 {
		t.Errorf("archives processed after first failure: %v", result.Injected)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %v, want one", result.Failures)
	}

	// The healthy archive must be left untouched.
	after := readMembers(t, good)
	if len(after) != len(before) {
		t.Error("later-sorting archive rewritten after first failure")
	}
	if _, ok := after["platforms/linux-amd64.tar.gz"]; ok {
		t.Error("platform archives injected into later-sorting archive")
	}
}

func TestRun_ZipMemberWithoutModeBits(t *testing.T) {
	dist := t.TempDir()
	platforms := filepath.Join(dist, "platforms")
	makePlatformArchives(t, platforms)

	// Some zip tooling marks members as unix but stores no permission
	// bits at all.
	relPath := filepath.Join(dist, "shipwright_1.2.3_windows_amd64.zip")
	f, err := os.Create(relPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	hdr := &zip.FileHeader{Name: "shipwright.exe", Method: zip.Deflate}
	hdr.CreatorVersion = 3 << 8
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("binary")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	inj := New(dist, platforms, "shipwright", Options{}, testLogger())
	result, err := inj.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Injected) != 1 {
		t.Fatalf("Injected = %v, want one archive", result.Injected)
	}
	members := readMembers(t, relPath)
	if members["shipwright.exe"] != "binary" {
		t.Error("member content lost across rewrite")
	}
}

func TestRun_NoPartialFilesLeftBehind(t *testing.T) {
	dist := t.TempDir()
	platforms := filepath.Join(dist, "platforms")
	makePlatformArchives(t, platforms)

	relPath := filepath.Join(dist, "shipwright_1.2.3_linux_amd64.tar.gz")
	makeRelease(t, relPath, map[string]string{"shipwright": "binary"})

	inj := New(dist, platforms, "shipwright", Options{}, testLogger())
	if _, err := inj.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := os.ReadDir(dist)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); archive.FormatOf(name) == "" && name != "platforms" {
			t.Errorf("unexpected leftover file %s", name)
		}
	}
}

func TestRun_ParallelWorkers(t *testing.T) {
	dist := t.TempDir()
	platforms := filepath.Join(dist, "platforms")
	makePlatformArchives(t, platforms)

	names := []string{
		"shipwright_1.2.3_linux_amd64.tar.gz",
		"shipwright_1.2.3_linux_arm64.tar.gz",
		"shipwright_1.2.3_darwin_amd64.tar.gz",
		"shipwright_1.2.3_windows_amd64.zip",
	}
	for _, name := range names {
		makeRelease(t, filepath.Join(dist, name), map[string]string{"shipwright": "binary-" + name})
	}

	inj := New(dist, platforms, "shipwright", Options{Parallel: 4}, testLogger())
	result, err := inj.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Injected) != len(names) {
		t.Fatalf("Injected = %v, want %d archives", result.Injected, len(names))
	}
	for _, name := range names {
		members := readMembers(t, filepath.Join(dist, name))
		if members["shipwright"] != "binary-"+name {
			t.Errorf("%s: original member lost", name)
		}
		if _, ok := members["platforms/linux-amd64.tar.gz"]; !ok {
			t.Errorf("%s: platforms/ member missing", name)
		}
	}
}

func TestSecurePath_RejectsTraversal(t *testing.T) {
	for _, name := range []string{"../escape", "/abs/path", "a/../../escape"} {
		if _, err := securePath("/tmp/x", name); err == nil {
			t.Errorf("securePath accepted %q", name)
		}
	}
	if _, err := securePath("/tmp/x", "ok/inner.txt"); err != nil {
		t.Errorf("securePath rejected safe path: %v", err)
	}
}
