package archive

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

	"github.com/cassandragargoyle/shipwright/log"
)

func testLogger() *log.Logger {
	return log.NewLogger(log.RunContext{RunID: "test"}).WithOutput(io.Discard)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuild_OnePlatformPopulated(t *testing.T) {
	platformsDir := t.TempDir()
	writeFile(t, filepath.Join(platformsDir, "linux-amd64", "shipwright"), "binary")
	// Empty directory counts as a skip, same as a missing one.
	if err := os.MkdirAll(filepath.Join(platformsDir, "linux-arm64"), 0o755); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder(platformsDir, "", testLogger())
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if result.CreatedCount() != 1 {
		t.Fatalf("CreatedCount = %d, want 1", result.CreatedCount())
	}
	if result.SkippedCount() != 3 {
		t.Fatalf("SkippedCount = %d, want 3", result.SkippedCount())
	}
	want := filepath.Join(platformsDir, "linux-amd64.tar.gz")
	if result.Created[0].Path != want {
		t.Errorf("archive path = %s, want %s", result.Created[0].Path, want)
	}
	if result.Created[0].Size() <= 0 {
		t.Error("archive size not recorded")
	}
}

func TestBuild_ZeroPlatformsFails(t *testing.T) {
	b := NewBuilder(t.TempDir(), "", testLogger())
	_, err := b.Build(context.Background())
	if !errors.Is(err, ErrNoArchives) {
		t.Fatalf("expected ErrNoArchives, got %v", err)
	}
}

func TestBuild_MissingRootFails(t *testing.T) {
	b := NewBuilder(filepath.Join(t.TempDir(), "absent"), "", testLogger())
	_, err := b.Build(context.Background())
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
}

func TestBuild_WindowsUsesZip(t *testing.T) {
	platformsDir := t.TempDir()
	writeFile(t, filepath.Join(platformsDir, "windows-amd64", "shipwright.exe"), "binary")
	writeFile(t, filepath.Join(platformsDir, "windows-amd64", "docs", "README.md"), "readme")

	b := NewBuilder(platformsDir, "", testLogger())
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.CreatedCount() != 1 {
		t.Fatalf("CreatedCount = %d, want 1", result.CreatedCount())
	}

	// Zip members preserve relative paths recursively.
	members := readZipMembers(t, result.Created[0].Path)
	if members["shipwright.exe"] != "binary" {
		t.Errorf("missing top-level member, got %v", members)
	}
	if members["docs/README.md"] != "readme" {
		t.Errorf("missing nested member, got %v", members)
	}
}

func TestBuild_TarGzRoundTrip(t *testing.T) {
	platformsDir := t.TempDir()
	writeFile(t, filepath.Join(platformsDir, "linux-amd64", "shipwright"), "binary")
	writeFile(t, filepath.Join(platformsDir, "linux-amd64", "install.sh"), "#!/bin/sh")

	outputDir := t.TempDir()
	b := NewBuilder(platformsDir, outputDir, testLogger())
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	members := readTarGzMembers(t, result.Created[0].Path)
	if members["shipwright"] != "binary" {
		t.Errorf("missing shipwright member, got %v", members)
	}
	if members["install.sh"] != "#!/bin/sh" {
		t.Errorf("missing install.sh member, got %v", members)
	}
}

func TestBuild_DeterministicMemberSet(t *testing.T) {
	platformsDir := t.TempDir()
	for _, name := range []string{"c", "a", "b"} {
		writeFile(t, filepath.Join(platformsDir, "linux-amd64", name), name)
	}

	b := NewBuilder(platformsDir, "", testLogger())
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	first := memberNames(t, filepath.Join(platformsDir, "linux-amd64.tar.gz"))
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	second := memberNames(t, filepath.Join(platformsDir, "linux-amd64.tar.gz"))

	if len(first) != len(second) {
		t.Fatalf("member counts differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("member order differs: %v vs %v", first, second)
		}
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "linux-amd64.tar.gz"), "x")
	writeFile(t, filepath.Join(dir, "windows-amd64.zip"), "y")
	writeFile(t, filepath.Join(dir, "unrelated.txt"), "z")

	found := Discover(dir)
	if len(found) != 2 {
		t.Fatalf("Discover found %d archives, want 2", len(found))
	}
	if found[0].Name() != "linux-amd64.tar.gz" || found[1].Name() != "windows-amd64.zip" {
		t.Errorf("unexpected discovery order: %s, %s", found[0].Name(), found[1].Name())
	}
}

func readZipMembers(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip %s: %v", path, err)
	}
	defer r.Close()

	members := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open member %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read member %s: %v", f.Name, err)
		}
		members[f.Name] = string(data)
	}
	return members
}

func readTarGzMembers(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip %s: %v", path, err)
	}
	tr := tar.NewReader(gz)

	members := make(map[string]string)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar %s: %v", path, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("tar member %s: %v", header.Name, err)
		}
		members[header.Name] = string(content)
	}
	return members
}

// memberNames reads tar member names in archive order.
func memberNames(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)
	var names []string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, header.Name)
	}
	return names
}
