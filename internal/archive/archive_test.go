package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return path
}

func TestExtractNormalArchive(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"manifest.json":         `{"name":"pack"}`,
		"overrides/config/a.cfg": "value=1",
	})
	target := filepath.Join(t.TempDir(), "out")

	if err := Extract(zipPath, target); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(target, "manifest.json"))
	if err != nil {
		t.Fatalf("read extracted manifest: %v", err)
	}
	if string(data) != `{"name":"pack"}` {
		t.Errorf("unexpected manifest content: %s", data)
	}

	if _, err := os.Stat(filepath.Join(target, "overrides", "config", "a.cfg")); err != nil {
		t.Errorf("expected nested override file to exist: %v", err)
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"../../evil.txt": "pwned",
	})
	target := filepath.Join(t.TempDir(), "out")

	err := Extract(zipPath, target)
	if err == nil {
		t.Fatal("expected path traversal to be rejected")
	}

	if _, statErr := os.Stat(filepath.Join(filepath.Dir(filepath.Dir(target)), "evil.txt")); statErr == nil {
		t.Fatal("path traversal entry was written outside target directory")
	}
}

func TestExtractRejectsEmptyArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	if err := Extract(path, filepath.Join(t.TempDir(), "out")); err == nil {
		t.Fatal("expected error extracting empty archive")
	}
}

func TestExtractRejectsCorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.zip")
	if err := os.WriteFile(path, []byte("not a zip file at all"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if err := Extract(path, filepath.Join(t.TempDir(), "out")); err == nil {
		t.Fatal("expected error extracting corrupt archive")
	}
}

func TestCopyTreeOverwritesAndNests(t *testing.T) {
	src := filepath.Join(t.TempDir(), "overrides")
	if err := os.MkdirAll(filepath.Join(src, "config"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "config", "a.cfg"), []byte("new"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dst := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dst, "config"), 0755); err != nil {
		t.Fatalf("mkdir dst: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dst, "config", "a.cfg"), []byte("old"), 0644); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "config", "a.cfg"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("expected CopyTree to overwrite existing file, got %q", data)
	}
}

func TestCopyTreeMissingSourceIsNoop(t *testing.T) {
	dst := t.TempDir()
	if err := CopyTree(filepath.Join(t.TempDir(), "does-not-exist"), dst); err != nil {
		t.Errorf("expected missing source to be a no-op, got %v", err)
	}
}
