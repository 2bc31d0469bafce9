package orchestrator

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/luminakraft/modpack-engine/internal/layout"
	"github.com/luminakraft/modpack-engine/internal/logging"
	"github.com/luminakraft/modpack-engine/internal/metastore"
	"github.com/luminakraft/modpack-engine/internal/types"
)

type fakePlatform struct{ root string }

func (f *fakePlatform) GetOS() string                     { return "linux" }
func (f *fakePlatform) GetArch() string                   { return "amd64" }
func (f *fakePlatform) GetExecutablePath() (string, error) { return "/usr/bin/engine", nil }
func (f *fakePlatform) GetAppDataDir() (string, error)     { return f.root, nil }
func (f *fakePlatform) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
func (f *fakePlatform) CreateDirectory(path string) error { return os.MkdirAll(path, 0755) }
func (f *fakePlatform) GetAvailableDiskSpace(path string) (int64, error) {
	return 1 << 30, nil
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	l, err := layout.New(&fakePlatform{root: t.TempDir()})
	if err != nil {
		t.Fatalf("layout.New: %v", err)
	}
	logger := logging.Noop()
	store := metastore.New(l, logger)
	return NewEngine(l, store, logger, "")
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("zip write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
}

// TestInstallCurseForgeFreshInstall drives the full orchestrator state
// machine end to end for a CurseForge modpack: fetch, extract, resolve,
// download, reconcile, build integrity, persist metadata.
func TestInstallCurseForgeFreshInstall(t *testing.T) {
	modServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mod-bytes"))
	}))
	defer modServer.Close()

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":1,"modId":100,"fileName":"alpha.jar","downloadUrl":"` + modServer.URL + `","hashes":[]}]}`))
	}))
	defer proxy.Close()

	manifest := `{
		"minecraft": {"version": "1.20.1", "modLoaders": [{"id": "forge-47.3.0", "primary": true}]},
		"name": "Test Pack",
		"version": "1.0.0",
		"files": [{"projectID": 100, "fileID": 1, "required": true}],
		"overrides": "overrides"
	}`

	archiveDir := t.TempDir()
	archivePath := filepath.Join(archiveDir, "pack.zip")
	writeZip(t, archivePath, map[string]string{
		"manifest.json":          manifest,
		"overrides/config/a.txt": "override-content",
	})

	archiveServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, archivePath)
	}))
	defer archiveServer.Close()

	engine := newTestEngine(t)
	engine.cfClient.SetBaseURL(proxy.URL)

	result, err := engine.Install(context.Background(), InstallOptions{
		Descriptor: types.ModpackDescriptor{
			ID:               "pack-1",
			Version:          "1.0.0",
			MinecraftVersion: "1.20.1",
			ArchiveURL:       archiveServer.URL,
			Category:         types.CategoryCommunity,
		},
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if result.Metadata.ModLoader != types.ModLoaderForge || result.Metadata.ModLoaderVersion != "47.3.0" {
		t.Errorf("unexpected modloader in metadata: %+v", result.Metadata)
	}
	if len(result.FailedFiles) != 0 {
		t.Errorf("expected no failed files, got %+v", result.FailedFiles)
	}

	instanceDir, _ := engine.layout.InstanceDir("pack-1")
	if _, err := os.Stat(filepath.Join(instanceDir, "mods", "alpha.jar")); err != nil {
		t.Errorf("expected alpha.jar downloaded: %v", err)
	}
	if _, err := os.Stat(filepath.Join(instanceDir, "config", "a.txt")); err != nil {
		t.Errorf("expected override applied: %v", err)
	}

	loaded, err := engine.store.Load("pack-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.Integrity == nil {
		t.Fatal("expected persisted metadata with integrity blob")
	}
	if _, ok := loaded.Integrity.FileHashes["mods/alpha.jar"]; !ok {
		t.Errorf("expected mods/alpha.jar in integrity file hashes, got %+v", loaded.Integrity.FileHashes)
	}
}

func TestResolveModeFreshWhenNoMetadata(t *testing.T) {
	engine := newTestEngine(t)
	mode, old, err := engine.resolveMode("nonexistent")
	if err != nil {
		t.Fatalf("resolveMode: %v", err)
	}
	if mode != 0 {
		t.Errorf("expected ModeFresh, got %v", mode)
	}
	if old != nil {
		t.Errorf("expected nil old files, got %v", old)
	}
}
