package curseforge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/luminakraft/modpack-engine/internal/fetch"
	"github.com/luminakraft/modpack-engine/internal/hashsign"
	"github.com/luminakraft/modpack-engine/internal/logging"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(content), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

// TestProcessFreshInstallReportsFailedAndBuildsMods covers scenario S1:
// a manifest listing 3 files, 2 resolvable and 1 with no download URL.
func TestProcessFreshInstallReportsFailedAndBuildsMods(t *testing.T) {
	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jar-bytes"))
	}))
	defer fileServer.Close()

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":1,"modId":100,"fileName":"alpha.jar","downloadUrl":"` + fileServer.URL + `","hashes":[]},
			{"id":2,"modId":200,"fileName":"beta.jar","downloadUrl":"` + fileServer.URL + `","hashes":[]},
			{"id":3,"modId":300,"fileName":"gamma.jar"}
		]}`))
	}))
	defer proxy.Close()

	tempDir := t.TempDir()
	writeManifest(t, tempDir, `{
		"minecraft": {"version": "1.20.1", "modLoaders": [{"id": "forge-47.3.0", "primary": true}]},
		"name": "Test Pack",
		"version": "1.0.0",
		"files": [
			{"projectID": 100, "fileID": 1, "required": true},
			{"projectID": 200, "fileID": 2, "required": true},
			{"projectID": 300, "fileID": 3, "required": true}
		],
		"overrides": "overrides"
	}`)

	instanceDir := t.TempDir()
	logger := logging.Noop()
	client := NewClient(logger, "")
	client.SetBaseURL(proxy.URL)
	fetcher := fetch.New(logger)

	result, err := Process(context.Background(), tempDir, instanceDir, client, fetcher, 4, nil, logger)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.ModLoader != "forge" || result.ModLoaderVersion != "47.3.0" {
		t.Errorf("unexpected modloader info: %+v", result)
	}
	if len(result.FailedFiles) != 1 || result.FailedFiles[0].FileName != "gamma.jar" {
		t.Errorf("expected exactly one failed file (gamma.jar), got %+v", result.FailedFiles)
	}

	for _, name := range []string{"alpha.jar", "beta.jar"} {
		if _, err := os.Stat(filepath.Join(instanceDir, "mods", name)); err != nil {
			t.Errorf("expected %s to be downloaded: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(instanceDir, "mods", "gamma.jar")); err == nil {
		t.Error("gamma.jar should not have been created with no download url")
	}
}

func TestMatchesHashFallsBackToMD5(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.jar")
	if err := os.WriteFile(path, []byte("jar-bytes"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	md5Sum, err := hashsign.MD5File(path)
	if err != nil {
		t.Fatalf("MD5File: %v", err)
	}

	if matchesHash(path, "", "") {
		t.Error("expected no match with no expected hashes")
	}
	if matchesHash(path, "deadbeef", "") {
		t.Error("expected no match with a wrong SHA-1 and no MD5")
	}
	if !matchesHash(path, "", md5Sum) {
		t.Error("expected a match on MD5 alone")
	}
	if !matchesHash(path, "deadbeef", md5Sum) {
		t.Error("expected a match on MD5 when SHA-1 is present but wrong")
	}
}

func TestModloaderInfoPrefersPrimary(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"minecraft": {"version": "1.20.1", "modLoaders": [
			{"id": "fabric-0.14.0", "primary": false},
			{"id": "forge-47.3.0", "primary": true}
		]},
		"files": [],
		"overrides": "overrides"
	}`)
	manifest, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	name, version, err := ModloaderInfo(manifest)
	if err != nil {
		t.Fatalf("ModloaderInfo: %v", err)
	}
	if name != "forge" || version != "47.3.0" {
		t.Errorf("expected forge/47.3.0, got %s/%s", name, version)
	}
}

func TestModloaderInfoFallsBackToFirst(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"minecraft": {"version": "1.20.1", "modLoaders": [
			{"id": "fabric-0.14.0", "primary": false}
		]},
		"files": [],
		"overrides": "overrides"
	}`)
	manifest, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	name, version, err := ModloaderInfo(manifest)
	if err != nil {
		t.Fatalf("ModloaderInfo: %v", err)
	}
	if name != "fabric" || version != "0.14.0" {
		t.Errorf("expected fabric/0.14.0, got %s/%s", name, version)
	}
}
