package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luminakraft/modpack-engine/internal/logging"
)

func set(paths ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func writeFile(t *testing.T, dir, relPath string) {
	t.Helper()
	full := filepath.Join(dir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func exists(dir, relPath string) bool {
	_, err := os.Stat(filepath.Join(dir, relPath))
	return err == nil
}

func TestFreshInstallSkipsCleanup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mods/a.jar")

	Run(Input{InstanceDir: dir, Mode: ModeFresh, NewExpected: set()}, logging.Noop())

	if !exists(dir, "mods/a.jar") {
		t.Error("fresh install should not remove anything")
	}
}

func TestUpdateModeRemovesOnlyDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mods/keep.jar")
	writeFile(t, dir, "mods/drop.jar")
	writeFile(t, dir, "saves/world/level.dat")

	result := Run(Input{
		InstanceDir:       dir,
		Mode:              ModeUpdate,
		OldInstalledFiles: set("mods/keep.jar", "mods/drop.jar"),
		NewExpected:       set("mods/keep.jar"),
	}, logging.Noop())

	if exists(dir, "mods/drop.jar") {
		t.Error("expected dropped mod to be removed")
	}
	if !exists(dir, "mods/keep.jar") {
		t.Error("expected kept mod to survive")
	}
	if !exists(dir, "saves/world/level.dat") {
		t.Error("update mode must never touch files outside the old/new file sets")
	}
	if len(result.Removed) != 1 || result.Removed[0] != "mods/drop.jar" {
		t.Errorf("unexpected removed list: %v", result.Removed)
	}
}

func TestUpdateModeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mods/drop.jar")

	input := Input{
		InstanceDir:       dir,
		Mode:              ModeUpdate,
		OldInstalledFiles: set("mods/drop.jar"),
		NewExpected:       set(),
	}
	Run(input, logging.Noop())
	result := Run(input, logging.Noop())

	if len(result.Removed) != 0 {
		t.Errorf("second run should find nothing left to remove, got %v", result.Removed)
	}
}

func TestLegacyMigrationRemovesUnexpectedJarsAndZips(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mods/keep.jar")
	writeFile(t, dir, "mods/stale.jar")
	writeFile(t, dir, "resourcepacks/stale.zip")
	writeFile(t, dir, "mods/readme.txt") // not .jar, should be ignored

	Run(Input{
		InstanceDir: dir,
		Mode:        ModeLegacyMigration,
		NewExpected: set("mods/keep.jar"),
	}, logging.Noop())

	if exists(dir, "mods/stale.jar") {
		t.Error("expected stale jar to be removed")
	}
	if exists(dir, "resourcepacks/stale.zip") {
		t.Error("expected stale resourcepack to be removed")
	}
	if !exists(dir, "mods/keep.jar") {
		t.Error("expected kept jar to survive")
	}
	if !exists(dir, "mods/readme.txt") {
		t.Error("legacy migration should not touch non-jar files in mods/")
	}
}

func TestAntiCheatCleanupRemovesUnauthorizedModsWhenDisallowed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mods/official.jar")
	writeFile(t, dir, "mods/extra.jar")

	Run(Input{
		InstanceDir: dir,
		Mode:        ModeFresh,
		NewExpected: set("mods/official.jar"),
		Managed:     true,
		Policy:      PolicyFlags{AllowCustomMods: false},
	}, logging.Noop())

	if exists(dir, "mods/extra.jar") {
		t.Error("expected unauthorized mod to be removed")
	}
	if !exists(dir, "mods/official.jar") {
		t.Error("expected official mod to survive")
	}
}

func TestAntiCheatCleanupSkippedWhenCustomModsAllowed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mods/extra.jar")

	Run(Input{
		InstanceDir: dir,
		Mode:        ModeFresh,
		NewExpected: set(),
		Managed:     true,
		Policy:      PolicyFlags{AllowCustomMods: true},
	}, logging.Noop())

	if !exists(dir, "mods/extra.jar") {
		t.Error("expected custom mod to survive when allowed")
	}
}

func TestAntiCheatCleanupConfigIsRecursiveAnyExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config/nested/extra.toml")
	writeFile(t, dir, "config/official.cfg")
	writeFile(t, dir, "scripts/deep/hack.zs")

	Run(Input{
		InstanceDir: dir,
		Mode:        ModeFresh,
		NewExpected: set("config/official.cfg"),
		Managed:     true,
		Policy:      PolicyFlags{AllowCustomConfigs: false},
	}, logging.Noop())

	if exists(dir, "config/nested/extra.toml") {
		t.Error("expected nested unauthorized config file to be removed")
	}
	if exists(dir, "scripts/deep/hack.zs") {
		t.Error("expected nested unauthorized script to be removed")
	}
	if !exists(dir, "config/official.cfg") {
		t.Error("expected official config to survive")
	}
}

func TestUnmanagedInstanceSkipsAntiCheat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mods/extra.jar")

	Run(Input{
		InstanceDir: dir,
		Mode:        ModeFresh,
		NewExpected: set(),
		Managed:     false,
	}, logging.Noop())

	if !exists(dir, "mods/extra.jar") {
		t.Error("community/imported instances must bypass anti-cheat cleanup")
	}
}
