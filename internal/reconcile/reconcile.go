// Package reconcile implements the three-mode update/cleanup diff
// (fresh install, update, legacy migration) plus the anti-cheat
// cleanup matrix applied to managed instances.
package reconcile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/luminakraft/modpack-engine/internal/logging"
)

// Mode selects which reconciliation algorithm Run applies.
type Mode int

const (
	// ModeFresh is a first-time install: nothing to clean up.
	ModeFresh Mode = iota
	// ModeUpdate diffs the previous integrity blob's file set against
	// the new expected set.
	ModeUpdate
	// ModeLegacyMigration walks mods/*.jar and resourcepacks/*.zip on
	// disk, since there is no prior file-set ledger to diff against.
	ModeLegacyMigration
)

// PolicyFlags gate the anti-cheat cleanup pass for managed categories.
type PolicyFlags struct {
	AllowCustomMods          bool
	AllowCustomResourcepacks bool
	AllowCustomConfigs       bool
}

// Input carries everything Run needs to decide what to delete.
type Input struct {
	InstanceDir      string
	Mode             Mode
	OldInstalledFiles map[string]struct{} // keys of the previous integrity blob's file_hashes, mode Update only
	NewExpected      map[string]struct{}  // union of manifest files and override paths
	Managed          bool                 // category ∈ {official, partner}
	Policy           PolicyFlags
}

// Result reports what Run removed and what it failed to remove.
type Result struct {
	Removed      []string
	RemoveErrors []RemoveError
}

// RemoveError is a deletion failure; these are logged but never fatal —
// the integrity check at next launch will catch persistent
// unauthorized files.
type RemoveError struct {
	Path string
	Err  error
}

// Run applies the mode-selected diff/cleanup, then the anti-cheat pass
// if Input.Managed.
func Run(input Input, logger *logging.Logger) Result {
	var result Result

	switch input.Mode {
	case ModeFresh:
		// nothing to clean up
	case ModeUpdate:
		result = removeSet(input.InstanceDir, setDifference(input.OldInstalledFiles, input.NewExpected), logger)
	case ModeLegacyMigration:
		result = legacyMigrationCleanup(input.InstanceDir, input.NewExpected, logger)
	}

	if input.Managed {
		anticheat := antiCheatCleanup(input.InstanceDir, input.NewExpected, input.Policy, logger)
		result.Removed = append(result.Removed, anticheat.Removed...)
		result.RemoveErrors = append(result.RemoveErrors, anticheat.RemoveErrors...)
	}

	return result
}

// setDifference returns the keys in a that are not in b.
func setDifference(a, b map[string]struct{}) map[string]struct{} {
	diff := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; !ok {
			diff[k] = struct{}{}
		}
	}
	return diff
}

func removeSet(instanceDir string, relPaths map[string]struct{}, logger *logging.Logger) Result {
	var result Result
	for relPath := range relPaths {
		fullPath := filepath.Join(instanceDir, filepath.FromSlash(relPath))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			logger.Warn("failed to remove %s during reconciliation: %v", relPath, err)
			result.RemoveErrors = append(result.RemoveErrors, RemoveError{Path: relPath, Err: err})
			continue
		}
		result.Removed = append(result.Removed, relPath)
	}
	return result
}

// legacyMigrationCleanup walks mods/*.jar and resourcepacks/*.zip,
// deleting any file not present in newExpected. There is no prior
// file-set ledger for legacy instances, so disk is the only source of
// truth for what might need removing.
func legacyMigrationCleanup(instanceDir string, newExpected map[string]struct{}, logger *logging.Logger) Result {
	var result Result

	for _, spec := range []struct {
		subdir string
		ext    string
	}{
		{"mods", ".jar"},
		{"resourcepacks", ".zip"},
	} {
		r := scanAndRemove(instanceDir, spec.subdir, spec.ext, false, newExpected, logger)
		result.Removed = append(result.Removed, r.Removed...)
		result.RemoveErrors = append(result.RemoveErrors, r.RemoveErrors...)
	}

	return result
}

// antiCheatCleanup removes unauthorized user-added files under
// mods/resourcepacks/config/scripts for managed instances, per policy.
func antiCheatCleanup(instanceDir string, newExpected map[string]struct{}, policy PolicyFlags, logger *logging.Logger) Result {
	var result Result

	if !policy.AllowCustomMods {
		r := scanAndRemove(instanceDir, "mods", ".jar", false, newExpected, logger)
		result.Removed = append(result.Removed, r.Removed...)
		result.RemoveErrors = append(result.RemoveErrors, r.RemoveErrors...)
	}
	if !policy.AllowCustomResourcepacks {
		r := scanAndRemove(instanceDir, "resourcepacks", ".zip", false, newExpected, logger)
		result.Removed = append(result.Removed, r.Removed...)
		result.RemoveErrors = append(result.RemoveErrors, r.RemoveErrors...)
	}
	if !policy.AllowCustomConfigs {
		for _, subdir := range []string{"config", "scripts"} {
			r := scanAndRemove(instanceDir, subdir, "", true, newExpected, logger)
			result.Removed = append(result.Removed, r.Removed...)
			result.RemoveErrors = append(result.RemoveErrors, r.RemoveErrors...)
		}
	}

	return result
}

// scanAndRemove walks subdir (recursively if recursive) under
// instanceDir, removing any file matching ext (or any extension if ext
// is empty) whose instance-relative path is absent from newExpected.
func scanAndRemove(instanceDir, subdir, ext string, recursive bool, newExpected map[string]struct{}, logger *logging.Logger) Result {
	var result Result

	root := filepath.Join(instanceDir, subdir)
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return result
	}
	if err != nil {
		logger.Warn("failed to scan %s during cleanup: %v", subdir, err)
		return result
	}

	for _, entry := range entries {
		entryPath := filepath.Join(root, entry.Name())
		relPath := filepath.ToSlash(filepath.Join(subdir, entry.Name()))

		if entry.IsDir() {
			if recursive {
				nested := scanAndRemove(instanceDir, filepath.Join(subdir, entry.Name()), ext, recursive, newExpected, logger)
				result.Removed = append(result.Removed, nested.Removed...)
				result.RemoveErrors = append(result.RemoveErrors, nested.RemoveErrors...)
			}
			continue
		}

		if ext != "" && !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}

		if _, expected := newExpected[relPath]; expected {
			continue
		}

		if err := os.Remove(entryPath); err != nil {
			logger.Warn("failed to remove unauthorized file %s: %v", relPath, err)
			result.RemoveErrors = append(result.RemoveErrors, RemoveError{Path: relPath, Err: err})
			continue
		}
		result.Removed = append(result.Removed, relPath)
	}

	return result
}
