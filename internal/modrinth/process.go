// Package modrinth implements the Modrinth modpack processor: parse
// modrinth.index.json, filter client-relevant files, download directly
// from Modrinth's CDN, reconcile against the previous install, and
// apply overrides last.
package modrinth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/luminakraft/modpack-engine/internal/archive"
	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/fetch"
	"github.com/luminakraft/modpack-engine/internal/hashsign"
	"github.com/luminakraft/modpack-engine/internal/logging"
	"github.com/luminakraft/modpack-engine/internal/progress"
	"github.com/luminakraft/modpack-engine/internal/reconcile"
	"github.com/luminakraft/modpack-engine/internal/types"
)

// Result is what Process reports back to the orchestrator.
type Result struct {
	ModLoader        string
	ModLoaderVersion string
	MinecraftVersion string
	FailedFiles      []types.FailedFile
	// AllExpected is the union of manifest files and override paths,
	// persisted as the next integrity blob's file set and used as the
	// "new" side of the next update's reconciliation diff.
	AllExpected map[string]struct{}
}

// ReconcileInput is the subset of reconcile.Input the orchestrator fills
// in from instance metadata before calling Process; Process only knows
// about the manifest being installed, not what came before it.
type ReconcileInput struct {
	Mode              reconcile.Mode
	OldInstalledFiles map[string]struct{}
	Managed           bool
	Policy            reconcile.PolicyFlags
}

// Process runs the Modrinth install pipeline against an already
// extracted .mrpack. extractedDir holds modrinth.index.json and the
// overrides/client-overrides trees; instanceDir is the destination.
//
// Unlike the CurseForge processor, overrides are applied after
// reconciliation: cleanup must see the pre-override disk state so an
// override-supplied file is never mistaken for an unauthorized one that
// happens to share its name before the override lands.
func Process(ctx context.Context, extractedDir, instanceDir string, reconcileIn ReconcileInput, fetcher *fetch.Fetcher, versionClient *Client, concurrency int, sink progress.Sink, logger *logging.Logger) (Result, error) {
	if sink == nil {
		sink = progress.Discard
	}
	if versionClient == nil {
		versionClient = NewClient()
	}

	manifest, err := ReadManifest(extractedDir)
	if err != nil {
		return Result{}, err
	}
	sink.Emit(progress.Event{Step: progress.StepReadManifest, Fraction: 0.1})

	minecraftVersion, err := MinecraftVersion(manifest)
	if err != nil {
		return Result{}, err
	}
	modLoader, modLoaderVersion, err := ModloaderInfo(manifest)
	if err != nil {
		return Result{}, err
	}

	overridePaths, err := OverrideRelativePaths(extractedDir)
	if err != nil {
		return Result{}, err
	}

	clientFiles := filterClientFiles(manifest.Files)

	if err := os.MkdirAll(instanceDir, 0755); err != nil {
		return Result{}, engineerr.New(engineerr.KindFilesystem, "modrinth.Process", err).WithPath(instanceDir)
	}

	var (
		mu          sync.Mutex
		failedFiles []types.FailedFile
		completed   int
	)
	total := len(clientFiles)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, file := range clientFiles {
		file := file
		eg.Go(func() error {
			failed := downloadOne(egCtx, fetcher, versionClient, file, instanceDir, overridePaths, logger)

			mu.Lock()
			completed++
			fraction := float64(completed)/float64(max(total, 1))*0.7 + 0.2
			if failed != nil {
				failedFiles = append(failedFiles, *failed)
			}
			idx := completed
			sink.Emit(progress.FileEvent(progress.StepProcessFiles, fraction, filepath.Base(file.Path), idx, total))
			mu.Unlock()
			return nil
		})
	}
	eg.Wait()

	allExpected := make(map[string]struct{}, len(clientFiles)+len(overridePaths))
	for _, file := range clientFiles {
		allExpected[file.Path] = struct{}{}
	}
	for p := range overridePaths {
		allExpected[p] = struct{}{}
	}

	reconcileResult := reconcile.Run(reconcile.Input{
		InstanceDir:       instanceDir,
		Mode:              reconcileIn.Mode,
		OldInstalledFiles: reconcileIn.OldInstalledFiles,
		NewExpected:       allExpected,
		Managed:           reconcileIn.Managed,
		Policy:            reconcileIn.Policy,
	}, logger)
	for _, removeErr := range reconcileResult.RemoveErrors {
		logger.Warn("modrinth reconcile: failed to remove %s: %v", removeErr.Path, removeErr.Err)
	}
	sink.Emit(progress.Event{Step: progress.StepReconcile, Fraction: 0.92})

	for _, dir := range overrideDirs {
		if err := archive.CopyTree(filepath.Join(extractedDir, dir), instanceDir); err != nil {
			return Result{}, err
		}
	}
	sink.Emit(progress.Event{Step: progress.StepApplyOverrides, Fraction: 0.98})

	return Result{
		ModLoader:        modLoader,
		ModLoaderVersion: modLoaderVersion,
		MinecraftVersion: minecraftVersion,
		FailedFiles:      failedFiles,
		AllExpected:      allExpected,
	}, nil
}

// filterClientFiles drops files whose env.client is explicitly
// "unsupported"; an absent env or any other value means the file is
// relevant to a client install.
func filterClientFiles(files []types.ModrinthFile) []types.ModrinthFile {
	var out []types.ModrinthFile
	for _, f := range files {
		if f.Env != nil && f.Env.Client == types.EnvUnsupported {
			continue
		}
		out = append(out, f)
	}
	return out
}

// downloadOne fetches one Modrinth file, retrying hash mismatches and
// network errors indefinitely (the fetcher already retries network/5xx
// forever when Unbounded is set; hash mismatches are retried here since
// Fetch does not re-attempt after a failed post-download verification).
// Only a client-side HTTP error is fatal, and even then the failure
// record is enriched with a Modrinth project lookup before giving up.
func downloadOne(ctx context.Context, fetcher *fetch.Fetcher, versionClient *Client, file types.ModrinthFile, instanceDir string, overridePaths map[string]struct{}, logger *logging.Logger) *types.FailedFile {
	filename := filepath.Base(file.Path)

	if _, inOverrides := overridePaths[file.Path]; inOverrides {
		return nil
	}

	destPath := filepath.Join(instanceDir, filepath.FromSlash(file.Path))

	if matchesSHA1(destPath, file.Hashes.SHA1) {
		return nil
	}

	if len(file.Downloads) == 0 {
		return failedFileInfo(ctx, versionClient, file, filename, "no download url")
	}
	downloadURL := file.Downloads[0]

	for {
		if ctx.Err() != nil {
			return failedFileInfo(ctx, versionClient, file, filename, ctx.Err().Error())
		}

		err := fetcher.Fetch(ctx, fetch.Request{
			URL:          downloadURL,
			Destination:  destPath,
			HashAlgo:     fetch.HashSHA1,
			ExpectedHash: file.Hashes.SHA1,
			Unbounded:    true,
		})
		if err == nil {
			return nil
		}

		kind, _ := engineerr.KindOf(err)
		if kind == engineerr.KindHashMismatch {
			logger.Warn("modrinth hash mismatch for %s, retrying", filename)
			continue
		}
		return failedFileInfo(ctx, versionClient, file, filename, err.Error())
	}
}

func failedFileInfo(ctx context.Context, versionClient *Client, file types.ModrinthFile, filename, reason string) *types.FailedFile {
	failed := &types.FailedFile{FileName: filename, Reason: reason}

	if version := versionClient.VersionByHash(ctx, file.Hashes.SHA1); version != nil {
		failed.Reason = reason + " (project: " + version.Name + ")"
	}

	return failed
}

func matchesSHA1(path, expected string) bool {
	if expected == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	actual, err := hashsign.SHA1File(path)
	if err != nil {
		return false
	}
	return strings.EqualFold(actual, expected)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
