// Package curseforge implements the CurseForge modpack processor: parse
// manifest.json, resolve file IDs via the proxy API, download mods, and
// apply the overrides tree.
package curseforge

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
	"github.com/luminakraft/modpack-engine/internal/types"
)

// maxHashMismatchRetries is the decided policy for spec §9's open
// question on CurseForge hash-mismatch handling: retry, then record as
// failed rather than recording immediately.
const maxHashMismatchRetries = 3

// apiErrorAbortThreshold aborts the whole install when API-level errors
// span more of the manifest than this fraction.
const apiErrorAbortThreshold = 0.75

// Result is what Process reports back to the orchestrator.
type Result struct {
	ModLoader        string
	ModLoaderVersion string
	FailedFiles      []types.FailedFile
	// AllExpected is the union of resolved mod filenames (under "mods/")
	// and override paths, for the orchestrator to hand to
	// internal/reconcile and to persist as the next integrity blob's
	// file set.
	AllExpected map[string]struct{}
}

// Process runs the CurseForge install pipeline against an already
// extracted archive. tempDir holds the extracted manifest.json and
// overrides/ tree; instanceDir is the destination.
func Process(ctx context.Context, tempDir, instanceDir string, client *Client, fetcher *fetch.Fetcher, concurrency int, sink progress.Sink, logger *logging.Logger) (Result, error) {
	if sink == nil {
		sink = progress.Discard
	}

	manifest, err := ReadManifest(tempDir)
	if err != nil {
		return Result{}, err
	}
	sink.Emit(progress.Event{Step: progress.StepReadManifest, Fraction: 0.1})

	overridesDir := manifest.Overrides
	if overridesDir == "" {
		overridesDir = "overrides"
	}
	if err := archive.CopyTree(filepath.Join(tempDir, overridesDir), instanceDir); err != nil {
		return Result{}, err
	}
	sink.Emit(progress.Event{Step: progress.StepApplyOverrides, Fraction: 0.2})

	overridePaths, err := overrideRelativePaths(filepath.Join(tempDir, overridesDir))
	if err != nil {
		return Result{}, err
	}

	modLoader, modLoaderVersion, err := ModloaderInfo(manifest)
	if err != nil {
		return Result{}, err
	}

	fileIDs := make([]int64, len(manifest.Files))
	fileIDToProject := make(map[int64]int64, len(manifest.Files))
	for i, f := range manifest.Files {
		fileIDs[i] = f.FileID
		fileIDToProject[f.FileID] = f.ProjectID
	}

	resolved, err := client.ResolveFiles(ctx, fileIDs)
	if err != nil {
		return Result{}, err
	}

	if len(manifest.Files) > 0 {
		errorRate := float64(resolved.APIErrorCount) / float64(len(manifest.Files))
		if errorRate > apiErrorAbortThreshold {
			return Result{}, engineerr.New(engineerr.KindHTTPServer, "curseforge.Process", errTooManyAPIErrors)
		}
	}

	modsDir := filepath.Join(instanceDir, "mods")
	if err := os.MkdirAll(modsDir, 0755); err != nil {
		return Result{}, engineerr.New(engineerr.KindFilesystem, "curseforge.Process", err).WithPath(modsDir)
	}

	var (
		mu          sync.Mutex
		failedFiles []types.FailedFile
		completed   int
	)
	total := len(resolved.Infos)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, info := range resolved.Infos {
		info := info
		eg.Go(func() error {
			failed := downloadOne(egCtx, fetcher, info, fileIDToProject, modsDir, logger)

			mu.Lock()
			completed++
			fraction := float64(completed)/float64(max(total, 1))*0.5 + 0.2
			if failed != nil {
				failedFiles = append(failedFiles, *failed)
			}
			idx := completed
			sink.Emit(progress.FileEvent(progress.StepProcessFiles, fraction, info.FileName, idx, total))
			mu.Unlock()
			return nil
		})
	}
	eg.Wait()

	sink.Emit(progress.Event{Step: progress.StepProcessFiles, Fraction: 0.9})

	allExpected := make(map[string]struct{}, len(resolved.Infos)+len(overridePaths))
	for _, info := range resolved.Infos {
		if info.FileName != "" {
			allExpected[filepath.ToSlash(filepath.Join("mods", info.FileName))] = struct{}{}
		}
	}
	for p := range overridePaths {
		allExpected[p] = struct{}{}
	}

	return Result{
		ModLoader:        modLoader,
		ModLoaderVersion: modLoaderVersion,
		FailedFiles:      failedFiles,
		AllExpected:      allExpected,
	}, nil
}

// overrideRelativePaths walks the overrides tree and returns file paths
// relative to it (e.g. "mods/custommod.jar"), mirroring
// internal/modrinth's OverrideRelativePaths for the single-directory
// case CurseForge uses.
func overrideRelativePaths(overridesDir string) (map[string]struct{}, error) {
	paths := make(map[string]struct{})

	info, err := os.Stat(overridesDir)
	if err != nil || !info.IsDir() {
		return paths, nil
	}

	err = filepath.Walk(overridesDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(overridesDir, path)
		if err != nil {
			return err
		}
		paths[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, engineerr.New(engineerr.KindFilesystem, "curseforge.overrideRelativePaths", err).WithPath(overridesDir)
	}

	return paths, nil
}

// downloadOne resolves one mod file, returning a *FailedFile on anything
// that leaves the mod unavailable.
func downloadOne(ctx context.Context, fetcher *fetch.Fetcher, info types.ModFileInfo, fileIDToProject map[int64]int64, modsDir string, logger *logging.Logger) *types.FailedFile {
	projectID := fileIDToProject[info.ID]
	if projectID == 0 {
		projectID = info.ModID
	}

	if info.FileName == "" {
		return &types.FailedFile{ProjectID: projectID, FileID: info.ID, FileName: "unknown", Reason: "no file name returned by api"}
	}

	destPath := filepath.Join(modsDir, info.FileName)
	sha1, md5 := extractHashes(info.Hashes)

	if matchesHash(destPath, sha1, md5) {
		return nil
	}

	if info.DownloadURL == "" {
		return &types.FailedFile{ProjectID: projectID, FileID: info.ID, FileName: info.FileName, Reason: "no download url"}
	}

	var lastErr error
	for attempt := 1; attempt <= maxHashMismatchRetries; attempt++ {
		req := fetch.Request{URL: info.DownloadURL, Destination: destPath, MaxAttempts: 1}
		if sha1 != "" {
			req.HashAlgo = fetch.HashSHA1
			req.ExpectedHash = sha1
		}

		err := fetcher.Fetch(ctx, req)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Warn("curseforge download attempt %d/%d failed for %s: %v", attempt, maxHashMismatchRetries, info.FileName, err)
	}

	return &types.FailedFile{ProjectID: projectID, FileID: info.ID, FileName: info.FileName, Reason: lastErr.Error()}
}

func extractHashes(hashes []types.FileHash) (sha1, md5 string) {
	for _, h := range hashes {
		switch h.Algo {
		case types.FileHashAlgoSHA1:
			sha1 = h.Value
		case types.FileHashAlgoMD5:
			md5 = h.Value
		}
	}
	return sha1, md5
}

// matchesHash reports whether the file at path already matches any of
// the resolved file's known hashes. SHA-1 is preferred since
// CurseForge's proxy always supplies it; MD5 is checked when SHA-1 is
// absent or doesn't match, covering entries that only carry algo=2.
func matchesHash(path, expectedSHA1, expectedMD5 string) bool {
	if expectedSHA1 == "" && expectedMD5 == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}

	if expectedSHA1 != "" {
		actual, err := hashsign.SHA1File(path)
		if err == nil && strings.EqualFold(actual, expectedSHA1) {
			return true
		}
	}
	if expectedMD5 != "" {
		actual, err := hashsign.MD5File(path)
		if err == nil && strings.EqualFold(actual, expectedMD5) {
			return true
		}
	}
	return false
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
