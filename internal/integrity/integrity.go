// Package integrity builds and verifies the signed file-hash manifest
// that protects managed (official/partner) instances from tampering.
package integrity

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/luminakraft/modpack-engine/internal/hashsign"
	"github.com/luminakraft/modpack-engine/internal/types"
)

// IssueKind identifies the category of a verification finding.
type IssueKind string

const (
	// IssueInvalidSignature short-circuits all other checks — the blob
	// itself was tampered with, so its file hashes cannot be trusted.
	IssueInvalidSignature IssueKind = "invalid_signature"
	IssueModifiedFile     IssueKind = "modified_file"
	IssueMissingFile      IssueKind = "missing_file"
	IssueUnauthorizedFile IssueKind = "unauthorized_file"
)

// Issue is a single verification finding.
type Issue struct {
	Kind     IssueKind
	Path     string
	Expected string // ModifiedFile only
	Actual   string // ModifiedFile only
}

// Result is the outcome of Verify.
type Result struct {
	Valid    bool
	Issues   []Issue
	Migrated bool // true when a legacy instance had no blob and one was just built
}

var managedDirs = []struct {
	subdir string
	ext    string
}{
	{"mods", ".jar"},
	{"resourcepacks", ".zip"},
}

// Build produces a signed IntegrityBlob for instanceDir. If managedFiles is
// non-nil, only those relative paths are hashed; otherwise mods/ and
// resourcepacks/ are walked non-recursively, filtered by extension.
// Hashing is parallelized across files.
func Build(ctx context.Context, instanceDir string, managedFiles []string) (*types.IntegrityBlob, error) {
	var relPaths []string
	if managedFiles != nil {
		relPaths = managedFiles
	} else {
		var err error
		relPaths, err = listManagedFiles(instanceDir)
		if err != nil {
			return nil, err
		}
	}

	fileHashes, err := hashAll(ctx, instanceDir, relPaths)
	if err != nil {
		return nil, err
	}

	return &types.IntegrityBlob{
		SchemaVersion: types.CurrentIntegritySchemaVersion,
		FileHashes:    fileHashes,
		Signature:     hashsign.Sign(fileHashes),
	}, nil
}

// BuildWithZip is Build plus the archive's own SHA-256, stored alongside
// the per-file hashes so Verify can cross-check the source ZIP later.
func BuildWithZip(ctx context.Context, instanceDir string, managedFiles []string, zipSHA256 string) (*types.IntegrityBlob, error) {
	blob, err := Build(ctx, instanceDir, managedFiles)
	if err != nil {
		return nil, err
	}
	blob.ZipSHA256 = zipSHA256
	return blob, nil
}

func listManagedFiles(instanceDir string) ([]string, error) {
	var relPaths []string
	for _, md := range managedDirs {
		root := filepath.Join(instanceDir, md.subdir)
		entries, err := os.ReadDir(root)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !strings.EqualFold(filepath.Ext(entry.Name()), md.ext) {
				continue
			}
			relPaths = append(relPaths, filepath.ToSlash(filepath.Join(md.subdir, entry.Name())))
		}
	}
	return relPaths, nil
}

// hashAll hashes every relPath present under instanceDir, skipping paths
// that don't exist on disk (Verify treats those as MissingFile, not an
// error). Hashing runs with bounded parallelism via errgroup.
func hashAll(ctx context.Context, instanceDir string, relPaths []string) (map[string]string, error) {
	var mu sync.Mutex
	fileHashes := make(map[string]string, len(relPaths))

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for _, relPath := range relPaths {
		relPath := relPath
		eg.Go(func() error {
			full := filepath.Join(instanceDir, filepath.FromSlash(relPath))
			info, err := os.Stat(full)
			if err != nil || info.IsDir() {
				return nil
			}
			sum, err := hashsign.SHA256File(full)
			if err != nil {
				return err
			}
			mu.Lock()
			fileHashes[relPath] = sum
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return fileHashes, nil
}

// Verify checks blob's signature, then diffs its file hashes against disk.
// allowCustomMods/allowCustomResourcepacks suppress UnauthorizedFile for
// their respective directories.
func Verify(ctx context.Context, instanceDir string, blob *types.IntegrityBlob, allowCustomMods, allowCustomResourcepacks bool) Result {
	if !hashsign.Verify(blob.FileHashes, blob.Signature) {
		return Result{Valid: false, Issues: []Issue{{Kind: IssueInvalidSignature}}}
	}

	currentPaths, err := listManagedFiles(instanceDir)
	if err != nil {
		return Result{Valid: false, Issues: []Issue{{Kind: IssueInvalidSignature}}}
	}
	for path := range blob.FileHashes {
		currentPaths = append(currentPaths, path)
	}
	currentHashes, err := hashAll(ctx, instanceDir, currentPaths)
	if err != nil {
		return Result{Valid: false, Issues: []Issue{{Kind: IssueInvalidSignature}}}
	}

	var issues []Issue

	for path, expected := range blob.FileHashes {
		actual, ok := currentHashes[path]
		if !ok {
			issues = append(issues, Issue{Kind: IssueMissingFile, Path: path})
			continue
		}
		if actual != expected {
			issues = append(issues, Issue{Kind: IssueModifiedFile, Path: path, Expected: expected, Actual: actual})
		}
	}

	for path := range currentHashes {
		if _, ok := blob.FileHashes[path]; ok {
			continue
		}
		isMod := strings.HasPrefix(path, "mods/")
		isResourcepack := strings.HasPrefix(path, "resourcepacks/")

		shouldReport := false
		switch {
		case isMod:
			shouldReport = !allowCustomMods
		case isResourcepack:
			shouldReport = !allowCustomResourcepacks
		}
		if shouldReport {
			issues = append(issues, Issue{Kind: IssueUnauthorizedFile, Path: path})
		}
	}

	return Result{Valid: len(issues) == 0, Issues: issues}
}

// VerifyZip cross-checks a freshly supplied archive hash against the one
// recorded in blob, when both sides have a value.
func VerifyZip(blob *types.IntegrityBlob, expectedZipSHA256 string) bool {
	if blob.ZipSHA256 == "" || expectedZipSHA256 == "" {
		return true
	}
	return strings.EqualFold(blob.ZipSHA256, expectedZipSHA256)
}
