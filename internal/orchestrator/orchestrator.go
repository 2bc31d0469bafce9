// Package orchestrator drives the install/update state machine: fetch
// the modpack archive, validate it, extract it, dispatch to the
// CurseForge or Modrinth processor, reconcile against the previous
// install, rebuild the integrity blob, and persist instance metadata.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luminakraft/modpack-engine/internal/archive"
	"github.com/luminakraft/modpack-engine/internal/curseforge"
	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/fetch"
	"github.com/luminakraft/modpack-engine/internal/hashsign"
	"github.com/luminakraft/modpack-engine/internal/integrity"
	"github.com/luminakraft/modpack-engine/internal/layout"
	"github.com/luminakraft/modpack-engine/internal/logging"
	"github.com/luminakraft/modpack-engine/internal/metastore"
	"github.com/luminakraft/modpack-engine/internal/modrinth"
	"github.com/luminakraft/modpack-engine/internal/progress"
	"github.com/luminakraft/modpack-engine/internal/reconcile"
	"github.com/luminakraft/modpack-engine/internal/types"
)

const defaultConcurrency = 8

// Engine wires the per-component pieces the install pipeline drives.
// One Engine serves any number of instance IDs; installs for different
// IDs may run concurrently, each against its own Engine method call.
type Engine struct {
	layout      *layout.Layout
	store       *metastore.Store
	fetcher     *fetch.Fetcher
	cfClient    *curseforge.Client
	mrClient    *modrinth.Client
	logger      *logging.Logger
	concurrency int
}

// NewEngine constructs an Engine and sweeps orphaned temp extraction
// directories left by a previously-killed process.
func NewEngine(l *layout.Layout, store *metastore.Store, logger *logging.Logger, authToken string) *Engine {
	if logger == nil {
		logger = logging.Noop()
	}
	e := &Engine{
		layout:      l,
		store:       store,
		fetcher:     fetch.New(logger),
		cfClient:    curseforge.NewClient(logger, authToken),
		mrClient:    modrinth.NewClient(),
		logger:      logger,
		concurrency: defaultConcurrency,
	}
	e.removeStaleTempDirs()
	return e
}

// removeStaleTempDirs clears every directory under the shared temp root
// left over from an install that never reached its cleanup step — a
// process killed mid-extract, a crash, a forced shutdown.
func (e *Engine) removeStaleTempDirs() {
	root := e.layout.TempRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove stale temp dir %s: %v", path, err)
		}
	}
}

// InstallOptions parameterizes one install/update job.
type InstallOptions struct {
	Descriptor  types.ModpackDescriptor
	Policy      reconcile.PolicyFlags
	Concurrency int // zero uses the Engine default
	Sink        progress.Sink
}

// InstallResult is everything the caller needs after an install job
// completes, successfully or not.
type InstallResult struct {
	Metadata    *types.InstanceMetadata
	FailedFiles []types.FailedFile
}

// Install runs the full state machine for one instance ID. The mode
// (fresh install, update, or legacy migration) is inferred from the
// instance's existing metadata: no metadata means fresh, metadata with
// no integrity blob or a blob schema version below 2 means legacy
// migration, otherwise update.
func (e *Engine) Install(ctx context.Context, opts InstallOptions) (InstallResult, error) {
	sink := opts.Sink
	if sink == nil {
		sink = progress.Discard
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = e.concurrency
	}

	id := opts.Descriptor.ID
	instanceDir, err := e.layout.InstanceDir(id)
	if err != nil {
		return InstallResult{}, err
	}
	tempDir, err := e.layout.TempDir(id)
	if err != nil {
		return InstallResult{}, err
	}
	defer os.RemoveAll(tempDir)

	mode, oldFiles, err := e.resolveMode(id)
	if err != nil {
		return InstallResult{}, err
	}

	archivePath := filepath.Join(tempDir, "archive.zip")
	if err := e.fetcher.Fetch(ctx, fetch.Request{URL: opts.Descriptor.ArchiveURL, Destination: archivePath}); err != nil {
		sink.Emit(progress.Event{Step: progress.StepFailed, Fraction: 0})
		return InstallResult{}, err
	}
	sink.Emit(progress.Event{Step: progress.StepFetchArchive, Fraction: 0.05})

	if opts.Descriptor.FileSHA256 != "" {
		actual, err := hashsign.SHA256File(archivePath)
		if err != nil {
			return InstallResult{}, err
		}
		if !strings.EqualFold(actual, opts.Descriptor.FileSHA256) {
			return InstallResult{}, engineerr.New(engineerr.KindHashMismatch, "orchestrator.Install", errZipHashMismatch).WithPath(archivePath)
		}
	}
	sink.Emit(progress.Event{Step: progress.StepValidateArchive, Fraction: 0.08})

	extractDir := filepath.Join(tempDir, "extracted")
	if err := archive.Extract(archivePath, extractDir); err != nil {
		return InstallResult{}, err
	}
	sink.Emit(progress.Event{Step: progress.StepExtract, Fraction: 0.1})

	if err := ctxErr(ctx); err != nil {
		return InstallResult{}, err
	}

	format, err := detectFormat(extractDir)
	if err != nil {
		return InstallResult{}, err
	}

	var (
		modLoader, modLoaderVersion, minecraftVersion string
		failedFiles                                   []types.FailedFile
		allExpected                                   map[string]struct{}
		recommendedRAM                                *int
	)

	managed := opts.Descriptor.Category.Managed()

	switch format {
	case formatCurseForge:
		minecraftVersion = opts.Descriptor.MinecraftVersion
		result, err := curseforge.Process(ctx, extractDir, instanceDir, e.cfClient, e.fetcher, concurrency, sink, e.logger)
		if err != nil {
			return InstallResult{}, err
		}
		modLoader, modLoaderVersion = result.ModLoader, result.ModLoaderVersion
		failedFiles = result.FailedFiles
		allExpected = result.AllExpected
		if manifest, err := curseforge.ReadManifest(extractDir); err == nil {
			recommendedRAM = manifest.Minecraft.RecommendedRAM
		}

		reconcileResult := reconcile.Run(reconcile.Input{
			InstanceDir:       instanceDir,
			Mode:              mode,
			OldInstalledFiles: oldFiles,
			NewExpected:       allExpected,
			Managed:           managed,
			Policy:            opts.Policy,
		}, e.logger)
		for _, removeErr := range reconcileResult.RemoveErrors {
			e.logger.Warn("reconcile: failed to remove %s: %v", removeErr.Path, removeErr.Err)
		}
		sink.Emit(progress.Event{Step: progress.StepReconcile, Fraction: 0.92})

	case formatModrinth:
		result, err := modrinth.Process(ctx, extractDir, instanceDir, modrinth.ReconcileInput{
			Mode:              mode,
			OldInstalledFiles: oldFiles,
			Managed:           managed,
			Policy:            opts.Policy,
		}, e.fetcher, e.mrClient, concurrency, sink, e.logger)
		if err != nil {
			return InstallResult{}, err
		}
		modLoader, modLoaderVersion, minecraftVersion = result.ModLoader, result.ModLoaderVersion, result.MinecraftVersion
		failedFiles = result.FailedFiles
		allExpected = result.AllExpected
	}

	if err := ctxErr(ctx); err != nil {
		return InstallResult{}, err
	}

	zipSHA256, err := hashsign.SHA256File(archivePath)
	if err != nil {
		return InstallResult{}, err
	}
	blob, err := integrity.BuildWithZip(ctx, instanceDir, setKeys(allExpected), zipSHA256)
	if err != nil {
		return InstallResult{}, err
	}
	sink.Emit(progress.Event{Step: progress.StepBuildIntegrity, Fraction: 0.98})

	metadata := &types.InstanceMetadata{
		ID:               id,
		Version:          opts.Descriptor.Version,
		InstalledAt:      time.Now().UTC().Format(time.RFC3339),
		ModLoader:        types.ModLoader(modLoader),
		ModLoaderVersion: modLoaderVersion,
		MinecraftVersion: minecraftVersion,
		RecommendedRAM:   recommendedRAM,
		RAMAllocation:    types.RAMAllocationRecommended,
		Category:         opts.Descriptor.Category,
		Integrity:        blob,
	}
	if err := e.store.Save(metadata); err != nil {
		return InstallResult{}, err
	}
	sink.Emit(progress.Event{Step: progress.StepPersistMetadata, Fraction: 0.99})
	sink.Emit(progress.Event{Step: progress.StepDone, Fraction: 1.0})

	return InstallResult{Metadata: metadata, FailedFiles: failedFiles}, nil
}

// Remove deletes an instance's metadata and directory tree.
func (e *Engine) Remove(id string) error {
	return e.store.Delete(id)
}

// List returns metadata for every installed instance.
func (e *Engine) List() ([]*types.InstanceMetadata, error) {
	return e.store.List()
}

// Metadata returns the persisted metadata for one instance, or nil if
// it has never been installed.
func (e *Engine) Metadata(id string) (*types.InstanceMetadata, error) {
	return e.store.Load(id)
}

// Verify checks a managed instance's on-disk state against its
// persisted integrity blob, silently migrating legacy instances that
// predate the integrity schema.
func (e *Engine) Verify(ctx context.Context, id string, expectedZipSHA256 string, policy reconcile.PolicyFlags) (integrity.Result, error) {
	instanceDir, err := e.layout.InstanceDir(id)
	if err != nil {
		return integrity.Result{}, err
	}
	metadata, err := e.store.Load(id)
	if err != nil {
		return integrity.Result{}, err
	}
	if metadata == nil {
		return integrity.Result{}, engineerr.New(engineerr.KindFilesystem, "orchestrator.Verify", os.ErrNotExist).WithPath(instanceDir)
	}

	result, err := integrity.VerifyOrMigrate(ctx, instanceDir, metadata, e.store, policy.AllowCustomMods, policy.AllowCustomResourcepacks)
	if err != nil {
		return integrity.Result{}, err
	}
	if expectedZipSHA256 != "" && metadata.Integrity != nil {
		if !integrity.VerifyZip(metadata.Integrity, expectedZipSHA256) {
			result.Valid = false
		}
	}
	return result, nil
}

// resolveMode inspects existing instance metadata to decide which
// reconciliation mode an install should run under.
func (e *Engine) resolveMode(id string) (reconcile.Mode, map[string]struct{}, error) {
	existing, err := e.store.Load(id)
	if err != nil {
		return reconcile.ModeFresh, nil, err
	}
	if existing == nil {
		return reconcile.ModeFresh, nil, nil
	}
	if existing.Integrity == nil || existing.Integrity.SchemaVersion < types.CurrentIntegritySchemaVersion {
		return reconcile.ModeLegacyMigration, nil, nil
	}

	oldFiles := make(map[string]struct{}, len(existing.Integrity.FileHashes))
	for relPath := range existing.Integrity.FileHashes {
		oldFiles[relPath] = struct{}{}
	}
	return reconcile.ModeUpdate, oldFiles, nil
}

type archiveFormat int

const (
	formatUnknown archiveFormat = iota
	formatCurseForge
	formatModrinth
)

// detectFormat distinguishes a CurseForge export from a Modrinth
// .mrpack by which manifest file the extracted archive carries; the
// two formats never carry both.
func detectFormat(extractDir string) (archiveFormat, error) {
	if _, err := os.Stat(filepath.Join(extractDir, "manifest.json")); err == nil {
		return formatCurseForge, nil
	}
	if _, err := os.Stat(filepath.Join(extractDir, "modrinth.index.json")); err == nil {
		return formatModrinth, nil
	}
	return formatUnknown, engineerr.New(engineerr.KindManifestInvalid, "orchestrator.detectFormat", errUnknownArchiveFormat).WithPath(extractDir)
}

func setKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return engineerr.New(engineerr.KindCancelled, "orchestrator", ctx.Err())
	default:
		return nil
	}
}
