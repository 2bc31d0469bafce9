// Package layout resolves the engine's on-disk directory structure:
// one platform-specific data root, per-instance game directories under
// it, and shared library/asset/cache directories alongside them.
package layout

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/platform"
)

// Layout resolves paths under the engine's data root.
type Layout struct {
	platform platform.Platform
	root     string
}

// New resolves the data root via plat and returns a Layout. The root
// directory is not created until first use.
func New(plat platform.Platform) (*Layout, error) {
	root, err := plat.GetAppDataDir()
	if err != nil {
		return nil, engineerr.New(engineerr.KindFilesystem, "layout.New", err)
	}
	return &Layout{platform: plat, root: root}, nil
}

// Root returns the data root directory, creating it if necessary.
func (l *Layout) Root() (string, error) {
	return l.ensure(l.root)
}

// InstanceDir returns (and creates) the per-instance game directory for
// the given instance ID.
func (l *Layout) InstanceDir(id string) (string, error) {
	return l.ensure(filepath.Join(l.root, "instances", id))
}

// InstanceSubdir returns (and creates) a well-known subdirectory of an
// instance directory, e.g. "mods", "resourcepacks", "config".
func (l *Layout) InstanceSubdir(id, name string) (string, error) {
	return l.ensure(filepath.Join(l.root, "instances", id, name))
}

// InstanceMetadataPath returns the path to an instance's instance.json,
// without creating any directories.
func (l *Layout) InstanceMetadataPath(id string) string {
	return filepath.Join(l.root, "instances", id, "instance.json")
}

// MetaLibraries, MetaAssets, MetaVersions, MetaJavaVersions, and
// MetaNatives return (and create) the shared-across-instances metadata
// directories.
func (l *Layout) MetaLibraries() (string, error)    { return l.ensure(filepath.Join(l.root, "meta", "libraries")) }
func (l *Layout) MetaAssets() (string, error)       { return l.ensure(filepath.Join(l.root, "meta", "assets")) }
func (l *Layout) MetaVersions() (string, error)     { return l.ensure(filepath.Join(l.root, "meta", "versions")) }
func (l *Layout) MetaJavaVersions() (string, error) { return l.ensure(filepath.Join(l.root, "meta", "java_versions")) }
func (l *Layout) MetaNatives() (string, error)      { return l.ensure(filepath.Join(l.root, "meta", "natives")) }

// MetaModpackDescriptorPath returns the path of the cached remote
// modpack descriptor for id.
func (l *Layout) MetaModpackDescriptorPath(id string) (string, error) {
	dir, err := l.ensure(filepath.Join(l.root, "meta", "modpacks"))
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+".json"), nil
}

// CacheIconPath returns the content-addressed path for a cached icon
// image, creating the cache directory if necessary.
func (l *Layout) CacheIconPath(id, url, ext string) (string, error) {
	return l.cachedImagePath("icons", id, "icon", ext, url)
}

// CacheScreenshotPath returns the content-addressed path for a cached
// screenshot image, creating the cache directory if necessary.
func (l *Layout) CacheScreenshotPath(id, url, ext string) (string, error) {
	return l.cachedImagePath("screenshots", id, "screenshot", ext, url)
}

func (l *Layout) cachedImagePath(cacheName, id, kind, ext string, urlForHash ...string) (string, error) {
	dir, err := l.ensure(filepath.Join(l.root, "caches", cacheName))
	if err != nil {
		return "", err
	}

	hashInput := kind
	if len(urlForHash) > 0 {
		hashInput = urlForHash[0]
	}
	sum := md5.Sum([]byte(hashInput))

	filename := id + "_" + kind + "_" + hex.EncodeToString(sum[:]) + ext
	return filepath.Join(dir, filename), nil
}

// TempDir returns (and creates) a fresh subdirectory of the OS temp dir
// scoped to this engine, used for archive extraction staging.
func (l *Layout) TempDir(instanceID string) (string, error) {
	return l.ensure(filepath.Join(os.TempDir(), "modpack-engine", "temp_extract_"+instanceID))
}

// TempRoot returns the parent of every TempDir, for the orchestrator's
// startup staleness sweep.
func (l *Layout) TempRoot() string {
	return filepath.Join(os.TempDir(), "modpack-engine")
}

func (l *Layout) ensure(path string) (string, error) {
	if err := l.platform.CreateDirectory(path); err != nil {
		return "", engineerr.New(engineerr.KindFilesystem, "layout.ensure", err).WithPath(path)
	}
	return path, nil
}
