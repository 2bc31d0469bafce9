package modrinth

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/types"
)

// ReadManifest loads and parses modrinth.index.json from the root of an
// extracted .mrpack archive.
func ReadManifest(extractedDir string) (*types.ModrinthManifest, error) {
	path := filepath.Join(extractedDir, "modrinth.index.json")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engineerr.New(engineerr.KindManifestInvalid, "modrinth.ReadManifest", err).WithPath(path)
	}

	var manifest types.ModrinthManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, engineerr.New(engineerr.KindManifestInvalid, "modrinth.ReadManifest", err).WithPath(path)
	}

	if manifest.Game != "minecraft" {
		return nil, engineerr.New(engineerr.KindManifestInvalid, "modrinth.ReadManifest", errNotMinecraft).WithPath(path)
	}

	return &manifest, nil
}

// modloaderPriority mirrors the original launcher's lookup order: forge
// before neoforge before fabric before quilt. Packs only ever declare one.
var modloaderPriority = []struct {
	key  string
	name string
}{
	{types.ModrinthDepForge, "forge"},
	{types.ModrinthDepNeoForge, "neoforge"},
	{types.ModrinthDepFabricLoader, "fabric"},
	{types.ModrinthDepQuiltLoader, "quilt"},
}

// ModloaderInfo extracts (name, version) from the manifest's dependency
// map, checking known modloader keys in priority order.
func ModloaderInfo(manifest *types.ModrinthManifest) (string, string, error) {
	for _, candidate := range modloaderPriority {
		if version, ok := manifest.Dependencies[candidate.key]; ok && version != "" {
			return candidate.name, version, nil
		}
	}
	return "", "", engineerr.New(engineerr.KindManifestInvalid, "modrinth.ModloaderInfo", errNoModloader)
}

// MinecraftVersion reads the required minecraft dependency entry.
func MinecraftVersion(manifest *types.ModrinthManifest) (string, error) {
	version, ok := manifest.Dependencies[types.ModrinthDepMinecraft]
	if !ok || version == "" {
		return "", engineerr.New(engineerr.KindManifestInvalid, "modrinth.MinecraftVersion", errNoMinecraft)
	}
	return version, nil
}

// overrideDirs are the override trees Modrinth packs may carry. Order
// matters only for logging; both get copied onto the instance.
var overrideDirs = []string{"overrides", "client-overrides"}

// OverrideRelativePaths walks overrides/ and client-overrides/ under
// extractedDir and returns the set of file paths relative to each
// override root (e.g. "mods/sodium.jar"), used to build the expected
// file set for reconciliation and to skip files Process would otherwise
// try to download twice.
func OverrideRelativePaths(extractedDir string) (map[string]struct{}, error) {
	paths := make(map[string]struct{})

	for _, dir := range overrideDirs {
		root := filepath.Join(extractedDir, dir)
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}

		err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths[filepath.ToSlash(rel)] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, engineerr.New(engineerr.KindFilesystem, "modrinth.OverrideRelativePaths", err).WithPath(root)
		}
	}

	return paths, nil
}
