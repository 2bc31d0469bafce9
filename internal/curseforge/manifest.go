package curseforge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/types"
)

// ReadManifest loads and parses manifest.json from the root of an
// extracted CurseForge archive.
func ReadManifest(extractedDir string) (*types.CurseForgeManifest, error) {
	path := filepath.Join(extractedDir, "manifest.json")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engineerr.New(engineerr.KindManifestInvalid, "curseforge.ReadManifest", err).WithPath(path)
	}

	var manifest types.CurseForgeManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, engineerr.New(engineerr.KindManifestInvalid, "curseforge.ReadManifest", err).WithPath(path)
	}

	return &manifest, nil
}

// ModloaderInfo extracts (name, version) from the manifest's primary
// modloader entry, falling back to the first listed loader. Loader IDs
// are of the form "name-version", split on the first hyphen.
func ModloaderInfo(manifest *types.CurseForgeManifest) (string, string, error) {
	loaders := manifest.Minecraft.ModLoaders
	if len(loaders) == 0 {
		return "", "", engineerr.New(engineerr.KindManifestInvalid, "curseforge.ModloaderInfo", errNoModloader)
	}

	loader := loaders[0]
	for _, l := range loaders {
		if l.Primary {
			loader = l
			break
		}
	}

	return parseLoaderID(loader.ID)
}

func parseLoaderID(id string) (string, string, error) {
	dash := strings.Index(id, "-")
	if dash < 0 {
		return "", "", engineerr.New(engineerr.KindManifestInvalid, "curseforge.parseLoaderID", errInvalidLoaderID).WithPath(id)
	}
	return strings.ToLower(id[:dash]), id[dash+1:], nil
}
