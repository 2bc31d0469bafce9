package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// CommonPlatform provides the cross-platform parts shared by every
// per-OS implementation.
type CommonPlatform struct{}

func (p *CommonPlatform) GetOS() string {
	return runtime.GOOS
}

func (p *CommonPlatform) GetArch() string {
	return runtime.GOARCH
}

func (p *CommonPlatform) GetExecutablePath() (string, error) {
	return os.Executable()
}

func (p *CommonPlatform) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

func (p *CommonPlatform) CreateDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// productDirName is the fixed product name joined onto the per-user
// application data directory (spec §4.D).
const productDirName = "modpack-engine"

func defaultAppDataDir(base string) string {
	return filepath.Join(base, productDirName)
}
