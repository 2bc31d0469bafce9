//go:build darwin

package platform

import "os"

// DarwinPlatform resolves macOS application-support conventions.
type DarwinPlatform struct {
	CommonPlatform
}

func newPlatform() Platform {
	return &DarwinPlatform{}
}

func (p *DarwinPlatform) GetAppDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return defaultAppDataDir(home + "/Library/Application Support"), nil
}
