//go:build linux

package platform

import "os"

// LinuxPlatform resolves XDG-style data directory conventions.
type LinuxPlatform struct {
	CommonPlatform
}

func newPlatform() Platform {
	return &LinuxPlatform{}
}

func (p *LinuxPlatform) GetAppDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return defaultAppDataDir(xdg), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return defaultAppDataDir(home + "/.local/share"), nil
}
