//go:build windows

package platform

import (
	"os"
	"path/filepath"
	"syscall"
	"unsafe"
)

// WindowsPlatform resolves the roaming AppData directory (os.UserConfigDir).
type WindowsPlatform struct {
	CommonPlatform
}

func newPlatform() Platform {
	return &WindowsPlatform{}
}

func (p *WindowsPlatform) GetAppDataDir() (string, error) {
	appData, err := os.UserConfigDir()
	if err != nil {
		exePath, exeErr := p.GetExecutablePath()
		if exeErr != nil {
			return "", err
		}
		return filepath.Join(filepath.Dir(exePath), productDirName), nil
	}
	return defaultAppDataDir(appData), nil
}

func (p *WindowsPlatform) GetAvailableDiskSpace(path string) (int64, error) {
	var freeBytesAvailable uint64
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	proc := kernel32.NewProc("GetDiskFreeSpaceExW")
	pathPtr, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	ret, _, callErr := proc.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(&freeBytesAvailable)),
		0,
		0,
	)
	if ret == 0 {
		return 0, callErr
	}
	return int64(freeBytesAvailable), nil
}
