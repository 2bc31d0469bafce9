// Package archive extracts ZIP archives (CurseForge and Modrinth
// modpack exports are both ZIP under the hood) into a target
// directory, rejecting entries that would escape it.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
)

// Extract opens the ZIP archive at archivePath and writes its entries
// under targetDir, creating targetDir if necessary. Any entry whose
// sanitized relative path would resolve outside targetDir is rejected
// (Zip Slip). Unix file mode bits are preserved when present in the
// entry header.
func Extract(archivePath, targetDir string) error {
	info, err := os.Stat(archivePath)
	if err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.Extract", err).WithPath(archivePath)
	}
	if info.Size() == 0 {
		return engineerr.New(engineerr.KindArchiveCorrupt, "archive.Extract",
			errEmptyArchive).WithPath(archivePath)
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return engineerr.New(engineerr.KindArchiveCorrupt, "archive.Extract", err).WithPath(archivePath)
	}
	defer r.Close()

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.Extract", err).WithPath(targetDir)
	}

	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.Extract", err).WithPath(targetDir)
	}

	extracted := 0
	for _, f := range r.File {
		destPath, err := sanitizedJoin(absTarget, f.Name)
		if err != nil {
			return engineerr.New(engineerr.KindArchiveCorrupt, "archive.Extract", err).WithPath(f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return engineerr.New(engineerr.KindFilesystem, "archive.Extract", err).WithPath(destPath)
			}
			continue
		}

		if err := extractFile(f, destPath); err != nil {
			return err
		}
		extracted++
	}

	if extracted == 0 {
		return engineerr.New(engineerr.KindArchiveCorrupt, "archive.Extract", errNoEntriesExtracted).WithPath(archivePath)
	}

	return nil
}

func extractFile(f *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.extractFile", err).WithPath(destPath)
	}

	mode := f.Mode()
	if mode == 0 {
		mode = 0644
	}

	src, err := f.Open()
	if err != nil {
		return engineerr.New(engineerr.KindArchiveCorrupt, "archive.extractFile", err).WithPath(f.Name)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.extractFile", err).WithPath(destPath)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return engineerr.New(engineerr.KindArchiveCorrupt, "archive.extractFile", err).WithPath(destPath)
	}

	return nil
}

// CopyTree recursively copies every file under src into dst, creating
// directories as needed and overwriting existing files. Used to apply a
// modpack's overrides/client-overrides subtree onto an instance directory.
func CopyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return engineerr.New(engineerr.KindFilesystem, "archive.CopyTree", err).WithPath(src)
	}
	if !info.IsDir() {
		return engineerr.New(engineerr.KindFilesystem, "archive.CopyTree", errSourceNotDir).WithPath(src)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.CopyTree", err).WithPath(src)
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.CopyTree", err).WithPath(dst)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.copyFile", err).WithPath(src)
	}

	in, err := os.Open(src)
	if err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.copyFile", err).WithPath(src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.copyFile", err).WithPath(dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return engineerr.New(engineerr.KindFilesystem, "archive.copyFile", err).WithPath(dst)
	}

	return nil
}

// sanitizedJoin resolves entryName against root and verifies the result
// stays within root, returning the Zip Slip error otherwise.
func sanitizedJoin(root, entryName string) (string, error) {
	cleaned := filepath.Clean(strings.ReplaceAll(entryName, "\\", "/"))
	joined := filepath.Join(root, cleaned)

	if joined != root && !strings.HasPrefix(joined, root+string(os.PathSeparator)) {
		return "", errPathTraversal
	}

	return joined, nil
}
