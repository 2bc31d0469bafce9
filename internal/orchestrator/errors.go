package orchestrator

import "errors"

var (
	errUnknownArchiveFormat = errors.New("archive contains neither manifest.json nor modrinth.index.json")
	errZipHashMismatch      = errors.New("downloaded archive does not match the expected sha256")
)
