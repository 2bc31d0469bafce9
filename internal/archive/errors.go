package archive

import "errors"

var (
	errEmptyArchive       = errors.New("archive is empty")
	errNoEntriesExtracted = errors.New("archive contains no extractable entries")
	errPathTraversal      = errors.New("archive entry resolves outside the target directory")
	errSourceNotDir       = errors.New("copy source is not a directory")
)
