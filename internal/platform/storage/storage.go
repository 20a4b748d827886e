package storage

import (
	"context"
	"errors"
	"io"
)

// ErrStorageUnavailable reports that the backing storage service cannot be
// reached. It is fatal to the whole run.
var ErrStorageUnavailable = errors.New("shared storage unavailable")

// FileInfo describes one entry of a directory listing. URI always carries
// the scheme and authority of the listed parent, so descendants can be
// opened without re-deriving either.
type FileInfo struct {
	URI   string
	Name  string
	Size  int64
	IsDir bool
}

// Gateway abstracts the distributed filesystem shared by the workers and
// the combining process. All paths are URIs.
type Gateway interface {
	ListFiles(ctx context.Context, dirURI string) ([]FileInfo, error)
	ListDirectories(ctx context.Context, dirURI string) ([]FileInfo, error)
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	EnsureDirectory(ctx context.Context, uri string) error
	// RemoveRecursive deletes a directory tree. Callers treat failures as
	// best-effort; a missing tree is not an error.
	RemoveRecursive(ctx context.Context, uri string) error
}
