package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// LocalGateway serves file:// URIs and plain paths from the local
// filesystem. It backs single-node runs and makes the combine and dispatch
// phases testable without a live object store.
type LocalGateway struct{}

func NewLocalGateway() *LocalGateway {
	return &LocalGateway{}
}

func (g *LocalGateway) ListFiles(ctx context.Context, dirURI string) ([]FileInfo, error) {
	return g.list(dirURI, false)
}

func (g *LocalGateway) ListDirectories(ctx context.Context, dirURI string) ([]FileInfo, error) {
	return g.list(dirURI, true)
}

func (g *LocalGateway) list(dirURI string, dirs bool) ([]FileInfo, error) {
	p := parseURI(dirURI)
	entries, err := os.ReadDir(p.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorageUnavailable, dirURI, err)
	}
	var infos []FileInfo
	for _, entry := range entries {
		if entry.IsDir() != dirs {
			continue
		}
		var size int64
		if fi, err := entry.Info(); err == nil {
			size = fi.Size()
		}
		infos = append(infos, FileInfo{
			URI:   Join(dirURI, entry.Name()),
			Name:  entry.Name(),
			Size:  size,
			IsDir: entry.IsDir(),
		})
	}
	return infos, nil
}

func (g *LocalGateway) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	f, err := os.Open(parseURI(uri).Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	return f, nil
}

func (g *LocalGateway) EnsureDirectory(ctx context.Context, uri string) error {
	if err := os.MkdirAll(parseURI(uri).Path, 0o755); err != nil {
		return fmt.Errorf("%w: ensure %s: %v", ErrStorageUnavailable, uri, err)
	}
	return nil
}

func (g *LocalGateway) RemoveRecursive(ctx context.Context, uri string) error {
	return os.RemoveAll(parseURI(uri).Path)
}
