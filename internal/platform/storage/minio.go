package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioGateway serves s3:// URIs against an S3-compatible store. The URI
// authority is the bucket, the path is the object key.
type MinioGateway struct {
	client *minio.Client
}

func NewMinioGateway(cfg Config) (*MinioGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("storage client init: %w", err)
	}
	return &MinioGateway{client: client}, nil
}

func NewMinioGatewayWithClient(client *minio.Client) (*MinioGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is required")
	}
	return &MinioGateway{client: client}, nil
}

func (g *MinioGateway) ListFiles(ctx context.Context, dirURI string) ([]FileInfo, error) {
	return g.list(ctx, dirURI, false)
}

func (g *MinioGateway) ListDirectories(ctx context.Context, dirURI string) ([]FileInfo, error) {
	return g.list(ctx, dirURI, true)
}

func (g *MinioGateway) list(ctx context.Context, dirURI string, dirs bool) ([]FileInfo, error) {
	p := parseURI(dirURI)
	prefix := dirPrefix(p)
	ch := g.client.ListObjects(ctx, p.Authority, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	})
	var infos []FileInfo
	for obj := range ch {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", ErrStorageUnavailable, dirURI, obj.Err)
		}
		if obj.Key == prefix {
			// Zero-byte directory marker written by EnsureDirectory.
			continue
		}
		isDir := strings.HasSuffix(obj.Key, "/")
		if isDir != dirs {
			continue
		}
		key := strings.TrimSuffix(obj.Key, "/")
		infos = append(infos, FileInfo{
			URI:   childURI(p, obj.Key),
			Name:  path.Base(key),
			Size:  obj.Size,
			IsDir: isDir,
		})
	}
	return infos, nil
}

func (g *MinioGateway) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	p := parseURI(uri)
	obj, err := g.client.GetObject(ctx, p.Authority, objectKey(p), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, uri, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	return obj, nil
}

func (g *MinioGateway) EnsureDirectory(ctx context.Context, uri string) error {
	p := parseURI(uri)
	exists, err := g.client.BucketExists(ctx, p.Authority)
	if err != nil {
		return fmt.Errorf("%w: bucket %s: %v", ErrStorageUnavailable, p.Authority, err)
	}
	if !exists {
		if err := g.client.MakeBucket(ctx, p.Authority, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: make bucket %s: %v", ErrStorageUnavailable, p.Authority, err)
		}
	}
	marker := dirPrefix(p)
	if marker == "" {
		return nil
	}
	_, err = g.client.PutObject(ctx, p.Authority, marker, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("%w: ensure %s: %v", ErrStorageUnavailable, uri, err)
	}
	return nil
}

func (g *MinioGateway) RemoveRecursive(ctx context.Context, uri string) error {
	p := parseURI(uri)
	ch := g.client.ListObjects(ctx, p.Authority, minio.ListObjectsOptions{
		Prefix:    dirPrefix(p),
		Recursive: true,
	})
	var firstErr error
	for obj := range ch {
		if obj.Err != nil {
			if firstErr == nil {
				firstErr = obj.Err
			}
			continue
		}
		if err := g.client.RemoveObject(ctx, p.Authority, obj.Key, minio.RemoveObjectOptions{}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("remove %s: %w", uri, firstErr)
	}
	return nil
}

func objectKey(p parsedURI) string {
	return strings.TrimPrefix(p.Path, "/")
}

func dirPrefix(p parsedURI) string {
	key := objectKey(p)
	if key == "" {
		return ""
	}
	return strings.TrimSuffix(key, "/") + "/"
}

func childURI(p parsedURI, key string) string {
	return parsedURI{Scheme: p.Scheme, Authority: p.Authority, Path: "/" + strings.TrimSuffix(key, "/")}.String()
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
