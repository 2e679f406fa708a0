// Package storage is the blob store for uploaded application documents. The
// processing core only ever refers to a blob by its key.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// PutObjectOptions are optional upload parameters. Size is the exact byte
// count, or -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an S3-compatible object store. All I/O is streamed.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get returns the object's content, which the caller must close.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Ping checks that the bucket is reachable.
	Ping(ctx context.Context) error
}

// DocumentKey is the object key of a document:
// applications/<application>/<category>/<document><ext>.
func DocumentKey(applicationID, category, documentID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("applications", applicationID, category, documentID+ext)
}
