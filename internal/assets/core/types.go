// Package core defines the asset source abstractions shared by every
// driver under internal/infra/assets.
package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Driver identifies a concrete asset backend implementation.
type Driver string

const (
	// DriverFilesystem reads assets from a local directory.
	DriverFilesystem Driver = "fs" // local directory (default, dev)
	// DriverS3 reads assets from an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps assets in process memory.
	DriverMemory Driver = "memory" // tests
	// DriverHTTP fetches assets relative to a base URL.
	DriverHTTP Driver = "http"
	// DriverBucket opens a portable bucket URL (file://, mem://).
	DriverBucket Driver = "bucket"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string // MIME type, optional
}

// Info describes a stored asset.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Source is the read side every driver provides.
type Source interface {
	// Get returns metadata and a reader over the asset. Missing keys wrap ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// List returns assets whose key has the prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// Store is a Source that can also accept new assets.
type Store interface {
	Source
	// Put stores an asset at key, replacing any existing content.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
}

var (
	// ErrNotFound is wrapped by drivers when a key does not exist.
	ErrNotFound = errors.New("assets: not found")
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("assets: unsupported operation")
)

// ContentTypeFor guesses a content type from the key's extension.
func ContentTypeFor(key string) string {
	lower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return "text/csv"
	case strings.HasSuffix(lower, ".geojson"):
		return "application/geo+json"
	case strings.HasSuffix(lower, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
