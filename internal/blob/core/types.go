// Package core defines core abstractions for blob storage backends
// used internally by the dataset pipeline.
package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
	// Replace atomically overwrites an existing blob instead of failing.
	Replace bool
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store provides a thin S3-like abstraction over a directory tree.
//
// Keys use forward slashes. Prefix arguments name directories: "train/1"
// matches "train/1/a.jpg" but never "train/10/a.jpg". List results are sorted
// by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	// DeletePrefix removes every blob under prefix together with the directory itself.
	DeletePrefix(ctx context.Context, prefix string) error
	// EnsurePrefix makes sure the directory exists, even when empty.
	EnsurePrefix(ctx context.Context, prefix string) error
	Driver() Driver
}

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("blobstore: not found")
	// ErrExists is returned by create-only writes when the key is taken.
	ErrExists = errors.New("blobstore: already exists")
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("blobstore: unsupported operation")
)

// DirPrefix normalizes a directory prefix into "" or a slash-terminated form.
func DirPrefix(prefix string) string {
	p := strings.Trim(prefix, "/")
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}

// Children returns the infos whose keys sit directly under prefix, skipping
// anything in nested directories.
func Children(infos []Info, prefix string) []Info {
	dir := DirPrefix(prefix)
	out := make([]Info, 0, len(infos))
	for _, inf := range infos {
		rest := strings.TrimPrefix(inf.Key, dir)
		if rest == inf.Key && dir != "" {
			continue
		}
		if strings.Contains(rest, "/") {
			continue
		}
		out = append(out, inf)
	}
	return out
}

// Base returns the last element of a key.
func Base(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}
