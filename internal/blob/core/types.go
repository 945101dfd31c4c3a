// Package core holds the object storage contract that provenance reports are
// written through, shared by the blob entry package and its backends.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver names a storage backend.
type Driver string

// Supported drivers.
const (
	DriverS3     Driver = "s3"     // S3, MinIO or any S3-compatible endpoint
	DriverMemory Driver = "memory" // process-local, lost on exit
)

// DefaultURLExpiry applies when SignedURLOptions.Expiry is zero.
const DefaultURLExpiry = 15 * time.Minute

// PutOptions carries object attributes stored alongside the body.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions selects the method and lifetime of a presigned URL. Only
// GET links are issued.
type SignedURLOptions struct {
	Method string
	Expiry time.Duration
}

// Info is the metadata of one stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"contentType,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"lastModified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a create-only object store: Put never replaces an existing key.
type Store interface {
	// Put writes a new object and fails with ErrExists when key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get opens an object; callers close the reader. Missing keys yield ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes key and reports whether it was present.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns the objects under prefix sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// Sentinel errors shared by every backend.
var (
	ErrUnsupported = errors.New("blob: operation not supported by driver")
	ErrNotFound    = errors.New("blob: object not found")
	ErrExists      = errors.New("blob: object already exists")
)
