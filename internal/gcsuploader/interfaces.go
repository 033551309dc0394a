package gcsuploader

import (
	"context"
	"io"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// Fetch downloads the object at a gs:// URI.
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)

	// Upload writes r to bucket/object and returns the object's gs:// URI.
	Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error)
}

var _ StorageService = (*GCSStorageService)(nil)
