// Package storage defines the common interfaces for object storage adapters.
// Readers and writers address data through a Location and reach the backend
// (local file system, S3, GCS) through a StorageConnection.
package storage

import (
	"context"
	"io"

	coreAdapter "github.com/tigerroll/songplays/pkg/batch/core/adapter"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to the object at bucket/objectName, replacing it if present.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the object at bucket/objectName. The caller must close the reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object in bucket whose key starts with prefix.
	// Keys are '/'-separated and relative to the bucket.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
	// Exists reports whether the object exists.
	Exists(ctx context.Context, bucket, objectName string) (bool, error)
}

// StorageConnection represents a connection to one storage backend.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}

// StorageProvider manages the connections of one storage type.
type StorageProvider interface {
	// GetConnection retrieves the StorageConnection with the specified name, creating it on first use.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the storage type handled by this provider (e.g., "local", "s3", "gcs").
	Type() string
}

// StorageConnectionResolver resolves the connection that serves a Location.
type StorageConnectionResolver interface {
	// ResolveStorageConnection returns the connection for loc's storage type.
	ResolveStorageConnection(ctx context.Context, loc Location) (StorageConnection, error)
	// CloseAll closes every provider's connections.
	CloseAll() error
}
