// Package gcs provides a Google Cloud Storage implementation of the storage adapter interfaces.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/songplays/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/songplays/pkg/batch/core/config"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this GCS storage provider.
	ProviderType = storageAdapter.TypeGCS
)

type gcsAdapter struct {
	cfg    storageConfig.StorageConfig
	name   string
	client *storage.Client
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter creates a GCS connection. A credentials file is used when
// configured, otherwise Application Default Credentials apply. Endpoint
// points the client at an emulator.
func NewGCSAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	logger.Debugf("GCS storage adapter '%s' created.", name)
	return &gcsAdapter{cfg: cfg, name: name, client: client}, nil
}

// NewGCSProvider creates the provider for "gcs" connections.
func NewGCSProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewBaseProvider(cfg, ProviderType, NewGCSAdapter)
}

// Close releases the underlying client.
func (a *gcsAdapter) Close() error {
	return a.client.Close()
}

func (a *gcsAdapter) Type() string { return ProviderType }
func (a *gcsAdapter) Name() string { return a.name }

func (a *gcsAdapter) object(bucket, objectName string) *storage.ObjectHandle {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	return a.client.Bucket(bucket).Object(objectName)
}

// Upload streams data into the object.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := a.object(bucket, objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write 'gs://%s/%s': %w", bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize 'gs://%s/%s': %w", bucket, objectName, err)
	}
	return nil
}

// Download opens a reader on the object. The caller must close it.
func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := a.object(bucket, objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read 'gs://%s/%s': %w", bucket, objectName, err)
	}
	return r, nil
}

// ListObjects iterates over the objects below prefix.
func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	it := a.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list 'gs://%s/%s': %w", bucket, prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

// DeleteObject deletes the object. A missing object is not an error.
func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := a.object(bucket, objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete 'gs://%s/%s': %w", bucket, objectName, err)
	}
	return nil
}

// Exists fetches the object attributes.
func (a *gcsAdapter) Exists(ctx context.Context, bucket, objectName string) (bool, error) {
	_, err := a.object(bucket, objectName).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat 'gs://%s/%s': %w", bucket, objectName, err)
	}
	return true, nil
}
