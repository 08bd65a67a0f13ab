// Package s3 provides an Amazon S3 implementation of the storage adapter interfaces.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	storageAdapter "github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/songplays/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/songplays/pkg/batch/core/config"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this S3 storage provider.
	ProviderType = storageAdapter.TypeS3
)

// s3Adapter implements storage.StorageConnection on an S3 client.
type s3Adapter struct {
	cfg    storageConfig.StorageConfig
	name   string
	client s3iface.S3API
}

var _ storageAdapter.StorageConnection = (*s3Adapter)(nil)

// NewS3Adapter creates an S3 connection. Static credentials are used when
// configured, otherwise the default AWS credential chain applies.
func NewS3Adapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	logger.Debugf("S3 storage adapter '%s' created (region '%s').", name, cfg.Region)
	return NewS3AdapterWithClient(cfg, name, s3.New(sess)), nil
}

// NewS3AdapterWithClient creates an S3 connection around an existing client.
func NewS3AdapterWithClient(cfg storageConfig.StorageConfig, name string, client s3iface.S3API) storageAdapter.StorageConnection {
	return &s3Adapter{cfg: cfg, name: name, client: client}
}

// NewS3Provider creates the provider for "s3" connections.
func NewS3Provider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewBaseProvider(cfg, ProviderType, NewS3Adapter)
}

func (a *s3Adapter) Close() error { return nil }
func (a *s3Adapter) Type() string { return ProviderType }
func (a *s3Adapter) Name() string { return a.name }

func (a *s3Adapter) bucket(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

// Upload buffers data and puts it as a single object.
func (a *s3Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to buffer upload for 's3://%s/%s': %w", a.bucket(bucket), objectName, err)
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(a.bucket(bucket)),
		Key:    aws.String(objectName),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := a.client.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to put 's3://%s/%s': %w", a.bucket(bucket), objectName, err)
	}
	logger.Debugf("Uploaded 's3://%s/%s' (%d bytes).", a.bucket(bucket), objectName, len(body))
	return nil
}

// Download returns the object body. The caller must close it.
func (a *s3Adapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	out, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket(bucket)),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get 's3://%s/%s': %w", a.bucket(bucket), objectName, err)
	}
	return out.Body, nil
}

// ListObjects pages through ListObjectsV2.
func (a *s3Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	var cbErr error
	err := a.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket(bucket)),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if cbErr = fn(aws.StringValue(obj.Key)); cbErr != nil {
				return false
			}
		}
		return true
	})
	if cbErr != nil {
		return cbErr
	}
	if err != nil {
		return fmt.Errorf("failed to list 's3://%s/%s': %w", a.bucket(bucket), prefix, err)
	}
	return nil
}

// DeleteObject deletes the object. S3 deletes are idempotent.
func (a *s3Adapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	_, err := a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket(bucket)),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete 's3://%s/%s': %w", a.bucket(bucket), objectName, err)
	}
	return nil
}

// Exists issues a HEAD request for the object.
func (a *s3Adapter) Exists(ctx context.Context, bucket, objectName string) (bool, error) {
	_, err := a.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket(bucket)),
		Key:    aws.String(objectName),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat 's3://%s/%s': %w", a.bucket(bucket), objectName, err)
}

func isNotFound(err error) bool {
	if reqErr, ok := err.(awserr.RequestFailure); ok && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
