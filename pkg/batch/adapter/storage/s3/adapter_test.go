package s3

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/songplays/pkg/batch/adapter/storage/config"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time.
type fakeS3 struct {
	s3iface.S3API
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) key(bucket, key *string) string { return aws.StringValue(bucket) + "/" + aws.StringValue(key) }

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[f.key(in.Bucket, in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[f.key(in.Bucket, in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObjectWithContext(_ aws.Context, in *s3.HeadObjectInput, _ ...request.Option) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[f.key(in.Bucket, in.Key)]; !ok {
		return nil, awserr.NewRequestFailure(awserr.New("NotFound", "not found", nil), 404, "req")
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, f.key(in.Bucket, in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	f.mu.Lock()
	var keys []string
	bucketPrefix := aws.StringValue(in.Bucket) + "/"
	for k := range f.objects {
		if strings.HasPrefix(k, bucketPrefix+aws.StringValue(in.Prefix)) {
			keys = append(keys, strings.TrimPrefix(k, bucketPrefix))
		}
	}
	f.mu.Unlock()
	sort.Strings(keys)

	for i := 0; i < len(keys); i += 2 {
		end := i + 2
		if end > len(keys) {
			end = len(keys)
		}
		page := &s3.ListObjectsV2Output{}
		for _, k := range keys[i:end] {
			page.Contents = append(page.Contents, &s3.Object{Key: aws.String(k)})
		}
		if !fn(page, end == len(keys)) {
			return nil
		}
	}
	return nil
}

func TestS3Adapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	conn := NewS3AdapterWithClient(storageConfig.StorageConfig{Type: ProviderType}, "s3", newFakeS3())

	require.NoError(t, conn.Upload(ctx, "lake", "out/songs/a.parquet", strings.NewReader("A"), ""))
	require.NoError(t, conn.Upload(ctx, "lake", "out/songs/b.parquet", strings.NewReader("B"), ""))
	require.NoError(t, conn.Upload(ctx, "lake", "out/users/c.parquet", strings.NewReader("C"), ""))

	loc := storageAdapter.MustParseLocation("s3a://lake/out/songs")
	keys, err := storageAdapter.ListKeys(ctx, conn, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"out/songs/a.parquet", "out/songs/b.parquet"}, keys)

	data, err := storageAdapter.ReadAll(ctx, conn, "lake", "out/songs/b.parquet")
	require.NoError(t, err)
	assert.Equal(t, "B", string(data))

	ok, err := conn.Exists(ctx, "lake", "out/songs/a.parquet")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = conn.Exists(ctx, "lake", "out/songs/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := storageAdapter.DeletePrefix(ctx, conn, loc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	keys, err = storageAdapter.ListKeys(ctx, conn, storageAdapter.MustParseLocation("s3://lake/out"))
	require.NoError(t, err)
	assert.Equal(t, []string{"out/users/c.parquet"}, keys)
}

func TestS3Adapter_ListStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	conn := NewS3AdapterWithClient(storageConfig.StorageConfig{BucketName: "lake"}, "s3", newFakeS3())
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, conn.Upload(ctx, "", k, strings.NewReader(k), ""))
	}

	seen := 0
	err := conn.ListObjects(ctx, "", "", func(string) error {
		seen++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, seen)
}
