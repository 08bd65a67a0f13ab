package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/songplays/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/songplays/pkg/batch/core/config"
)

func TestLocalAdapter_UploadListDownloadDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	conn, err := NewLocalAdapter(storageConfig.StorageConfig{Type: ProviderType}, "local")
	require.NoError(t, err)

	require.NoError(t, conn.Upload(ctx, dir, "songs/year=2018/part-0.parquet", strings.NewReader("p0"), ""))
	require.NoError(t, conn.Upload(ctx, dir, "songs/_SUCCESS", strings.NewReader(""), ""))
	require.NoError(t, conn.Upload(ctx, dir, "users/part-0.parquet", strings.NewReader("u0"), ""))

	loc := storageAdapter.Location{Type: ProviderType, Bucket: dir}.Join("songs")
	keys, err := storageAdapter.ListKeys(ctx, conn, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"songs/_SUCCESS", "songs/year=2018/part-0.parquet"}, keys)

	data, err := storageAdapter.ReadAll(ctx, conn, dir, "users/part-0.parquet")
	require.NoError(t, err)
	assert.Equal(t, "u0", string(data))

	ok, err := conn.Exists(ctx, dir, "songs/_SUCCESS")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := storageAdapter.DeletePrefix(ctx, conn, loc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = os.Stat(filepath.Join(dir, "songs"))
	assert.True(t, os.IsNotExist(err), "empty directories are pruned")

	ok, err = conn.Exists(ctx, dir, "songs/_SUCCESS")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalAdapter_ListMissingDirectory(t *testing.T) {
	conn, err := NewLocalAdapter(storageConfig.StorageConfig{}, "local")
	require.NoError(t, err)

	var keys []string
	err = conn.ListObjects(context.Background(), filepath.Join(t.TempDir(), "nope"), "", func(k string) error {
		keys = append(keys, k)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	conn, err := NewLocalAdapter(storageConfig.StorageConfig{}, "local")
	require.NoError(t, err)
	dir := t.TempDir()

	err = conn.Upload(context.Background(), dir, "../outside.txt", strings.NewReader("x"), "")
	assert.Error(t, err)
	_, err = conn.Download(context.Background(), dir, "../../etc/passwd")
	assert.Error(t, err)
}

func TestLocalAdapter_BaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "root")
	conn, err := NewLocalAdapter(storageConfig.StorageConfig{BaseDir: base, BucketName: "lake"}, "local")
	require.NoError(t, err)

	require.NoError(t, conn.Upload(context.Background(), "", "a.json", strings.NewReader("{}"), ""))
	_, err = os.Stat(filepath.Join(base, "lake", "a.json"))
	assert.NoError(t, err)
}

func TestLocalProvider_CopyPrefixThroughResolver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	resolver := storageAdapter.NewConnectionResolverFromProviders(NewLocalProvider(coreConfig.NewConfig()))
	defer resolver.CloseAll()

	src := storageAdapter.MustParseLocation(filepath.Join(dir, "_staging", "run1", "songs"))
	dst := storageAdapter.MustParseLocation(filepath.Join(dir, "songs"))
	conn, err := resolver.ResolveStorageConnection(ctx, src)
	require.NoError(t, err)

	require.NoError(t, conn.Upload(ctx, src.Bucket, src.Key("year=2018/part-0.parquet"), strings.NewReader("x"), ""))
	copied, err := storageAdapter.CopyPrefix(ctx, conn, src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"year=2018/part-0.parquet"}, copied)

	data, err := os.ReadFile(filepath.Join(dir, "songs", "year=2018", "part-0.parquet"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	_, err = resolver.ResolveStorageConnection(ctx, storageAdapter.MustParseLocation("s3://bucket/x"))
	assert.Error(t, err, "no s3 provider registered")
}
