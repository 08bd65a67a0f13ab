package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// copyConcurrency bounds parallel object copies.
const copyConcurrency = 8

// ListKeys returns the sorted keys of all objects below loc.
func ListKeys(ctx context.Context, conn StorageConnection, loc Location) ([]string, error) {
	var keys []string
	err := conn.ListObjects(ctx, loc.Bucket, loc.Prefix(), func(objectName string) error {
		keys = append(keys, objectName)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// DeletePrefix deletes every object below loc and returns how many were removed.
func DeletePrefix(ctx context.Context, conn StorageConnection, loc Location) (int, error) {
	keys, err := ListKeys(ctx, conn, loc)
	if err != nil {
		return 0, fmt.Errorf("failed to list '%s' for deletion: %w", loc, err)
	}
	for _, key := range keys {
		if err := conn.DeleteObject(ctx, loc.Bucket, key); err != nil {
			return 0, fmt.Errorf("failed to delete '%s': %w", key, err)
		}
	}
	logger.Debugf("Deleted %d objects under '%s'.", len(keys), loc)
	return len(keys), nil
}

// CopyPrefix copies every object below src to the same relative key below dst
// and returns the copied relative keys in sorted order. Objects for which skip
// returns true are left out; skip may be nil.
func CopyPrefix(ctx context.Context, conn StorageConnection, src, dst Location, skip func(rel string) bool) ([]string, error) {
	keys, err := ListKeys(ctx, conn, src)
	if err != nil {
		return nil, fmt.Errorf("failed to list '%s' for copy: %w", src, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	var rel []string
	for _, key := range keys {
		key, relKey := key, src.Rel(key)
		if skip != nil && skip(relKey) {
			continue
		}
		rel = append(rel, relKey)
		g.Go(func() error {
			return copyObject(gctx, conn, src.Bucket, key, dst.Bucket, dst.Key(relKey))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rel, nil
}

func copyObject(ctx context.Context, conn StorageConnection, srcBucket, srcKey, dstBucket, dstKey string) error {
	data, err := ReadAll(ctx, conn, srcBucket, srcKey)
	if err != nil {
		return err
	}
	if err := conn.Upload(ctx, dstBucket, dstKey, bytes.NewReader(data), ""); err != nil {
		return fmt.Errorf("failed to copy '%s' to '%s': %w", srcKey, dstKey, err)
	}
	return nil
}

// ReadAll downloads the whole object into memory.
func ReadAll(ctx context.Context, conn StorageConnection, bucket, objectName string) ([]byte, error) {
	rc, err := conn.Download(ctx, bucket, objectName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", objectName, err)
	}
	return data, nil
}
