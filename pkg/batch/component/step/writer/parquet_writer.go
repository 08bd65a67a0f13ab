package writer

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	"github.com/tigerroll/songplays/pkg/batch/core/application/port"
	"github.com/tigerroll/songplays/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// SuccessMarker is the empty object written after all files of a table.
const SuccessMarker = "_SUCCESS"

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// Location is the URI of the table directory (e.g., "s3a://bucket/out/songs").
	Location string `mapstructure:"location"`
	// CompressionType is the compression type for Parquet files (e.g., "SNAPPY", "GZIP", "NONE").
	CompressionType string `mapstructure:"compressionType"`
	// RunID is embedded in file names so files of different runs never collide.
	RunID string `mapstructure:"runId"`
	// Overwrite removes everything below Location when the writer is opened.
	Overwrite bool `mapstructure:"overwrite"`
}

// PartitionFunc returns the ordered partition values of an item. A nil
// PartitionFunc writes an unpartitioned table.
type PartitionFunc[T any] func(T) []PartitionValue

// WriteResult summarizes a finished table.
type WriteResult struct {
	Location   string
	Rows       int
	Partitions int
	Files      []string
}

// ParquetWriter implements port.ItemWriter for a Hive-partitioned Parquet table.
// Items are buffered by partition and encoded on Close, one file per partition.
type ParquetWriter[T any] struct {
	name                      string
	config                    *ParquetWriterConfig
	location                  storage.Location
	storageConnectionResolver storage.StorageConnectionResolver
	// itemPrototype is a pointer to a zero-value instance of the item type, used for Parquet schema reflection.
	itemPrototype *T
	partitionFunc PartitionFunc[T]

	storageConn   storage.StorageConnection
	bufferedItems map[string][]T
	// totalRecordsBuffered is the total count of all buffered records.
	totalRecordsBuffered int
	result               WriteResult
}

// NewParquetWriter creates a new instance of ParquetWriter.
//
// Parameters:
//
//	name: The unique name of the writer, used in logs and errors.
//	properties: Configuration properties decoded into ParquetWriterConfig.
//	storageConnectionResolver: Resolver for storage connections.
//	itemPrototype: A prototype instance of the item type for schema reflection.
//	partitionFunc: Extracts partition values from an item, or nil.
func NewParquetWriter[T any](
	name string,
	properties map[string]interface{},
	storageConnectionResolver storage.StorageConnectionResolver,
	itemPrototype *T,
	partitionFunc PartitionFunc[T],
) (*ParquetWriter[T], error) {
	var config ParquetWriterConfig
	if err := configbinder.BindProperties(properties, &config); err != nil {
		return nil, exception.NewWriteError("writer", fmt.Sprintf("failed to decode ParquetWriter properties for '%s'", name), err)
	}
	if config.Location == "" {
		return nil, exception.NewWriteError("writer", fmt.Sprintf("ParquetWriter '%s' requires 'location' property", name), nil)
	}
	loc, err := storage.ParseLocation(config.Location)
	if err != nil {
		return nil, exception.NewWriteError("writer", fmt.Sprintf("invalid location for ParquetWriter '%s'", name), err)
	}
	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	if _, err := getCompressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewWriteError("writer", fmt.Sprintf("invalid compression type for ParquetWriter '%s'", name), err)
	}

	return &ParquetWriter[T]{
		name:                      name,
		config:                    &config,
		location:                  loc,
		storageConnectionResolver: storageConnectionResolver,
		itemPrototype:             itemPrototype,
		partitionFunc:             partitionFunc,
		bufferedItems:             make(map[string][]T),
	}, nil
}

// Open resolves the storage connection and, in overwrite mode, clears the table directory.
func (w *ParquetWriter[T]) Open(ctx context.Context) error {
	conn, err := w.storageConnectionResolver.ResolveStorageConnection(ctx, w.location)
	if err != nil {
		return exception.NewWriteError("writer", fmt.Sprintf("failed to resolve storage connection for ParquetWriter '%s'", w.name), err)
	}
	w.storageConn = conn
	w.bufferedItems = make(map[string][]T)
	w.totalRecordsBuffered = 0
	w.result = WriteResult{Location: w.location.String()}

	if w.config.Overwrite {
		n, err := storage.DeletePrefix(ctx, conn, w.location)
		if err != nil {
			return exception.NewWriteError("writer", fmt.Sprintf("failed to clear '%s' for ParquetWriter '%s'", w.location, w.name), err)
		}
		if n > 0 {
			logger.Infof("ParquetWriter '%s': removed %d existing objects under %s.", w.name, n, w.location)
		}
	}

	logger.Debugf("ParquetWriter '%s' opened. Target: %s", w.name, w.location)
	return nil
}

// Write accumulates items into the partition buffers. Nothing is uploaded until Close.
func (w *ParquetWriter[T]) Write(ctx context.Context, items []T) error {
	for _, item := range items {
		partitionKey := ""
		if w.partitionFunc != nil {
			partitionKey = PartitionPath(w.partitionFunc(item))
		}
		w.bufferedItems[partitionKey] = append(w.bufferedItems[partitionKey], item)
		w.totalRecordsBuffered++
	}
	logger.Debugf("ParquetWriter '%s' buffered %d items. Total buffered: %d.", w.name, len(items), w.totalRecordsBuffered)
	return nil
}

// Close encodes every partition in sorted order, uploads the files and writes
// the success marker. An empty table consists of the marker only. The marker
// is not written if any partition failed.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	if w.storageConn == nil {
		return exception.NewWriteError("writer", fmt.Sprintf("ParquetWriter '%s' closed before Open", w.name), nil)
	}
	compressionCodec, _ := getCompressionCodec(w.config.CompressionType)

	partitionKeys := make([]string, 0, len(w.bufferedItems))
	for k := range w.bufferedItems {
		partitionKeys = append(partitionKeys, k)
	}
	sort.Strings(partitionKeys)

	var multiErr error
	for i, partitionKey := range partitionKeys {
		items := w.bufferedItems[partitionKey]
		if err := ctx.Err(); err != nil {
			multiErr = multierror.Append(multiErr, err)
			break
		}

		buf, err := w.encode(items, compressionCodec)
		if err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("partition '%s': %w", partitionKey, err))
			continue
		}

		fileName := fmt.Sprintf("part-%05d-%s.parquet", i, w.config.RunID)
		relPath := fileName
		if partitionKey != "" {
			relPath = partitionKey + "/" + fileName
		}
		objectName := w.location.Key(relPath)

		logger.Debugf("ParquetWriter '%s': uploading %d bytes to %s", w.name, buf.Len(), objectName)
		if err := w.storageConn.Upload(ctx, w.location.Bucket, objectName, buf, "application/octet-stream"); err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("partition '%s': upload '%s': %w", partitionKey, objectName, err))
			continue
		}
		w.result.Files = append(w.result.Files, relPath)
		w.result.Rows += len(items)
		if partitionKey != "" {
			w.result.Partitions++
		}
	}

	w.bufferedItems = make(map[string][]T)
	w.totalRecordsBuffered = 0

	if multiErr != nil {
		return exception.NewWriteError("writer", fmt.Sprintf("ParquetWriter '%s' failed to write %s", w.name, w.location), multiErr)
	}

	if err := w.storageConn.Upload(ctx, w.location.Bucket, w.location.Key(SuccessMarker), bytes.NewReader(nil), ""); err != nil {
		return exception.NewWriteError("writer", fmt.Sprintf("ParquetWriter '%s' failed to write success marker", w.name), err)
	}
	logger.Infof("ParquetWriter '%s': wrote %d rows in %d files to %s.", w.name, w.result.Rows, len(w.result.Files), w.location)
	return nil
}

// encode writes items into an in-memory Parquet file.
func (w *ParquetWriter[T]) encode(items []T, codec parquet.CompressionCodec) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, w.itemPrototype, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	pw.CompressionType = codec

	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return nil, fmt.Errorf("failed to write item: %w", err)
		}
	}

	// WriteStop may panic on schema mismatches inside the library.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("ParquetWriter '%s': recovered from panic during WriteStop: %v", w.name, r)
			buf, err = nil, fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to stop Parquet writer: %w", err)
	}
	return buf, nil
}

// Result returns the summary of the last Close.
func (w *ParquetWriter[T]) Result() WriteResult {
	return w.result
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// Verify that [ParquetWriter] satisfies the [port.ItemWriter] interface at compile time.
var _ port.ItemWriter[any] = (*ParquetWriter[any])(nil)
