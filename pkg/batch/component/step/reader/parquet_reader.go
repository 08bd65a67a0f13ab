package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go-source/buffer"
	preader "github.com/xitongsys/parquet-go/reader"

	"github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	"github.com/tigerroll/songplays/pkg/batch/core/application/port"
	"github.com/tigerroll/songplays/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// successMarker must be present before a table is read.
const successMarker = "_SUCCESS"

// ParquetReaderConfig holds the configuration for ParquetReader.
type ParquetReaderConfig struct {
	// Location is the URI of the table directory.
	Location string `mapstructure:"location"`
}

// ParquetReader implements port.ItemReader for a table written by the Parquet writer.
// Files are read in key order, so partition directories come back sorted.
type ParquetReader[T any] struct {
	name                      string
	location                  storage.Location
	storageConnectionResolver storage.StorageConnectionResolver
	storageConn               storage.StorageConnection
}

// NewParquetReader creates a new instance of ParquetReader.
func NewParquetReader[T any](name string, properties map[string]interface{}, storageConnectionResolver storage.StorageConnectionResolver) (*ParquetReader[T], error) {
	var config ParquetReaderConfig
	if err := configbinder.BindProperties(properties, &config); err != nil {
		return nil, exception.NewReadError("reader", fmt.Sprintf("failed to decode ParquetReader properties for '%s'", name), err)
	}
	loc, err := storage.ParseLocation(config.Location)
	if err != nil {
		return nil, exception.NewReadError("reader", fmt.Sprintf("invalid location for ParquetReader '%s'", name), err)
	}
	return &ParquetReader[T]{
		name:                      name,
		location:                  loc,
		storageConnectionResolver: storageConnectionResolver,
	}, nil
}

// Open resolves the storage connection and checks that the table is complete.
func (r *ParquetReader[T]) Open(ctx context.Context) error {
	conn, err := r.storageConnectionResolver.ResolveStorageConnection(ctx, r.location)
	if err != nil {
		return exception.NewReadError("reader", fmt.Sprintf("failed to resolve storage connection for ParquetReader '%s'", r.name), err)
	}
	ok, err := conn.Exists(ctx, r.location.Bucket, r.location.Key(successMarker))
	if err != nil {
		return exception.NewReadError("reader", fmt.Sprintf("failed to check %s", r.location), err)
	}
	if !ok {
		return exception.NewReadError("reader", fmt.Sprintf("table %s is missing or incomplete (no %s)", r.location, successMarker), nil)
	}
	r.storageConn = conn
	return nil
}

// Read decodes every Parquet file of the table.
func (r *ParquetReader[T]) Read(ctx context.Context) ([]T, error) {
	if r.storageConn == nil {
		return nil, exception.NewReadError("reader", fmt.Sprintf("ParquetReader '%s' read before Open", r.name), nil)
	}
	keys, err := storage.ListKeys(ctx, r.storageConn, r.location)
	if err != nil {
		return nil, exception.NewReadError("reader", fmt.Sprintf("failed to list %s", r.location), err)
	}

	var out []T
	files := 0
	for _, key := range keys {
		if !strings.HasSuffix(key, ".parquet") {
			continue
		}
		data, err := storage.ReadAll(ctx, r.storageConn, r.location.Bucket, key)
		if err != nil {
			return nil, exception.NewReadError("reader", fmt.Sprintf("failed to download '%s'", key), err)
		}
		rows, err := decodeParquet[T](data)
		if err != nil {
			return nil, exception.NewReadError("reader", fmt.Sprintf("failed to decode '%s'", key), err)
		}
		out = append(out, rows...)
		files++
	}
	logger.Debugf("ParquetReader '%s': read %d rows from %d files under %s.", r.name, len(out), files, r.location)
	return out, nil
}

// Close is a no-op; connections are owned by the resolver.
func (r *ParquetReader[T]) Close(ctx context.Context) error {
	r.storageConn = nil
	return nil
}

func decodeParquet[T any](data []byte) (rows []T, err error) {
	pf, err := buffer.NewBufferFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap Parquet bytes: %w", err)
	}
	pr, err := preader.NewParquetReader(pf, new(T), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet reader: %w", err)
	}
	defer pr.ReadStop()

	defer func() {
		if rec := recover(); rec != nil {
			rows, err = nil, fmt.Errorf("parquet reader panicked: %v", rec)
		}
	}()

	n := int(pr.GetNumRows())
	rows = make([]T, n)
	if n == 0 {
		return rows, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

var _ port.ItemReader[any] = (*ParquetReader[any])(nil)
