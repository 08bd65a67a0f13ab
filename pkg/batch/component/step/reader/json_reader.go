package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	"github.com/tigerroll/songplays/pkg/batch/core/application/port"
	"github.com/tigerroll/songplays/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// JSONReaderConfig holds the configuration for JSONReader.
type JSONReaderConfig struct {
	// Location is the URI of the directory holding the JSON objects. It is searched recursively.
	Location string `mapstructure:"location"`
	// Suffix selects the objects to decode. Defaults to ".json".
	Suffix string `mapstructure:"suffix"`
	// Concurrency bounds parallel downloads. Defaults to 8.
	Concurrency int `mapstructure:"concurrency"`
	// AllowEmpty accepts a location without matching objects.
	AllowEmpty bool `mapstructure:"allowEmpty"`
}

// JSONReader implements port.ItemReader for a directory of JSON documents.
// Each object may hold one document, several concatenated documents or one
// document per line. Items are returned ordered by object key, then by
// position within the object.
type JSONReader[T any] struct {
	name                      string
	config                    *JSONReaderConfig
	location                  storage.Location
	storageConnectionResolver storage.StorageConnectionResolver
	storageConn               storage.StorageConnection
	objectCount               int
}

// NewJSONReader creates a new instance of JSONReader.
func NewJSONReader[T any](name string, properties map[string]interface{}, storageConnectionResolver storage.StorageConnectionResolver) (*JSONReader[T], error) {
	var config JSONReaderConfig
	if err := configbinder.BindProperties(properties, &config); err != nil {
		return nil, exception.NewReadError("reader", fmt.Sprintf("failed to decode JSONReader properties for '%s'", name), err)
	}
	if config.Location == "" {
		return nil, exception.NewReadError("reader", fmt.Sprintf("JSONReader '%s' requires 'location' property", name), nil)
	}
	loc, err := storage.ParseLocation(config.Location)
	if err != nil {
		return nil, exception.NewReadError("reader", fmt.Sprintf("invalid location for JSONReader '%s'", name), err)
	}
	if config.Suffix == "" {
		config.Suffix = ".json"
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	return &JSONReader[T]{
		name:                      name,
		config:                    &config,
		location:                  loc,
		storageConnectionResolver: storageConnectionResolver,
	}, nil
}

// Open resolves the storage connection.
func (r *JSONReader[T]) Open(ctx context.Context) error {
	conn, err := r.storageConnectionResolver.ResolveStorageConnection(ctx, r.location)
	if err != nil {
		return exception.NewReadError("reader", fmt.Sprintf("failed to resolve storage connection for JSONReader '%s'", r.name), err)
	}
	r.storageConn = conn
	return nil
}

// Read lists, downloads and decodes every matching object.
func (r *JSONReader[T]) Read(ctx context.Context) ([]T, error) {
	if r.storageConn == nil {
		return nil, exception.NewReadError("reader", fmt.Sprintf("JSONReader '%s' read before Open", r.name), nil)
	}

	allKeys, err := storage.ListKeys(ctx, r.storageConn, r.location)
	if err != nil {
		return nil, exception.NewReadError("reader", fmt.Sprintf("failed to list %s", r.location), err)
	}
	keys := allKeys[:0]
	for _, k := range allKeys {
		if strings.HasSuffix(k, r.config.Suffix) {
			keys = append(keys, k)
		}
	}
	r.objectCount = len(keys)
	if len(keys) == 0 {
		if r.config.AllowEmpty {
			logger.Warnf("JSONReader '%s': no '%s' objects under %s.", r.name, r.config.Suffix, r.location)
			return nil, nil
		}
		return nil, exception.NewReadError("reader", fmt.Sprintf("no '%s' objects found under %s", r.config.Suffix, r.location), nil)
	}

	perObject := make([][]T, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			data, err := storage.ReadAll(gctx, r.storageConn, r.location.Bucket, key)
			if err != nil {
				return exception.NewReadError("reader", fmt.Sprintf("failed to download '%s'", key), err)
			}
			items, err := DecodeJSONStream[T](data)
			if err != nil {
				return exception.NewReadError("reader", fmt.Sprintf("malformed JSON in '%s'", key), err)
			}
			perObject[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, items := range perObject {
		total += len(items)
	}
	out := make([]T, 0, total)
	for _, items := range perObject {
		out = append(out, items...)
	}
	logger.Infof("JSONReader '%s': decoded %d records from %d objects under %s.", r.name, len(out), len(keys), r.location)
	return out, nil
}

// ObjectCount returns the number of objects decoded by the last Read.
func (r *JSONReader[T]) ObjectCount() int {
	return r.objectCount
}

// Close is a no-op; connections are owned by the resolver.
func (r *JSONReader[T]) Close(ctx context.Context) error {
	r.storageConn = nil
	return nil
}

// DecodeJSONStream decodes every JSON document in data.
func DecodeJSONStream[T any](data []byte) ([]T, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var out []T
	for {
		var item T
		err := dec.Decode(&item)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(out)+1, err)
		}
		out = append(out, item)
	}
}

var _ port.ItemReader[any] = (*JSONReader[any])(nil)
