package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	"github.com/tigerroll/songplays/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/songplays/pkg/batch/core/config"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
)

type doc struct {
	ID   string `json:"id"`
	Seen int    `json:"seen"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newResolver() storage.StorageConnectionResolver {
	return storage.NewConnectionResolverFromProviders(local.NewLocalProvider(config.NewConfig()))
}

func TestJSONReader_ReadsNestedObjectsInKeyOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "B", "b.json"), `{"id":"b1","seen":1}`)
	writeFile(t, filepath.Join(dir, "A", "A", "a.json"), "{\"id\":\"a1\"}\n{\"id\":\"a2\",\"seen\":2}\n")
	writeFile(t, filepath.Join(dir, "A", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "C", "c.json"), `{"id":"c1"} {"id":"c2"}`)

	r, err := NewJSONReader[doc]("docs", map[string]interface{}{"location": dir, "concurrency": 2}, newResolver())
	require.NoError(t, err)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close(context.Background())

	got, err := r.Read(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a1", "a2", "b1", "c1", "c2"}, ids)
	assert.Equal(t, 2, got[1].Seen)
	assert.Equal(t, 3, r.ObjectCount())
}

func TestJSONReader_MalformedIsReadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.json"), `{"id":"x"`)

	r, err := NewJSONReader[doc]("docs", map[string]interface{}{"location": dir}, newResolver())
	require.NoError(t, err)
	require.NoError(t, r.Open(context.Background()))
	_, err = r.Read(context.Background())
	assert.True(t, exception.IsReadError(err))
}

func TestJSONReader_EmptySource(t *testing.T) {
	dir := t.TempDir()

	r, err := NewJSONReader[doc]("docs", map[string]interface{}{"location": dir}, newResolver())
	require.NoError(t, err)
	require.NoError(t, r.Open(context.Background()))
	_, err = r.Read(context.Background())
	assert.True(t, exception.IsReadError(err))

	r, err = NewJSONReader[doc]("docs", map[string]interface{}{"location": dir, "allowEmpty": true}, newResolver())
	require.NoError(t, err)
	require.NoError(t, r.Open(context.Background()))
	got, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeJSONStream(t *testing.T) {
	got, err := DecodeJSONStream[doc]([]byte("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = DecodeJSONStream[doc]([]byte(`{"id":1}`))
	assert.Error(t, err)
}
