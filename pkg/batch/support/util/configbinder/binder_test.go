package configbinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readerProps struct {
	Location    string `mapstructure:"location"`
	Concurrency int    `mapstructure:"concurrency"`
	AllowEmpty  bool   `mapstructure:"allowEmpty"`
}

func TestBindProperties_WeaklyTyped(t *testing.T) {
	var p readerProps
	require.NoError(t, BindProperties(map[string]interface{}{
		"location":    "s3a://udacity-dend/song_data",
		"concurrency": "4",
		"allowEmpty":  "true",
	}, &p))
	assert.Equal(t, readerProps{Location: "s3a://udacity-dend/song_data", Concurrency: 4, AllowEmpty: true}, p)
}

func TestBindProperties_NilMapKeepsZeroValue(t *testing.T) {
	var p readerProps
	require.NoError(t, BindProperties(nil, &p))
	assert.Equal(t, readerProps{}, p)
}

func TestBindProperties_RejectsUnknownKeys(t *testing.T) {
	var p readerProps
	err := BindProperties(map[string]interface{}{"locaton": "/tmp"}, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readerProps")
}
