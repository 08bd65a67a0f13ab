package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/songplays/pkg/batch/core/config"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
)

const testYAML = `
songplays:
  system:
    timezone: UTC
    logging:
      level: DEBUG
  pipeline:
    input_base: ${SONGPLAYS_TEST_INPUT}
    output_base: /tmp/songplays-out
    read_concurrency: 4
    tables:
      songs: songs_parquet
  adapter:
    storage:
      s3:
        region: us-west-2
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(config.LoadOptions{
		Overrides: config.Overrides{InputBase: "/in", OutputBase: "/out"},
	})
	require.NoError(t, err)

	p := cfg.Songplays.Pipeline
	assert.Equal(t, "song_data", p.SongDataPath)
	assert.Equal(t, "log_data", p.LogDataPath)
	assert.Equal(t, "songs_data", p.Tables.Songs)
	assert.Equal(t, "artists_table", p.Tables.Artists)
	assert.Equal(t, "users_table", p.Tables.Users)
	assert.Equal(t, "time_table", p.Tables.Time)
	assert.Equal(t, "songplays_table", p.Tables.Songplays)
	assert.Equal(t, config.PublishModeStaged, p.PublishMode)
	assert.Equal(t, "SNAPPY", p.CompressionType)
	assert.False(t, p.DedupeDimensions)
	assert.Equal(t, "UTC", cfg.Songplays.System.Timezone)
	assert.Equal(t, config.JobRepositoryInMemory, cfg.Songplays.Infrastructure.JobRepositoryType)
}

func TestLoadConfig_YAMLEnvAndOverrides(t *testing.T) {
	t.Setenv("SONGPLAYS_TEST_INPUT", "s3a://udacity-dend/")
	t.Setenv("SONGPLAYS_PIPELINE_COMPRESSION_TYPE", "GZIP")

	dedupe := true
	cfg, err := config.LoadConfig(config.LoadOptions{
		Embedded: config.EmbeddedConfig(testYAML),
		Overrides: config.Overrides{
			OutputBase:       "/override-out",
			PublishMode:      "DIRECT",
			DedupeDimensions: &dedupe,
		},
	})
	require.NoError(t, err)

	p := cfg.Songplays.Pipeline
	assert.Equal(t, "s3a://udacity-dend/", p.InputBase)
	assert.Equal(t, "/override-out", p.OutputBase)
	assert.Equal(t, 4, p.ReadConcurrency)
	assert.Equal(t, "songs_parquet", p.Tables.Songs)
	assert.Equal(t, "artists_table", p.Tables.Artists)
	assert.Equal(t, "GZIP", p.CompressionType)
	assert.Equal(t, config.PublishModeDirect, p.PublishMode)
	assert.True(t, p.DedupeDimensions)
	assert.Equal(t, "DEBUG", cfg.Songplays.System.Logging.Level)

	raw, ok := cfg.AdapterConfig("storage", "s3")
	require.True(t, ok)
	assert.Equal(t, "us-west-2", raw.(map[string]interface{})["region"])
}

func TestLoadConfig_SettingsFileCredentials(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "dl.cfg", "[AWS]\nAWS_ACCESS_KEY_ID='AKIDEXAMPLE'\nAWS_SECRET_ACCESS_KEY=secret-value\n")

	before := os.Getenv("AWS_ACCESS_KEY_ID")
	cfg, err := config.LoadConfig(config.LoadOptions{
		SettingsFile: settings,
		Overrides:    config.Overrides{InputBase: "s3://bucket/in", OutputBase: "s3://bucket/out"},
	})
	require.NoError(t, err)

	assert.Equal(t, "AKIDEXAMPLE", cfg.Settings["AWS_ACCESS_KEY_ID"])
	raw, ok := cfg.AdapterConfig("storage", "s3")
	require.True(t, ok)
	m := raw.(map[string]interface{})
	if before == "" {
		assert.Equal(t, "AKIDEXAMPLE", m["access_key_id"])
	}
	assert.NotEmpty(t, m["secret_access_key"])
	assert.Equal(t, before, os.Getenv("AWS_ACCESS_KEY_ID"), "settings must not leak into the process environment")
}

func TestLoadConfig_ConfigFileReplacesEmbedded(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "application.yaml", "songplays:\n  pipeline:\n    input_base: /file-in\n    output_base: /file-out\n")

	cfg, err := config.LoadConfig(config.LoadOptions{
		Embedded:   config.EmbeddedConfig("songplays:\n  pipeline:\n    input_base: /embedded\n"),
		ConfigFile: path,
	})
	require.NoError(t, err)
	assert.Equal(t, "/file-in", cfg.Songplays.Pipeline.InputBase)
	assert.Equal(t, "/file-out", cfg.Songplays.Pipeline.OutputBase)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := config.LoadConfig(config.LoadOptions{})
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
	assert.Contains(t, err.Error(), "input_base")

	_, err = config.LoadConfig(config.LoadOptions{
		Overrides: config.Overrides{InputBase: "/in", OutputBase: "/out", PublishMode: "eventually"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish_mode")

	_, err = config.LoadConfig(config.LoadOptions{
		Embedded:  config.EmbeddedConfig("songplays:\n  system:\n    timezone: Mars/Olympus\n"),
		Overrides: config.Overrides{InputBase: "/in", OutputBase: "/out"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")

	_, err = config.LoadConfig(config.LoadOptions{SettingsFile: filepath.Join(t.TempDir(), "missing.cfg")})
	require.Error(t, err)
}
