package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	config "github.com/tigerroll/songplays/pkg/batch/core/config"
)

const testSong = `{"num_songs":1,"artist_id":"A1","artist_latitude":null,"artist_longitude":null,"artist_location":"",` +
	`"artist_name":"Artist","song_id":"S1","title":"Test","duration":210.0,"year":2000}`

const testEvent = `{"artist":"Artist","auth":"Logged In","firstName":"A","gender":"F","itemInSession":0,"lastName":"B",` +
	`"length":210.0,"level":"free","location":"NY","method":"PUT","page":"NextSong","registration":1540344794796.0,` +
	`"sessionId":42,"song":"Test","status":200,"ts":1541990258796,"userAgent":"X","userId":"7"}` + "\n"

const testConfig = `songplays:
  system:
    timezone: UTC
    logging:
      level: WARN
  metrics:
    enabled: false
    push_job_name: songplays-test
`

func writeInput(t *testing.T) string {
	t.Helper()
	in := t.TempDir()
	files := map[string]string{
		filepath.Join("song_data", "A", "A", "A", "TRAAAAW128F429D538.json"): testSong,
		filepath.Join("log_data", "2018", "11", "2018-11-12-events.json"):    testEvent,
	}
	for rel, content := range files {
		path := filepath.Join(in, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return in
}

func TestRunApplication_Succeeds(t *testing.T) {
	in := writeInput(t)
	out := t.TempDir()

	code := RunApplication(context.Background(), config.LoadOptions{
		Embedded:  config.EmbeddedConfig(testConfig),
		Overrides: config.Overrides{InputBase: in, OutputBase: out},
	})

	assert.Equal(t, ExitOK, code)
	for _, table := range []string{"songs_data", "artists_table", "users_table", "time_table", "songplays_table"} {
		assert.FileExists(t, filepath.Join(out, table, "_SUCCESS"), table)
	}
	assert.NoDirExists(t, filepath.Join(out, "_staging"))
}

func TestRunApplication_MissingInputFails(t *testing.T) {
	out := t.TempDir()

	code := RunApplication(context.Background(), config.LoadOptions{
		Embedded:  config.EmbeddedConfig(testConfig),
		Overrides: config.Overrides{InputBase: t.TempDir(), OutputBase: out},
	})

	assert.Equal(t, ExitFailed, code)
	assert.NoDirExists(t, filepath.Join(out, "songs_data"))
}

func TestRunApplication_InvalidConfigFails(t *testing.T) {
	code := RunApplication(context.Background(), config.LoadOptions{
		Embedded: config.EmbeddedConfig("songplays:\n  system:\n    timezone: Mars/Olympus\n"),
	})
	assert.Equal(t, ExitFailed, code)
}

func TestOptions_GraphIsComplete(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Songplays.Pipeline.InputBase = "/data/in"
	cfg.Songplays.Pipeline.OutputBase = "/data/out"
	assert.NoError(t, fx.ValidateApp(Options(context.Background(), cfg)...))

	cfg.Songplays.Infrastructure.JobRepositoryType = config.JobRepositorySQL
	assert.NoError(t, fx.ValidateApp(Options(context.Background(), cfg)...))
}
