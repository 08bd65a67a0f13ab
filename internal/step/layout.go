package step

import (
	"fmt"

	"github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	"github.com/tigerroll/songplays/pkg/batch/core/config"
)

// Logical table names, in publish order.
const (
	TableSongs     = "songs"
	TableArtists   = "artists"
	TableUsers     = "users"
	TableTime      = "time"
	TableSongplays = "songplays"
)

// TableNames lists the output tables in the order they are published.
var TableNames = []string{TableSongs, TableArtists, TableUsers, TableTime, TableSongplays}

// TableLocation holds where a table is written during a run and where it is finally visible.
type TableLocation struct {
	Name string
	// Target is where the writer puts the table: the staging prefix in staged mode, Live otherwise.
	Target storage.Location
	Live   storage.Location
}

// Staged reports whether the table is written away from its live location.
func (t TableLocation) Staged() bool {
	return t.Target != t.Live
}

// Layout resolves input and output locations of one run.
type Layout struct {
	RunID       string
	Mode        config.PublishMode
	SongData    storage.Location
	LogData     storage.Location
	StagingRoot storage.Location
	tables      map[string]TableLocation
}

// NewLayout builds the layout of run runID from the pipeline settings.
func NewLayout(cfg *config.PipelineConfig, runID string) (*Layout, error) {
	input, err := storage.ParseLocation(cfg.InputBase)
	if err != nil {
		return nil, fmt.Errorf("invalid input base: %w", err)
	}
	output, err := storage.ParseLocation(cfg.OutputBase)
	if err != nil {
		return nil, fmt.Errorf("invalid output base: %w", err)
	}

	l := &Layout{
		RunID:       runID,
		Mode:        cfg.PublishMode,
		SongData:    input.Join(cfg.SongDataPath),
		LogData:     input.Join(cfg.LogDataPath),
		StagingRoot: output.Join(cfg.StagingDir, runID),
		tables:      make(map[string]TableLocation, len(TableNames)),
	}
	suffixes := cfg.Tables.TableNames()
	for _, name := range TableNames {
		live := output.Join(suffixes[name])
		target := live
		if cfg.PublishMode != config.PublishModeDirect {
			target = l.StagingRoot.Join(suffixes[name])
		}
		l.tables[name] = TableLocation{Name: name, Target: target, Live: live}
	}
	return l, nil
}

// Table returns the locations of the named table.
func (l *Layout) Table(name string) TableLocation {
	return l.tables[name]
}
