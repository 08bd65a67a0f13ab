package transform

import (
	"sort"
	"time"

	"github.com/tigerroll/songplays/internal/domain/entity"
	"github.com/tigerroll/songplays/internal/domain/model"
)

type catalogKey struct {
	title    string
	duration float64
}

type match struct {
	event entity.EventRecord
	seq   int
	song  model.SongRow
	start time.Time
}

// JoinResult is the outcome of ResolveSongplays.
type JoinResult struct {
	Rows []model.SongplayRow
	// Unmatched counts plays that matched no catalog entry.
	Unmatched int
}

// ResolveSongplays joins plays to songs on title and duration (exact
// equality) and numbers the resulting rows from 1. A play matching several
// songs yields one row per match. Rows are ordered by start_time, user_id,
// session_id, song_id, artist_id, ts and play position, so the same input
// always receives the same songplay_id assignment.
func ResolveSongplays(plays []entity.EventRecord, songs []model.SongRow, loc *time.Location) JoinResult {
	catalog := make(map[catalogKey][]model.SongRow, len(songs))
	for _, s := range songs {
		k := catalogKey{title: s.Title, duration: s.Duration}
		catalog[k] = append(catalog[k], s)
	}

	var matches []match
	unmatched := 0
	for i, e := range plays {
		if e.Length == nil {
			unmatched++
			continue
		}
		candidates := catalog[catalogKey{title: e.Song, duration: *e.Length}]
		if len(candidates) == 0 {
			unmatched++
			continue
		}
		start := StartTime(e.Ts, loc)
		for _, s := range candidates {
			matches = append(matches, match{event: e, seq: i, song: s, start: start})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return lessMatch(matches[i], matches[j])
	})

	rows := make([]model.SongplayRow, 0, len(matches))
	for i, m := range matches {
		rows = append(rows, model.SongplayRow{
			SongplayID: int64(i + 1),
			StartTime:  m.start.UnixMilli(),
			UserID:     m.event.UserID.String(),
			Level:      m.event.Level,
			SongID:     m.song.SongID,
			ArtistID:   m.song.ArtistID,
			SessionID:  m.event.SessionID,
			Location:   m.event.Location,
			UserAgent:  m.event.UserAgent,
		})
	}
	return JoinResult{Rows: rows, Unmatched: unmatched}
}

func lessMatch(a, b match) bool {
	if !a.start.Equal(b.start) {
		return a.start.Before(b.start)
	}
	if a.event.UserID != b.event.UserID {
		return a.event.UserID < b.event.UserID
	}
	if a.event.SessionID != b.event.SessionID {
		return a.event.SessionID < b.event.SessionID
	}
	if a.song.SongID != b.song.SongID {
		return a.song.SongID < b.song.SongID
	}
	if a.song.ArtistID != b.song.ArtistID {
		return a.song.ArtistID < b.song.ArtistID
	}
	if a.event.Ts != b.event.Ts {
		return a.event.Ts < b.event.Ts
	}
	return a.seq < b.seq
}

// YearMonth returns the partition values of a start time in milliseconds.
func YearMonth(startTimeMillis int64, loc *time.Location) (int, int) {
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(startTimeMillis).In(loc)
	return t.Year(), int(t.Month())
}
