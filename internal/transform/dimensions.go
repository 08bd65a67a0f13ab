// Package transform derives the star schema tables from the input records.
// Every function is pure; ordering of the output follows the input unless stated otherwise.
package transform

import (
	"time"

	"github.com/tigerroll/songplays/internal/domain/entity"
	"github.com/tigerroll/songplays/internal/domain/model"
)

// SongsTable projects one songs row per catalog record.
func SongsTable(records []entity.SongRecord) []model.SongRow {
	rows := make([]model.SongRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, model.SongRow{
			SongID:   r.SongID,
			Title:    r.Title,
			ArtistID: r.ArtistID,
			Year:     int32(r.Year),
			Duration: r.Duration,
		})
	}
	return rows
}

// ArtistsTable projects one artists row per catalog record. With dedupe set,
// only the first row seen for each artist_id is kept.
func ArtistsTable(records []entity.SongRecord, dedupe bool) []model.ArtistRow {
	rows := make([]model.ArtistRow, 0, len(records))
	seen := make(map[string]struct{})
	for _, r := range records {
		if dedupe {
			if _, ok := seen[r.ArtistID]; ok {
				continue
			}
			seen[r.ArtistID] = struct{}{}
		}
		rows = append(rows, model.ArtistRow{
			ArtistID:        r.ArtistID,
			ArtistName:      r.ArtistName,
			ArtistLocation:  r.ArtistLocation,
			ArtistLatitude:  r.ArtistLatitude,
			ArtistLongitude: r.ArtistLongitude,
		})
	}
	return rows
}

// FilterSongPlays keeps the NextSong events.
func FilterSongPlays(events []entity.EventRecord) []entity.EventRecord {
	plays := make([]entity.EventRecord, 0, len(events))
	for _, e := range events {
		if e.IsSongPlay() {
			plays = append(plays, e)
		}
	}
	return plays
}

// UsersTable projects one users row per play. With dedupe set, each user_id
// keeps the row of its latest event by ts; on equal ts the later event wins.
// Deduplicated rows are ordered by first appearance of the user.
func UsersTable(plays []entity.EventRecord, dedupe bool) []model.UserRow {
	if !dedupe {
		rows := make([]model.UserRow, 0, len(plays))
		for _, e := range plays {
			rows = append(rows, userRow(e))
		}
		return rows
	}

	type latest struct {
		index int
		ts    int64
	}
	byUser := make(map[string]latest)
	var order []string
	for i, e := range plays {
		id := e.UserID.String()
		cur, ok := byUser[id]
		if !ok {
			order = append(order, id)
		}
		if !ok || e.Ts >= cur.ts {
			byUser[id] = latest{index: i, ts: e.Ts}
		}
	}
	rows := make([]model.UserRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, userRow(plays[byUser[id].index]))
	}
	return rows
}

func userRow(e entity.EventRecord) model.UserRow {
	return model.UserRow{
		UserID:    e.UserID.String(),
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Gender:    e.Gender,
		Level:     e.Level,
	}
}

// StartTime converts an event timestamp in milliseconds to a time in loc.
// The sub-second part is dropped.
func StartTime(ts int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(ts/1000, 0).In(loc)
}

// TimeTable derives one time row per play, in play order.
func TimeTable(plays []entity.EventRecord, loc *time.Location) []model.TimeRow {
	rows := make([]model.TimeRow, 0, len(plays))
	for _, e := range plays {
		rows = append(rows, TimeRowOf(StartTime(e.Ts, loc)))
	}
	return rows
}

// TimeRowOf breaks t into the time dimension columns. Week is the ISO week
// and weekday runs from 1 (Monday) to 7 (Sunday).
func TimeRowOf(t time.Time) model.TimeRow {
	_, week := t.ISOWeek()
	weekday := int32(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return model.TimeRow{
		StartTime: t.UnixMilli(),
		Hour:      int32(t.Hour()),
		Day:       int32(t.YearDay()),
		Week:      int32(week),
		Month:     int32(t.Month()),
		Year:      int32(t.Year()),
		Weekday:   weekday,
	}
}
