// Package entity holds the raw input records of the song catalog and the event log.
package entity

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// SongRecord is one catalog entry read from song_data.
type SongRecord struct {
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	ArtistID        string   `json:"artist_id"`
	ArtistName      string   `json:"artist_name"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	Year            int      `json:"year"`
	Duration        float64  `json:"duration"`
	NumSongs        int      `json:"num_songs"`
}

// EventRecord is one user action read from log_data. Fields that are null on
// non-play actions (song, artist, length) decode to their zero value or nil.
type EventRecord struct {
	Artist        string     `json:"artist"`
	Auth          string     `json:"auth"`
	FirstName     string     `json:"firstName"`
	Gender        string     `json:"gender"`
	ItemInSession int        `json:"itemInSession"`
	LastName      string     `json:"lastName"`
	Length        *float64   `json:"length"`
	Level         string     `json:"level"`
	Location      string     `json:"location"`
	Method        string     `json:"method"`
	Page          string     `json:"page"`
	Registration  *float64   `json:"registration"`
	SessionID     int64      `json:"sessionId"`
	Song          string     `json:"song"`
	Status        int        `json:"status"`
	Ts            int64      `json:"ts"`
	UserAgent     string     `json:"userAgent"`
	UserID        FlexString `json:"userId"`
}

// PageNextSong is the page value of a song play.
const PageNextSong = "NextSong"

// IsSongPlay reports whether the event is a song play.
func (e EventRecord) IsSongPlay() bool {
	return e.Page == PageNextSong
}

// FlexString decodes a JSON string or number into a string. The event log
// writes userId as "39" in some files and 39 in others.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("userId must be a string or a number, got %s", string(data))
	}
	// Integral floats such as 39.0 are written as "39".
	if f, err := strconv.ParseFloat(num.String(), 64); err == nil && f == float64(int64(f)) {
		*s = FlexString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*s = FlexString(num.String())
	return nil
}

// String returns the decoded value.
func (s FlexString) String() string {
	return string(s)
}
