// Package model holds the rows of the five output tables.
// Each struct carries parquet tags for xitongsys/parquet-go schema reflection.
package model

// SongRow is a row of the songs dimension. The year and artist_id columns are
// kept in the files as well as in the partition path.
type SongRow struct {
	SongID   string  `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Title    string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistID string  `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year     int32   `parquet:"name=year, type=INT32"`
	Duration float64 `parquet:"name=duration, type=DOUBLE"`
}

// ArtistRow is a row of the artists dimension.
type ArtistRow struct {
	ArtistID        string   `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistName      string   `parquet:"name=artist_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistLocation  string   `parquet:"name=artist_location, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistLatitude  *float64 `parquet:"name=artist_latitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	ArtistLongitude *float64 `parquet:"name=artist_longitude, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// UserRow is a row of the users dimension.
type UserRow struct {
	UserID    string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstName string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName  string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Gender    string `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level     string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// TimeRow is a row of the time dimension.
type TimeRow struct {
	// StartTime is milliseconds since the epoch, truncated to the second.
	StartTime int64 `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Hour      int32 `parquet:"name=hour, type=INT32"`
	Day       int32 `parquet:"name=day, type=INT32"`
	Week      int32 `parquet:"name=week, type=INT32"`
	Month     int32 `parquet:"name=month, type=INT32"`
	Year      int32 `parquet:"name=year, type=INT32"`
	Weekday   int32 `parquet:"name=weekday, type=INT32"`
}

// SongplayRow is a row of the songplays fact table. Year and month are not
// columns; they only appear in the partition path.
type SongplayRow struct {
	SongplayID int64  `parquet:"name=songplay_id, type=INT64"`
	StartTime  int64  `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	UserID     string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level      string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
	SongID     string `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistID   string `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SessionID  int64  `parquet:"name=session_id, type=INT64"`
	Location   string `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserAgent  string `parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8"`
}
