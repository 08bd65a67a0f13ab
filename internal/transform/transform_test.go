package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/songplays/internal/domain/entity"
	"github.com/tigerroll/songplays/internal/domain/model"
)

func f64(v float64) *float64 { return &v }

func play(userID string, ts int64, session int64, song string, length float64) entity.EventRecord {
	return entity.EventRecord{
		Page:      entity.PageNextSong,
		UserID:    entity.FlexString(userID),
		Ts:        ts,
		SessionID: session,
		Song:      song,
		Length:    f64(length),
		Level:     "free",
	}
}

func TestSongsTable_OneRowPerRecord(t *testing.T) {
	records := []entity.SongRecord{
		{SongID: "S1", Title: "A", ArtistID: "A1", Year: 2000, Duration: 1.5},
		{SongID: "S2", Title: "B", ArtistID: "A1", Year: 0, Duration: 2.5},
	}
	rows := SongsTable(records)
	require.Len(t, rows, 2)
	assert.Equal(t, model.SongRow{SongID: "S1", Title: "A", ArtistID: "A1", Year: 2000, Duration: 1.5}, rows[0])
	assert.Equal(t, model.SongRow{SongID: "S2", Title: "B", ArtistID: "A1", Year: 0, Duration: 2.5}, rows[1])
}

func TestArtistsTable(t *testing.T) {
	records := []entity.SongRecord{
		{ArtistID: "A1", ArtistName: "First", ArtistLatitude: f64(1)},
		{ArtistID: "A2", ArtistName: "Other"},
		{ArtistID: "A1", ArtistName: "Second"},
	}

	all := ArtistsTable(records, false)
	assert.Len(t, all, 3)

	deduped := ArtistsTable(records, true)
	require.Len(t, deduped, 2)
	assert.Equal(t, "First", deduped[0].ArtistName)
	assert.Equal(t, 1.0, *deduped[0].ArtistLatitude)
	assert.Equal(t, "A2", deduped[1].ArtistID)
}

func TestFilterSongPlays(t *testing.T) {
	events := []entity.EventRecord{
		{Page: "Home"},
		{Page: "NextSong", Song: "x"},
		{Page: "Logout"},
		{Page: "nextsong"},
		{Page: "NextSong", Song: "y"},
	}
	plays := FilterSongPlays(events)
	require.Len(t, plays, 2)
	assert.Equal(t, "x", plays[0].Song)
	assert.Equal(t, "y", plays[1].Song)
}

func TestUsersTable(t *testing.T) {
	plays := []entity.EventRecord{
		{UserID: "7", FirstName: "A", Level: "free", Ts: 100},
		{UserID: "8", FirstName: "B", Level: "free", Ts: 150},
		{UserID: "7", FirstName: "A", Level: "paid", Ts: 200},
		{UserID: "7", FirstName: "A", Level: "free", Ts: 50},
	}

	assert.Len(t, UsersTable(plays, false), 4)

	deduped := UsersTable(plays, true)
	require.Len(t, deduped, 2)
	assert.Equal(t, model.UserRow{UserID: "7", FirstName: "A", Level: "paid"}, deduped[0])
	assert.Equal(t, "8", deduped[1].UserID)
}

func TestTimeRowOf_ReferenceTimestamp(t *testing.T) {
	row := TimeRowOf(StartTime(1541990258796, time.UTC))
	assert.Equal(t, model.TimeRow{
		StartTime: 1541990258000,
		Hour:      2,
		Day:       316,
		Week:      46,
		Month:     11,
		Year:      2018,
		Weekday:   1,
	}, row)
}

func TestTimeRowOf_SundayIsSeven(t *testing.T) {
	sunday := time.Date(2018, 11, 18, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, int32(7), TimeRowOf(sunday).Weekday)
}

func TestTimeTable_UsesSessionZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	rows := TimeTable([]entity.EventRecord{{Ts: 1541990258796}}, tokyo)
	require.Len(t, rows, 1)
	assert.Equal(t, int32(11), rows[0].Hour)
	assert.Equal(t, int64(1541990258000), rows[0].StartTime)
}

func TestResolveSongplays_EndToEndExample(t *testing.T) {
	songs := SongsTable([]entity.SongRecord{
		{SongID: "S1", Title: "Test", ArtistID: "A1", ArtistName: "Artist", Year: 2000, Duration: 210.0},
	})
	events := []entity.EventRecord{{
		Page: "NextSong", Song: "Test", Length: f64(210.0), UserID: "7", Ts: 1541990258796,
		SessionID: 42, Level: "free", Location: "NY", UserAgent: "X",
		FirstName: "A", LastName: "B", Gender: "F", Artist: "Artist",
	}}

	result := ResolveSongplays(FilterSongPlays(events), songs, time.UTC)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 0, result.Unmatched)
	assert.Equal(t, model.SongplayRow{
		SongplayID: 1,
		StartTime:  1541990258000,
		UserID:     "7",
		Level:      "free",
		SongID:     "S1",
		ArtistID:   "A1",
		SessionID:  42,
		Location:   "NY",
		UserAgent:  "X",
	}, result.Rows[0])

	// start_time agrees with the time dimension.
	assert.Equal(t, TimeTable(events, time.UTC)[0].StartTime, result.Rows[0].StartTime)
}

func TestResolveSongplays_DropsUnmatched(t *testing.T) {
	songs := []model.SongRow{{SongID: "S1", Title: "Test", ArtistID: "A1", Duration: 210.0}}
	plays := []entity.EventRecord{
		play("1", 1000, 1, "Test", 210.00001),
		play("2", 2000, 1, "Other", 210.0),
		{Page: "NextSong", UserID: "3", Song: "Test"},
	}

	result := ResolveSongplays(plays, songs, time.UTC)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 3, result.Unmatched)
}

func TestResolveSongplays_DeterministicIDs(t *testing.T) {
	songs := []model.SongRow{
		{SongID: "S2", Title: "T", ArtistID: "A2", Duration: 100},
		{SongID: "S1", Title: "T", ArtistID: "A1", Duration: 100},
		{SongID: "S3", Title: "U", ArtistID: "A3", Duration: 50},
	}
	plays := []entity.EventRecord{
		play("9", 5000, 3, "U", 50),
		play("2", 1000, 7, "T", 100),
		play("10", 1000, 1, "U", 50),
	}

	first := ResolveSongplays(plays, songs, time.UTC)
	reversed := []entity.EventRecord{plays[2], plays[1], plays[0]}
	second := ResolveSongplays(reversed, []model.SongRow{songs[2], songs[1], songs[0]}, time.UTC)

	require.Len(t, first.Rows, 4)
	assert.Equal(t, first.Rows, second.Rows)

	// ts 1000: user "10" sorts before "2" as strings; user "2" matched two songs.
	assert.Equal(t, "10", first.Rows[0].UserID)
	assert.Equal(t, []string{"S1", "S2"}, []string{first.Rows[1].SongID, first.Rows[2].SongID})
	assert.Equal(t, "9", first.Rows[3].UserID)
	for i, r := range first.Rows {
		assert.Equal(t, int64(i+1), r.SongplayID)
	}
}

func TestResolveSongplays_EmptyIsNotAnError(t *testing.T) {
	result := ResolveSongplays(nil, nil, time.UTC)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
}

func TestYearMonth(t *testing.T) {
	y, m := YearMonth(1541990258000, time.UTC)
	assert.Equal(t, 2018, y)
	assert.Equal(t, 11, m)
}
