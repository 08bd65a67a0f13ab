package step

import (
	"time"

	"github.com/tigerroll/songplays/internal/domain/model"
	"github.com/tigerroll/songplays/internal/transform"
	"github.com/tigerroll/songplays/pkg/batch/component/step/writer"
)

func songPartition(r model.SongRow) []writer.PartitionValue {
	return []writer.PartitionValue{writer.Int("year", int(r.Year)), writer.String("artist_id", r.ArtistID)}
}

func timePartition(r model.TimeRow) []writer.PartitionValue {
	return []writer.PartitionValue{writer.Int("year", int(r.Year)), writer.Int("month", int(r.Month))}
}

func songplayPartition(zone *time.Location) writer.PartitionFunc[model.SongplayRow] {
	return func(r model.SongplayRow) []writer.PartitionValue {
		year, month := transform.YearMonth(r.StartTime, zone)
		return []writer.PartitionValue{writer.Int("year", year), writer.Int("month", month)}
	}
}
