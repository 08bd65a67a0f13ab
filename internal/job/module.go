package job

import "go.uber.org/fx"

// Module provides the SongplaysJob.
var Module = fx.Options(
	fx.Provide(NewSongplaysJob),
)
