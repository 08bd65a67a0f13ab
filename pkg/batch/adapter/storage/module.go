package storage

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the StorageConnectionResolver. Backends contribute their
// providers through the storage_providers group; see the local, s3 and gcs packages.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewConnectionResolver,
		fx.As(new(StorageConnectionResolver)),
	)),
	fx.Invoke(func(lc fx.Lifecycle, resolver StorageConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return resolver.CloseAll()
			},
		})
	}),
)
