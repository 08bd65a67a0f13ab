package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/songplays/pkg/batch/adapter/database"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

func registerResolverLifecycle(lc fx.Lifecycle, resolver database.DBConnectionResolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := resolver.CloseAll(); err != nil {
				logger.Warnf("Failed to close database connections: %v", err)
			}
			return nil
		},
	})
}

// Module provides the GORM connection resolver. Concrete DB providers are supplied by
// the sqlite, postgres and mysql sub-packages.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGormDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
	)),
	fx.Invoke(registerResolverLifecycle),
)
