package s3

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/songplays/pkg/batch/adapter/storage"
)

// Module is the Fx module for the S3 storage adapter.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewS3Provider,
		fx.ResultTags(storageAdapter.ProviderGroup),
	)),
)
