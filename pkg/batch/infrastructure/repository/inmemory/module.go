package inmemory

import (
	"go.uber.org/fx"

	repository "github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
)

// Module provides InMemoryJobRepository as repository.JobRepository.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewInMemoryJobRepository,
			fx.As(new(repository.JobRepository)),
		),
	),
)
