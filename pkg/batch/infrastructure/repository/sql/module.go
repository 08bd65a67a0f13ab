package sql

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/songplays/pkg/batch/adapter/database"
	config "github.com/tigerroll/songplays/pkg/batch/core/config"
	repository "github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
)

// JobRepositoryParams defines the dependencies required to create a NewJobRepository.
type JobRepositoryParams struct {
	fx.In
	DBResolver database.DBConnectionResolver
	Cfg        *config.Config
}

// NewJobRepository migrates the metadata schema and returns the SQL JobRepository.
// The connection name comes from infrastructure.job_repository_db_ref, default "metadata".
func NewJobRepository(p JobRepositoryParams) (repository.JobRepository, error) {
	dbName := p.Cfg.Songplays.Infrastructure.JobRepositoryDBRef
	if dbName == "" {
		dbName = "metadata"
	}
	if err := Migrate(context.Background(), p.DBResolver, dbName); err != nil {
		return nil, err
	}
	return NewSQLJobRepository(p.DBResolver, dbName), nil
}

// Module provides the SQL JobRepository. It needs a database.DBConnectionResolver
// and at least one DB provider in the graph.
var Module = fx.Options(
	fx.Provide(NewJobRepository),
)
