package gorm

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/songplays/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/songplays/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/songplays/pkg/batch/core/config"
)

// GormDBConnectionResolver is the GORM implementation of database.DBConnectionResolver.
// A connection name is looked up in adapter.database and routed to the provider of its type.
type GormDBConnectionResolver struct {
	dbProviders map[string]database.DBProvider
	cfg         *config.Config
}

// GormDBConnectionResolverParams defines the dependencies of NewGormDBConnectionResolver.
type GormDBConnectionResolverParams struct {
	fx.In
	DBProviders []database.DBProvider `group:"db_providers"`
	Cfg         *config.Config
}

// NewGormDBConnectionResolver creates a new GormDBConnectionResolver.
func NewGormDBConnectionResolver(p GormDBConnectionResolverParams) *GormDBConnectionResolver {
	providerMap := make(map[string]database.DBProvider)
	for _, provider := range p.DBProviders {
		providerMap[provider.Type()] = provider
	}
	return &GormDBConnectionResolver{
		dbProviders: providerMap,
		cfg:         p.Cfg,
	}
}

// ResolveDBConnection implements database.DBConnectionResolver.
func (r *GormDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	rawConfig, ok := r.cfg.AdapterConfig("database", name)
	if !ok {
		return nil, fmt.Errorf("database configuration '%s' not found in adapter.database configs", name)
	}
	dbConfig, err := dbconfig.Decode(rawConfig)
	if err != nil {
		return nil, fmt.Errorf("database configuration '%s': %w", name, err)
	}
	provider, ok := r.dbProviders[dbConfig.Type]
	if !ok {
		return nil, fmt.Errorf("no DBProvider registered for database type '%s' (connection '%s')", dbConfig.Type, name)
	}
	return provider.GetConnection(name)
}

// CloseAll implements database.DBConnectionResolver.
func (r *GormDBConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, provider := range r.dbProviders {
		if err := provider.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ database.DBConnectionResolver = (*GormDBConnectionResolver)(nil)
