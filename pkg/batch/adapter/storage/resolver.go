package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// ConnectionResolver implements StorageConnectionResolver over the registered providers.
// The connection serving a Location is named after its storage type, so
// "s3a://bucket/x" is served by the connection configured at adapter.storage.s3.
type ConnectionResolver struct {
	providers map[string]StorageProvider
}

// ResolverParams defines the dependencies for NewConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
}

// NewConnectionResolver creates a resolver from the grouped providers.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	return NewConnectionResolverFromProviders(p.Providers...)
}

// NewConnectionResolverFromProviders creates a resolver from explicit providers.
func NewConnectionResolverFromProviders(providers ...StorageProvider) *ConnectionResolver {
	m := make(map[string]StorageProvider, len(providers))
	for _, provider := range providers {
		m[provider.Type()] = provider
	}
	return &ConnectionResolver{providers: m}
}

// ResolveStorageConnection returns the connection for loc's storage type.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, loc Location) (StorageConnection, error) {
	provider, ok := r.providers[loc.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider registered for type '%s' (location '%s')", loc.Type, loc)
	}
	conn, err := provider.GetConnection(loc.Type)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Resolved %s storage connection for '%s'.", loc.Type, loc)
	return conn, nil
}

// CloseAll closes the connections of every provider.
func (r *ConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, provider := range r.providers {
		if err := provider.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ StorageConnectionResolver = (*ConnectionResolver)(nil)
