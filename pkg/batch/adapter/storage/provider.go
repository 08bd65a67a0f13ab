package storage

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/songplays/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/songplays/pkg/batch/core/config"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// ProviderGroup is the Fx tag used to collect all StorageProvider implementations.
const ProviderGroup = `group:"storage_providers"`

// ConnectionFactory builds a connection of one storage type from its configuration.
type ConnectionFactory func(cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// BaseProvider caches connections created by a ConnectionFactory. Connection
// settings come from adapter.storage.<name> in the application configuration;
// a missing entry yields the backend defaults.
type BaseProvider struct {
	cfg         *coreConfig.Config
	storageType string
	factory     ConnectionFactory
	connections map[string]StorageConnection
	mu          sync.RWMutex
}

// NewBaseProvider creates a BaseProvider for storageType.
func NewBaseProvider(cfg *coreConfig.Config, storageType string, factory ConnectionFactory) *BaseProvider {
	return &BaseProvider{
		cfg:         cfg,
		storageType: storageType,
		factory:     factory,
		connections: make(map[string]StorageConnection),
	}
}

// Type returns the storage type.
func (p *BaseProvider) Type() string {
	return p.storageType
}

// GetConnection retrieves an existing connection or establishes a new one.
func (p *BaseProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check (DCL)
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	raw, _ := p.cfg.AdapterConfig("storage", name)
	storageCfg, err := storageConfig.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("storage connection '%s': %w", name, err)
	}
	if storageCfg.Type == "" {
		storageCfg.Type = p.storageType
	}
	if storageCfg.Type != p.storageType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.storageType, storageCfg.Type)
	}

	conn, err = p.factory(storageCfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage connection '%s': %w", p.storageType, name, err)
	}
	p.connections[name] = conn
	logger.Debugf("Created new %s storage connection '%s'.", p.storageType, name)
	return conn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close storage connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}
