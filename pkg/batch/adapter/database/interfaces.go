package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/songplays/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/songplays/pkg/batch/core/adapter"
)

// DBExecutor defines the read and write operations the run metadata repository needs.
type DBExecutor interface {
	// ExecuteUpdate performs a CREATE or UPDATE of model. For UPDATE, query is added to the
	// primary key condition, which is how optimistic locking on a version column is expressed.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert inserts model or updates updateColumns when conflictColumns collide.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)

	// ExecuteQuery loads the rows matching query into target.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error

	// ExecuteQueryAdvanced executes a read operation with optional sorting and limiting.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()
	DBExecutor

	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBProvider is responsible for providing database connections of one type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g. "sqlite", "postgres").
	Type() string
}

// DBConnectionResolver resolves a named database connection through the provider of its type.
type DBConnectionResolver interface {
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
	// CloseAll closes the connections of every provider.
	CloseAll() error
}

// DBProviderGroup is an Fx tag used to group all DBProvider implementations.
const DBProviderGroup = `group:"db_providers"`
