package sql

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/tigerroll/songplays/pkg/batch/adapter/database"
	"github.com/tigerroll/songplays/pkg/batch/adapter/database/migration"
)

//go:embed resource
var migrationFS embed.FS

// MigrationsFS returns the schema migrations of the run metadata tables, one directory per
// database type.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationFS, "resource")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations are missing: %v", err))
	}
	return sub
}

// Migrate creates or upgrades the run metadata schema on the named connection.
func Migrate(ctx context.Context, resolver database.DBConnectionResolver, dbName string) error {
	conn, err := resolver.ResolveDBConnection(ctx, dbName)
	if err != nil {
		return fmt.Errorf("failed to resolve DB connection '%s': %w", dbName, err)
	}
	return migration.NewMigrator(conn).Up(MigrationsFS(), conn.Type(), migration.DefaultMigrationsTable)
}
