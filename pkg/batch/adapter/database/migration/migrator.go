// Package migration applies embedded SQL schema migrations with golang-migrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/songplays/pkg/batch/adapter/database"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// DefaultMigrationsTable is the table golang-migrate uses to track applied versions.
const DefaultMigrationsTable = "batch_schema_migrations"

// Migrator applies the migrations found under a directory of an fs.FS.
type Migrator struct {
	dbConn database.DBConnection
	dbType string
}

// NewMigrator creates a Migrator for dbConn.
func NewMigrator(dbConn database.DBConnection) *Migrator {
	return &Migrator{
		dbConn: dbConn,
		dbType: dbConn.Type(),
	}
}

// getDatabaseDriver retrieves a migrate/v4 Driver based on the database type.
func (m *Migrator) getDatabaseDriver(sqlDB *sql.DB, tableName string) (migratedb.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

func (m *Migrator) newMigrate(migrationFS fs.FS, path string, tableName string) (*migrate.Migrate, error) {
	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	dbDriver, err := m.getDatabaseDriver(sqlDB, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mInstance, nil
}

// Up applies every pending migration under path. Already applied schemas are not an error.
// The migrate instance is not closed, since closing it would close the shared *sql.DB.
func (m *Migrator) Up(migrationFS fs.FS, path string, tableName string) error {
	logger.Infof("Executing migration 'up' (DB: %s, Path: %s, Table: %s)", m.dbType, path, tableName)

	mInstance, err := m.newMigrate(migrationFS, path, tableName)
	if err != nil {
		return err
	}
	if err := mInstance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, verr := mInstance.Version()
		if verr == nil {
			logger.Errorf("Migration failed at version %d (dirty: %t)", version, dirty)
		}
		return fmt.Errorf("migration failed (DB: %s, Path: %s): %w", m.dbType, path, err)
	}

	version, _, err := mInstance.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Infof("Migration 'up' completed. Schema version: %d", version)
	return nil
}
