package sqlstore

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/uptrace/bun"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations for the dialect of db.
func Migrate(_ context.Context, db *bun.DB) error {
	dir := "migrations/sqlite"
	if isPostgres(db) {
		dir = "migrations/postgres"
	}

	sourceDriver, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	var (
		dbDriver database.Driver
		name     string
	)
	if isPostgres(db) {
		name = "pgx5"
		dbDriver, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	} else {
		name = "sqlite"
		dbDriver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, name, dbDriver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
