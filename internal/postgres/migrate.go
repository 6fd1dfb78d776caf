package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrator builds a golang-migrate instance over the embedded migrations.
// The migrator holds a single connection taken from db; closing it returns
// that connection and leaves the pool open.
func NewMigrator(ctx context.Context, db *sql.DB, logger *logger.Logger) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load embedded migrations").
			Mark(ierr.ErrSystem)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to acquire migration connection").
			Mark(ierr.ErrDatabase)
	}

	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		_ = conn.Close()
		return nil, ierr.WithError(err).
			WithHint("Failed to initialise migration driver").
			Mark(ierr.ErrDatabase)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = driver.Close()
		return nil, ierr.WithError(err).
			WithHint("Failed to initialise migrations").
			Mark(ierr.ErrDatabase)
	}
	m.Log = logger.GetMigrateLogger(false)

	return m, nil
}

// Migrate applies every pending up migration
func Migrate(ctx context.Context, db *sql.DB, logger *logger.Logger) error {
	m, err := NewMigrator(ctx, db, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ierr.WithError(err).
			WithHint("Failed to apply migrations").
			Mark(ierr.ErrDatabase)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return ierr.WithError(err).
			WithHint("Failed to read migration version").
			Mark(ierr.ErrDatabase)
	}

	logger.Infow("database migrations applied", "version", version, "dirty", dirty)
	return nil
}

// NewMigratorFromURL builds a golang-migrate instance that opens its own
// connection to databaseURL (postgres://...)
func NewMigratorFromURL(databaseURL string, logger *logger.Logger) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load embedded migrations").
			Mark(ierr.ErrSystem)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect for migrations").
			Mark(ierr.ErrDatabase)
	}
	m.Log = logger.GetMigrateLogger(true)

	return m, nil
}
