package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"github.com/flexprice/recharge-sync/internal/config"
	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/postgres"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(args []string) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	migrateURL, err := cfg.Postgres.GetMigrateURL()
	if err != nil {
		return err
	}

	log.Infow("connecting for migrations",
		"host", cfg.Postgres.Host,
		"dbname", cfg.Postgres.DBName)

	m, err := postgres.NewMigratorFromURL(migrateURL, log)
	if err != nil {
		return fmt.Errorf("failed to initialise migrations: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Errorw("failed to close migration resources", "source_error", sourceErr, "database_error", dbErr)
		}
	}()

	switch args[0] {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Infow("no change: database is up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Infow("migrations applied")

	case "down":
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("failed to roll back last migration: %w", err)
		}
		log.Infow("last migration rolled back")

	case "goto":
		if len(args) < 2 {
			return errors.New("goto requires a version")
		}
		version, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate to version %d: %w", version, err)
		}
		log.Infow("migrated", "version", version)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Infow("no migrations applied yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		log.Infow("current migration version", "version", version, "dirty", dirty)

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	return nil
}

func printUsage() {
	fmt.Println("Usage: migrate <command>")
	fmt.Println("Commands:")
	fmt.Println("  up             apply all pending migrations")
	fmt.Println("  down           roll back the last migration")
	fmt.Println("  goto <version> migrate to a specific version")
	fmt.Println("  version        print the current migration version")
}
