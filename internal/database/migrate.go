package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded schema for the dialect. It uses its own
// connection because closing a migrate instance closes the handle it was given.
func RunMigrations(dialect Dialect, dsn string) error {
	var (
		migrateDB *sql.DB
		driver    migratedb.Driver
		err       error
	)

	switch dialect {
	case DialectPostgres:
		migrateDB, err = sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("open migration database: %w", err)
		}
		driver, err = postgres.WithInstance(migrateDB, &postgres.Config{})
	case DialectSQLite:
		migrateDB, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return fmt.Errorf("open migration database: %w", err)
		}
		driver, err = sqlite.WithInstance(migrateDB, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		migrateDB.Close()
		return fmt.Errorf("create %s driver: %w", dialect, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		migrateDB.Close()
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		migrateDB.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
