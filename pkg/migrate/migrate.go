// Package migrate runs embedded SQL migrations (based on golang-migrate).
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator applies migrations from an embedded filesystem.
type Migrator struct {
	db          *sql.DB
	logger      *zap.Logger
	serviceName string
}

// NewMigrator creates a migrator. A nil logger is replaced with a no-op one.
func NewMigrator(db *sql.DB, serviceName string, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{
		db:          db,
		logger:      logger,
		serviceName: serviceName,
	}
}

// newInstance builds a migrate instance over the embedded source and the
// postgres driver.
func (m *Migrator) newInstance(migrationsFS embed.FS, migrationsPath string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(m.db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

// run builds an instance, applies op against it, and logs the resulting
// schema version. ErrNoChange counts as success.
func (m *Migrator) run(migrationsFS embed.FS, migrationsPath, op string, apply func(*migrate.Migrate) error) error {
	migrator, err := m.newInstance(migrationsFS, migrationsPath)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := apply(migrator); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("schema already up to date",
				zap.String("service", m.serviceName), zap.String("op", op))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	m.logger.Info("schema migration applied",
		zap.String("service", m.serviceName),
		zap.String("op", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}

// AutoMigrate applies all pending migrations.
// migrationsPath is the directory inside migrationsFS, e.g. ".".
func (m *Migrator) AutoMigrate(migrationsFS embed.FS, migrationsPath string) error {
	return m.run(migrationsFS, migrationsPath, "migrate up", (*migrate.Migrate).Up)
}

// Rollback reverts the most recent migration.
func (m *Migrator) Rollback(migrationsFS embed.FS, migrationsPath string) error {
	return m.run(migrationsFS, migrationsPath, "rollback one step", func(mg *migrate.Migrate) error {
		return mg.Steps(-1)
	})
}

// MigrateToVersion migrates up or down to the given schema version.
func (m *Migrator) MigrateToVersion(migrationsFS embed.FS, migrationsPath string, version uint) error {
	return m.run(migrationsFS, migrationsPath, fmt.Sprintf("migrate to version %d", version), func(mg *migrate.Migrate) error {
		return mg.Migrate(version)
	})
}

// GetVersion reports the current schema version and whether it is dirty.
// A database with no applied migrations reports version 0.
func (m *Migrator) GetVersion(migrationsFS embed.FS, migrationsPath string) (uint, bool, error) {
	migrator, err := m.newInstance(migrationsFS, migrationsPath)
	if err != nil {
		return 0, false, err
	}
	defer migrator.Close()

	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, err
	}

	return version, dirty, nil
}
