package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// DefaultMigrationsPath is where the billing schema migrations live
const DefaultMigrationsPath = "migrations"

// Migrator applies the billing schema with golang-migrate
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Status is the schema state reported by Migrator.Status
type Status struct {
	Version   uint `json:"version"`
	Dirty     bool `json:"dirty"`
	Available int  `json:"available"`
}

// New creates a Migrator on an open postgres connection
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL(migrationsPath), "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return newMigrator(m, logger), nil
}

// NewFromURL creates a Migrator from a postgres:// URL
func NewFromURL(databaseURL, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	m, err := migrate.New(sourceURL(migrationsPath), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return newMigrator(m, logger), nil
}

func newMigrator(m *migrate.Migrate, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	m.Log = &migrateLogger{logger: logger.Sugar()}
	return &Migrator{migrate: m, logger: logger}
}

func sourceURL(path string) string {
	if path == "" {
		path = DefaultMigrationsPath
	}
	return "file://" + path
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	m.logger.Info("Applying billing schema migrations")
	if err := m.run("up", m.migrate.Up); err != nil {
		return err
	}
	return m.logVersion("Billing schema is up to date")
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	m.logger.Warn("Rolling back all billing schema migrations")
	return m.run("down", m.migrate.Down)
}

// Steps applies n migrations; negative n rolls back
func (m *Migrator) Steps(n int) error {
	if n == 0 {
		return nil
	}
	m.logger.Info("Running migration steps", zap.Int("steps", n))
	if err := m.run("steps", func() error { return m.migrate.Steps(n) }); err != nil {
		return err
	}
	return m.logVersion("Migration steps completed")
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	m.logger.Info("Migrating to version", zap.Uint("target_version", version))
	if err := m.run(fmt.Sprintf("goto %d", version), func() error { return m.migrate.Migrate(version) }); err != nil {
		return err
	}
	return m.logVersion("Migration to version completed")
}

// run treats ErrNoChange as success
func (m *Migrator) run(op string, fn func() error) error {
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply", zap.String("operation", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", op, err)
	}
	return nil
}

func (m *Migrator) logVersion(msg string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Version returns the applied version; an empty schema is version 0
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Status reports the applied version and how many migrations exist in dir
func (m *Migrator) Status(dir string) (*Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, err
	}
	available, err := ListMigrations(dir)
	if err != nil {
		return nil, err
	}
	return &Status{Version: version, Dirty: dirty, Available: len(available)}, nil
}

// Force records version as applied without running anything. It is the
// way out of a dirty schema after a failed migration was fixed by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

// migrateLogger adapts zap to migrate.Logger
type migrateLogger struct {
	logger  *zap.SugaredLogger
	verbose bool
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Infof(format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
