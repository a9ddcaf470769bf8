package persistence

import (
	"fmt"
	"time"

	"github.com/pharmabill/backend/internal/infrastructure/config"
	applogger "github.com/pharmabill/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

// NewDatabase creates a new database connection with gorm logging disabled
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return open(cfg, logger.Default.LogMode(logger.Silent))
}

// NewDatabaseWithLogger creates a database connection that logs SQL through zap
// at cfg.LogLevel, warning on statements slower than cfg.SlowThreshold.
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, zapLogger *zap.Logger) (*Database, error) {
	gormLogger := applogger.NewGormLogger(zapLogger, applogger.MapGormLogLevel(cfg.LogLevel), cfg.SlowThreshold)
	return open(cfg, gormLogger)
}

func open(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig(gormLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// gormConfig is shared by every connection. TranslateError turns unique
// violations into gorm.ErrDuplicatedKey for the repositories.
func gormConfig(l logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                 l,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Transaction executes a function within a database transaction
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}

// WithPharmacy returns a GORM DB scoped to one pharmacy.
// Panics on the zero id so an unscoped query can never slip through.
func (d *Database) WithPharmacy(pharmacyID string) *gorm.DB {
	if pharmacyID == "" {
		panic("WithPharmacy called with empty pharmacy ID")
	}
	return d.DB.Where("pharmacy_id = ?", pharmacyID)
}
