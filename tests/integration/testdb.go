// Package integration runs the billing stack against PostgreSQL started by testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/pharmabill/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

var (
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB is a migrated database for one test
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	DSN   string
	t     *testing.T
}

func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// NewTestDB connects to the package's PostgreSQL container, starting and
// migrating it on first use, and empties the billing tables.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipIfShort(t)

	dsn := sharedDSN(t)
	db, sqlDB := connectToDatabase(t, dsn)
	tdb := &TestDB{DB: db, SqlDB: sqlDB, DSN: dsn, t: t}
	tdb.CleanTables()

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return tdb
}

func sharedDSN(t *testing.T) string {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		return sharedContainerDSN
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase("pharmabill_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	_, sqlDB := connectToDatabase(t, dsn)
	defer sqlDB.Close()
	runMigrations(t, sqlDB)

	sharedContainer = container
	sharedContainerDSN = dsn
	return dsn
}

// CleanTables truncates every billing table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	err := tdb.DB.Exec("TRUNCATE TABLE transactions, clients, transaction_sequences CASCADE").Error
	require.NoError(tdb.t, err, "Failed to truncate billing tables")
}

// CountRows returns the number of rows in table matching where
func (tdb *TestDB) CountRows(table, where string, args ...any) int64 {
	tdb.t.Helper()
	var n int64
	q := tdb.DB.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(tdb.t, q.Count(&n).Error)
	return n
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, sqlDB
}

func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	path := findMigrationsPath()
	require.NotEmpty(t, path, "Could not find migrations directory")

	m, err := migration.New(sqlDB, path, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")
}

// findMigrationsPath walks up from this file to the repository's migrations directory
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	dir := filepath.Dir(filename)
	for range 5 {
		candidate := filepath.Join(dir, migration.DefaultMigrationsPath)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return ""
}

// terminateSharedContainer stops the package's container, if one was started
func terminateSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()
	if sharedContainer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sharedContainer.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
	}
	sharedContainer = nil
}
