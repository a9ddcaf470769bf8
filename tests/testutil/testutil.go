// Package testutil holds helpers shared by the package and integration tests:
// sqlmock backed gorm connections, fixed ids, money and phone fixtures.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a mock database that is closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err, "Failed to open GORM connection")

	t.Cleanup(func() {
		_ = mockDB.Close()
	})
	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewTestUUID returns a UUID derived from seed, stable across runs.
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
}

// TestPharmacyID is the pharmacy most tests are scoped to.
func TestPharmacyID() uuid.UUID {
	return NewTestUUID("pharmacy")
}

// TestUserID is the staff member recorded as author.
func TestUserID() uuid.UUID {
	return NewTestUUID("user")
}

// ARS builds an ARS amount from a decimal string, failing the test on bad input.
func ARS(t *testing.T, amount string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyFromString(amount, valueobject.ARS)
	require.NoError(t, err)
	return m
}

// Phone builds a normalized phone number.
func Phone(t *testing.T, raw string) valueobject.PhoneNumber {
	t.Helper()
	p, err := valueobject.NewPhoneNumber(raw)
	require.NoError(t, err)
	return p
}

// ContextWithTimeout returns a context cancelled when the test ends.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// AssertEventually polls condition until it holds or timeout elapses.
func AssertEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) bool {
	t.Helper()
	return assert.Eventually(t, condition, timeout, interval, msgAndArgs...)
}
