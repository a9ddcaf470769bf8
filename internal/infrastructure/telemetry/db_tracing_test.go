package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type clientRow struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PharmacyID  uuid.UUID       `gorm:"type:uuid"`
	Balance     decimal.Decimal `gorm:"type:decimal(12,2)"`
	CreditLimit decimal.Decimal `gorm:"type:decimal(12,2)"`
	Currency    string
}

func (clientRow) TableName() string { return "clients" }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&clientRow{}))
	return db
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())
	assert.NoError(t, plugin.RegisterOtelGorm(db))
}

func TestDBTracingPlugin_RecordsSpans(t *testing.T) {
	recorder := withRecorder(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.SlowQueryThresh = time.Nanosecond
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	ctx, span := StartServiceSpan(context.Background(), "test", "query")
	var rows []clientRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	span.End()

	var sawDB bool
	for _, s := range recorder.Ended() {
		if s.Name() == "test.query" {
			continue
		}
		sawDB = true
	}
	assert.True(t, sawDB, "otelgorm should emit a span for the query")
}

func TestGormReceivablesProvider(t *testing.T) {
	db := setupTestDB(t)
	pharmacy := uuid.New()
	other := uuid.New()

	rows := []clientRow{
		{ID: uuid.New(), PharmacyID: pharmacy, Balance: decimal.NewFromInt(100), CreditLimit: decimal.NewFromInt(500), Currency: "ARS"},
		{ID: uuid.New(), PharmacyID: pharmacy, Balance: decimal.NewFromInt(700), CreditLimit: decimal.NewFromInt(500), Currency: "ARS"},
		{ID: uuid.New(), PharmacyID: pharmacy, Balance: decimal.NewFromInt(-50), CreditLimit: decimal.Zero, Currency: "ARS"},
		{ID: uuid.New(), PharmacyID: other, Balance: decimal.NewFromInt(10), CreditLimit: decimal.NewFromInt(10), Currency: "USD"},
	}
	require.NoError(t, db.Create(&rows).Error)

	p := NewGormReceivablesProvider(db)
	ctx := context.Background()

	ids, err := p.PharmacyIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{pharmacy, other}, ids)

	debt, err := p.OutstandingDebt(ctx, pharmacy)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(800).Equal(debt["ARS"]))

	over, err := p.ClientsOverLimit(ctx, pharmacy)
	require.NoError(t, err)
	assert.Equal(t, int64(1), over)
}
