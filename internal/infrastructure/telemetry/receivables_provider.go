package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReceivablesProvider reads receivables straight from the clients table.
type GormReceivablesProvider struct {
	db *gorm.DB
}

func NewGormReceivablesProvider(db *gorm.DB) *GormReceivablesProvider {
	return &GormReceivablesProvider{db: db}
}

func (p *GormReceivablesProvider) PharmacyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("clients").
		Distinct("pharmacy_id").
		Pluck("pharmacy_id", &ids).Error
	return ids, err
}

func (p *GormReceivablesProvider) OutstandingDebt(ctx context.Context, pharmacyID uuid.UUID) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Currency string
		Total    decimal.Decimal
	}
	err := p.db.WithContext(ctx).
		Table("clients").
		Select("currency, COALESCE(SUM(balance), 0) AS total").
		Where("pharmacy_id = ? AND balance > 0", pharmacyID).
		Group("currency").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		out[r.Currency] = r.Total
	}
	return out, nil
}

func (p *GormReceivablesProvider) ClientsOverLimit(ctx context.Context, pharmacyID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("clients").
		Where("pharmacy_id = ? AND balance > credit_limit", pharmacyID).
		Count(&count).Error
	return count, err
}
