package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// PharmacyAggregateModel carries the columns shared by pharmacy-scoped
// aggregate roots: tenant key, creator and optimistic-lock version.
type PharmacyAggregateModel struct {
	BaseModel
	PharmacyID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy  *uuid.UUID `gorm:"type:uuid"`
	Version    int        `gorm:"not null;default:1"`
}

// FromDomainPharmacyAggregateRoot populates the model from a domain aggregate root
func (m *PharmacyAggregateModel) FromDomainPharmacyAggregateRoot(a shared.PharmacyAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.PharmacyID = a.PharmacyID
	m.CreatedBy = a.CreatedBy
	m.Version = a.Version
}

// ToDomainPharmacyAggregateRoot rebuilds the aggregate root header. The
// result is marked as persisted at the stored version.
func (m *PharmacyAggregateModel) ToDomainPharmacyAggregateRoot() shared.PharmacyAggregateRoot {
	root := shared.PharmacyAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		PharmacyID: m.PharmacyID,
		CreatedBy:  m.CreatedBy,
	}
	root.MarkPersisted()
	return root
}
