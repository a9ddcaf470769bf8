package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot adds optimistic-lock versioning and pending events
type BaseAggregateRoot struct {
	BaseEntity
	Version      int
	domainEvents []DomainEvent
	// persistedVersion is the version last read from or written to storage
	persistedVersion int
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// PersistedVersion returns the version the aggregate had when it was last
// loaded or saved. Zero means it was never stored.
func (a *BaseAggregateRoot) PersistedVersion() int {
	return a.persistedVersion
}

// MarkPersisted records the current version as the stored one
func (a *BaseAggregateRoot) MarkPersisted() {
	a.persistedVersion = a.Version
}

// AddDomainEvent queues an event for publication after the aggregate is persisted
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// PharmacyAggregateRoot is an aggregate root scoped to one pharmacy (tenant).
// PharmacyID is fixed at construction.
type PharmacyAggregateRoot struct {
	BaseAggregateRoot
	PharmacyID uuid.UUID
	CreatedBy  *uuid.UUID
}

// NewPharmacyAggregateRoot creates a new pharmacy-scoped aggregate root
func NewPharmacyAggregateRoot(pharmacyID uuid.UUID) PharmacyAggregateRoot {
	return PharmacyAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		PharmacyID:        pharmacyID,
	}
}

// GetPharmacyID returns the tenant key
func (p *PharmacyAggregateRoot) GetPharmacyID() uuid.UUID {
	return p.PharmacyID
}

// SetCreatedBy records the user that created the aggregate
func (p *PharmacyAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	p.CreatedBy = &userID
}
