package client

import (
	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
)

// Aggregate type constant
const AggregateTypeClient = "Client"

// Event type constants
const (
	EventTypeClientCreated            = "ClientCreated"
	EventTypeClientUpdated            = "ClientUpdated"
	EventTypeClientCharged            = "ClientCharged"
	EventTypeClientPaymentRecorded    = "ClientPaymentRecorded"
	EventTypeClientRefundRecorded     = "ClientRefundRecorded"
	EventTypeClientStatusChanged      = "ClientStatusChanged"
	EventTypeClientCreditLimitChanged = "ClientCreditLimitChanged"
)

// ClientCreatedEvent is published when a new client is registered
type ClientCreatedEvent struct {
	shared.BaseDomainEvent
	ClientID    uuid.UUID         `json:"client_id"`
	Phone       string            `json:"phone"`
	DisplayName string            `json:"display_name"`
	CreditLimit valueobject.Money `json:"credit_limit"`
}

func NewClientCreatedEvent(c *Client) *ClientCreatedEvent {
	return &ClientCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientCreated, AggregateTypeClient, c.ID, c.PharmacyID),
		ClientID:        c.ID,
		Phone:           c.Phone.Normalized(),
		DisplayName:     c.DisplayName(),
		CreditLimit:     c.Balance.CreditLimit(),
	}
}

// ClientUpdatedEvent is published when contact data changes
type ClientUpdatedEvent struct {
	shared.BaseDomainEvent
	ClientID    uuid.UUID `json:"client_id"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
}

func NewClientUpdatedEvent(c *Client) *ClientUpdatedEvent {
	return &ClientUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientUpdated, AggregateTypeClient, c.ID, c.PharmacyID),
		ClientID:        c.ID,
		Phone:           c.Phone.Normalized(),
		Email:           c.Email,
		DisplayName:     c.DisplayName(),
	}
}

// ClientChargedEvent is published when debt is added to a client account
type ClientChargedEvent struct {
	shared.BaseDomainEvent
	ClientID        uuid.UUID         `json:"client_id"`
	Amount          valueobject.Money `json:"amount"`
	BalanceBefore   valueobject.Money `json:"balance_before"`
	BalanceAfter    valueobject.Money `json:"balance_after"`
	AvailableCredit valueobject.Money `json:"available_credit"`
	OverLimit       bool              `json:"over_limit"`
	AtCreditLimit   bool              `json:"at_credit_limit"`
}

func NewClientChargedEvent(c *Client, amount valueobject.Money, before ClientBalance, allowOverLimit bool) *ClientChargedEvent {
	return &ClientChargedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientCharged, AggregateTypeClient, c.ID, c.PharmacyID),
		ClientID:        c.ID,
		Amount:          amount,
		BalanceBefore:   before.Current(),
		BalanceAfter:    c.Balance.Current(),
		AvailableCredit: c.Balance.AvailableCredit(),
		OverLimit:       allowOverLimit && c.Balance.IsCreditExceeded(),
		AtCreditLimit:   c.Balance.IsAtCreditLimit(),
	}
}

// ClientPaymentRecordedEvent is published when a payment reduces a client's debt
type ClientPaymentRecordedEvent struct {
	shared.BaseDomainEvent
	ClientID      uuid.UUID         `json:"client_id"`
	Amount        valueobject.Money `json:"amount"`
	BalanceBefore valueobject.Money `json:"balance_before"`
	BalanceAfter  valueobject.Money `json:"balance_after"`
}

func NewClientPaymentRecordedEvent(c *Client, amount valueobject.Money, before ClientBalance) *ClientPaymentRecordedEvent {
	return &ClientPaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientPaymentRecorded, AggregateTypeClient, c.ID, c.PharmacyID),
		ClientID:        c.ID,
		Amount:          amount,
		BalanceBefore:   before.Current(),
		BalanceAfter:    c.Balance.Current(),
	}
}

// ClientRefundRecordedEvent is published when a refunded payment puts debt back
type ClientRefundRecordedEvent struct {
	shared.BaseDomainEvent
	ClientID      uuid.UUID         `json:"client_id"`
	Amount        valueobject.Money `json:"amount"`
	BalanceBefore valueobject.Money `json:"balance_before"`
	BalanceAfter  valueobject.Money `json:"balance_after"`
}

func NewClientRefundRecordedEvent(c *Client, amount valueobject.Money, before ClientBalance) *ClientRefundRecordedEvent {
	return &ClientRefundRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientRefundRecorded, AggregateTypeClient, c.ID, c.PharmacyID),
		ClientID:        c.ID,
		Amount:          amount,
		BalanceBefore:   before.Current(),
		BalanceAfter:    c.Balance.Current(),
	}
}

// ClientStatusChangedEvent is published on suspend, reactivate and close
type ClientStatusChangedEvent struct {
	shared.BaseDomainEvent
	ClientID  uuid.UUID `json:"client_id"`
	OldStatus Status    `json:"old_status"`
	NewStatus Status    `json:"new_status"`
	Reason    string    `json:"reason,omitempty"`
}

func NewClientStatusChangedEvent(c *Client, oldStatus, newStatus Status, reason string) *ClientStatusChangedEvent {
	return &ClientStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientStatusChanged, AggregateTypeClient, c.ID, c.PharmacyID),
		ClientID:        c.ID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		Reason:          reason,
	}
}

// ClientCreditLimitChangedEvent is published when the credit limit is updated
type ClientCreditLimitChangedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID         `json:"client_id"`
	OldLimit valueobject.Money `json:"old_limit"`
	NewLimit valueobject.Money `json:"new_limit"`
}

func NewClientCreditLimitChangedEvent(c *Client, oldLimit, newLimit valueobject.Money) *ClientCreditLimitChangedEvent {
	return &ClientCreditLimitChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientCreditLimitChanged, AggregateTypeClient, c.ID, c.PharmacyID),
		ClientID:        c.ID,
		OldLimit:        oldLimit,
		NewLimit:        newLimit,
	}
}
