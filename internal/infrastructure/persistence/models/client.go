package models

import (
	"fmt"
	"time"

	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ClientModel is the persistence model for the clients table
type ClientModel struct {
	PharmacyAggregateModel
	FirstName         string              `gorm:"type:varchar(100);not null;default:''"`
	LastName          string              `gorm:"type:varchar(100);not null;default:''"`
	Phone             string              `gorm:"type:varchar(20);not null;index"`
	Email             string              `gorm:"type:varchar(200)"`
	TaxID             string              `gorm:"column:tax_id;type:varchar(20)"`
	Address           valueobject.Address `gorm:"type:jsonb"`
	Balance           decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	CreditLimit       decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	Currency          string              `gorm:"type:char(3);not null;default:'ARS'"`
	Status            string              `gorm:"type:varchar(20);not null;default:'active';index"`
	WhatsAppOptedIn   bool                `gorm:"column:whatsapp_opted_in;not null;default:false"`
	WhatsAppName      string              `gorm:"column:whatsapp_name;type:varchar(100)"`
	Tags              []string            `gorm:"serializer:json;type:jsonb"`
	Notes             string              `gorm:"type:text"`
	ExternalID        string              `gorm:"type:varchar(100)"`
	LastTransactionAt *time.Time
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ClientModelFromDomain creates a persistence model from a domain client
func ClientModelFromDomain(c *client.Client) *ClientModel {
	m := &ClientModel{
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		Phone:             c.Phone.Normalized(),
		Email:             c.Email,
		TaxID:             c.TaxID,
		Address:           c.Address,
		Balance:           c.Balance.Current().Amount(),
		CreditLimit:       c.Balance.CreditLimit().Amount(),
		Currency:          string(c.Balance.Currency()),
		Status:            c.Status.String(),
		WhatsAppOptedIn:   c.WhatsAppOptedIn,
		WhatsAppName:      c.WhatsAppName,
		Tags:              c.Tags,
		Notes:             c.Notes,
		ExternalID:        c.ExternalID,
		LastTransactionAt: c.LastTransactionAt,
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	m.FromDomainPharmacyAggregateRoot(c.PharmacyAggregateRoot)
	return m
}

// ToDomain rebuilds the client. Stored rows are re-validated through the
// value object factories so a corrupt row surfaces as an error.
func (m *ClientModel) ToDomain() (*client.Client, error) {
	phone, err := valueobject.PhoneNumberFromNormalized(m.Phone)
	if err != nil {
		return nil, fmt.Errorf("client %s: phone: %w", m.ID, err)
	}
	currency := valueobject.Currency(m.Currency)
	current, err := valueobject.NewSignedMoney(m.Balance, currency)
	if err != nil {
		return nil, fmt.Errorf("client %s: balance: %w", m.ID, err)
	}
	limit, err := valueobject.NewMoney(m.CreditLimit, currency)
	if err != nil {
		return nil, fmt.Errorf("client %s: credit limit: %w", m.ID, err)
	}
	balance, err := client.NewClientBalance(current, limit)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", m.ID, err)
	}
	status, err := client.ParseStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", m.ID, err)
	}

	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}

	return &client.Client{
		PharmacyAggregateRoot: m.ToDomainPharmacyAggregateRoot(),
		FirstName:             m.FirstName,
		LastName:              m.LastName,
		Phone:                 phone,
		Email:                 m.Email,
		TaxID:                 m.TaxID,
		Address:               m.Address,
		Balance:               balance,
		Status:                status,
		WhatsAppOptedIn:       m.WhatsAppOptedIn,
		WhatsAppName:          m.WhatsAppName,
		Tags:                  tags,
		Notes:                 m.Notes,
		ExternalID:            m.ExternalID,
		LastTransactionAt:     m.LastTransactionAt,
	}, nil
}
