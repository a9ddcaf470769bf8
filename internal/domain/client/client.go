package client

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
)

// Status is the lifecycle state of a client account
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

// allowedTransitions is the account state machine; closed has no exits
var allowedTransitions = map[Status][]Status{
	StatusActive:    {StatusSuspended, StatusClosed},
	StatusSuspended: {StatusActive, StatusClosed},
	StatusClosed:    {},
}

// ParseStatus validates a status string
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewValidationError("invalid client status: %q", s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(allowedTransitions[s], next)
}

func (s Status) String() string {
	return string(s)
}

const (
	maxNameLength  = 100
	maxTagLength   = 50
	maxTaxIDLength = 20
)

// Client is a pharmacy customer with a running account.
// It is the aggregate root for balance and status changes. The pharmacy id
// is fixed at construction and every balance it holds is in that pharmacy's scope.
type Client struct {
	shared.PharmacyAggregateRoot
	FirstName         string
	LastName          string
	Phone             valueobject.PhoneNumber
	Email             string
	TaxID             string
	Address           valueobject.Address
	Balance           ClientBalance
	Status            Status
	WhatsAppOptedIn   bool
	WhatsAppName      string
	Tags              []string
	Notes             string
	ExternalID        string
	LastTransactionAt *time.Time
}

// NewClient creates an active client with a settled balance under creditLimit
func NewClient(pharmacyID uuid.UUID, firstName, lastName string, phone valueobject.PhoneNumber, creditLimit valueobject.Money) (*Client, error) {
	balance, err := ZeroBalance(creditLimit)
	if err != nil {
		return nil, err
	}
	return NewClientWithBalance(pharmacyID, firstName, lastName, phone, balance)
}

// NewClientWithBalance creates an active client with an explicit opening balance
func NewClientWithBalance(pharmacyID uuid.UUID, firstName, lastName string, phone valueobject.PhoneNumber, balance ClientBalance) (*Client, error) {
	if pharmacyID == uuid.Nil {
		return nil, shared.NewValidationError("client must belong to a pharmacy")
	}
	if phone.IsZero() {
		return nil, shared.NewValidationError("phone number is required")
	}
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if err := validateName(firstName, lastName); err != nil {
		return nil, err
	}

	c := &Client{
		PharmacyAggregateRoot: shared.NewPharmacyAggregateRoot(pharmacyID),
		FirstName:             firstName,
		LastName:              lastName,
		Phone:                 phone,
		Address:               valueobject.EmptyAddress(),
		Balance:               balance,
		Status:                StatusActive,
		Tags:                  []string{},
	}
	c.AddDomainEvent(NewClientCreatedEvent(c))
	return c, nil
}

func validateName(first, last string) error {
	if len([]rune(first)) > maxNameLength || len([]rune(last)) > maxNameLength {
		return shared.NewValidationError("name cannot exceed %d characters", maxNameLength)
	}
	return nil
}

// FullName joins first and last name, falling back to the WhatsApp profile name
func (c *Client) FullName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.WhatsAppName
	}
	return name
}

// DisplayName returns the best available label for the client
func (c *Client) DisplayName() string {
	if name := c.FullName(); name != "" {
		return name
	}
	return c.Phone.InternationalFormat()
}

func (c *Client) IsActive() bool {
	return c.Status == StatusActive
}

func (c *Client) IsClosed() bool {
	return c.Status == StatusClosed
}

// OwesMoney reports whether the client has outstanding debt
func (c *Client) OwesMoney() bool {
	return c.Balance.OwesMoney()
}

// CanMakePurchase reports whether a charge of amount would be accepted without override
func (c *Client) CanMakePurchase(amount valueobject.Money) bool {
	if !c.IsActive() {
		return false
	}
	ok, err := c.Balance.CanPurchase(amount)
	return err == nil && ok
}

// touch marks the client changed; UpdatedAt is stamped when it is saved
func (c *Client) touch() {
	c.IncrementVersion()
}

// RecordCharge adds debt for a sale. Only active clients can be charged.
// On error the client is left unchanged.
func (c *Client) RecordCharge(amount valueobject.Money, allowOverLimit bool) error {
	switch c.Status {
	case StatusActive:
	case StatusClosed:
		return shared.NewDomainError(shared.CodeClientClosed, "cannot charge a closed client account")
	default:
		return shared.NewDomainError(shared.CodeClientNotActive,
			fmt.Sprintf("cannot charge client in status %s", c.Status))
	}

	next, err := c.Balance.Charge(amount, allowOverLimit)
	if err != nil {
		return err
	}

	previous := c.Balance
	c.Balance = next
	now := time.Now()
	c.LastTransactionAt = &now
	c.touch()
	c.AddDomainEvent(NewClientChargedEvent(c, amount, previous, allowOverLimit))
	return nil
}

// RecordPayment reduces debt. Active and suspended clients can pay; closed ones cannot.
func (c *Client) RecordPayment(amount valueobject.Money) error {
	if c.IsClosed() {
		return shared.NewDomainError(shared.CodeClientClosed, "cannot record a payment on a closed client account")
	}

	next, err := c.Balance.Pay(amount)
	if err != nil {
		return err
	}

	previous := c.Balance
	c.Balance = next
	now := time.Now()
	c.LastTransactionAt = &now
	c.touch()
	c.AddDomainEvent(NewClientPaymentRecordedEvent(c, amount, previous))
	return nil
}

// RecordRefund puts back the debt of a charge whose payment was returned to
// the client. The credit limit does not apply: the debt existed before.
func (c *Client) RecordRefund(amount valueobject.Money) error {
	if c.IsClosed() {
		return shared.NewDomainError(shared.CodeClientClosed, "cannot record a refund on a closed client account")
	}

	next, err := c.Balance.Charge(amount, true)
	if err != nil {
		return err
	}

	previous := c.Balance
	c.Balance = next
	now := time.Now()
	c.LastTransactionAt = &now
	c.touch()
	c.AddDomainEvent(NewClientRefundRecordedEvent(c, amount, previous))
	return nil
}

func (c *Client) transitionTo(next Status, reason string) error {
	if !c.Status.CanTransitionTo(next) {
		return shared.NewDomainError(shared.CodeInvalidStatusTransition,
			fmt.Sprintf("cannot change client status from %s to %s", c.Status, next))
	}
	old := c.Status
	c.Status = next
	c.touch()
	c.AddDomainEvent(NewClientStatusChangedEvent(c, old, next, reason))
	return nil
}

// Suspend blocks further charges; payments are still accepted
func (c *Client) Suspend(reason string) error {
	return c.transitionTo(StatusSuspended, reason)
}

// Reactivate returns a suspended client to active
func (c *Client) Reactivate() error {
	return c.transitionTo(StatusActive, "")
}

// Close ends the account. Closed is terminal.
func (c *Client) Close(reason string) error {
	return c.transitionTo(StatusClosed, reason)
}

// UpdateCreditLimit sets a new credit limit in the balance currency
func (c *Client) UpdateCreditLimit(limit valueobject.Money) error {
	if c.IsClosed() {
		return shared.NewDomainError(shared.CodeClientClosed, "cannot change the credit limit of a closed client account")
	}
	next, err := c.Balance.WithCreditLimit(limit)
	if err != nil {
		return err
	}
	old := c.Balance.CreditLimit()
	c.Balance = next
	c.touch()
	c.AddDomainEvent(NewClientCreditLimitChangedEvent(c, old, limit))
	return nil
}

// ContactDetails holds the optional fields changed by UpdateContact.
// Nil fields are left untouched.
type ContactDetails struct {
	FirstName *string
	LastName  *string
	Phone     *valueobject.PhoneNumber
	Email     *string
	TaxID     *string
	Address   *valueobject.Address
	Notes     *string
}

// UpdateContact applies personal data changes after validating all of them
func (c *Client) UpdateContact(d ContactDetails) error {
	first, last := c.FirstName, c.LastName
	if d.FirstName != nil {
		first = strings.TrimSpace(*d.FirstName)
	}
	if d.LastName != nil {
		last = strings.TrimSpace(*d.LastName)
	}
	if err := validateName(first, last); err != nil {
		return err
	}

	email := c.Email
	if d.Email != nil {
		email = ""
		if strings.TrimSpace(*d.Email) != "" {
			e, err := valueobject.NewEmail(*d.Email)
			if err != nil {
				return err
			}
			email = e.String()
		}
	}

	taxID := c.TaxID
	if d.TaxID != nil {
		taxID = strings.TrimSpace(*d.TaxID)
		if len(taxID) > maxTaxIDLength {
			return shared.NewValidationError("tax id cannot exceed %d characters", maxTaxIDLength)
		}
	}

	if d.Phone != nil && d.Phone.IsZero() {
		return shared.NewValidationError("phone number is required")
	}

	c.FirstName, c.LastName, c.Email, c.TaxID = first, last, email, taxID
	if d.Phone != nil {
		c.Phone = *d.Phone
	}
	if d.Address != nil {
		c.Address = *d.Address
	}
	if d.Notes != nil {
		c.Notes = *d.Notes
	}
	c.touch()
	c.AddDomainEvent(NewClientUpdatedEvent(c))
	return nil
}

// SetExternalID links the client to a record in another system
func (c *Client) SetExternalID(id string) {
	c.ExternalID = strings.TrimSpace(id)
	c.touch()
}

// OptInWhatsApp records consent to WhatsApp messages
func (c *Client) OptInWhatsApp(profileName string) {
	c.WhatsAppOptedIn = true
	if name := strings.TrimSpace(profileName); name != "" {
		c.WhatsAppName = name
	}
	c.touch()
}

// OptOutWhatsApp withdraws consent to WhatsApp messages
func (c *Client) OptOutWhatsApp() {
	c.WhatsAppOptedIn = false
	c.touch()
}

// AddTag adds a label; duplicates and blanks are ignored
func (c *Client) AddTag(tag string) error {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || c.HasTag(tag) {
		return nil
	}
	if len(tag) > maxTagLength {
		return shared.NewValidationError("tag cannot exceed %d characters", maxTagLength)
	}
	c.Tags = append(c.Tags, tag)
	c.touch()
	return nil
}

// RemoveTag removes a label if present
func (c *Client) RemoveTag(tag string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	idx := slices.Index(c.Tags, tag)
	if idx < 0 {
		return
	}
	c.Tags = slices.Delete(c.Tags, idx, idx+1)
	c.touch()
}

func (c *Client) HasTag(tag string) bool {
	return slices.Contains(c.Tags, strings.ToLower(strings.TrimSpace(tag)))
}

// CanBeDeleted reports whether the record may be removed: closed and settled
func (c *Client) CanBeDeleted() bool {
	return c.IsClosed() && c.Balance.Current().IsZero()
}
