package client

import (
	"fmt"

	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// creditWarningRatio is the share of the credit limit at which a client counts as "at limit"
var creditWarningRatio = decimal.RequireFromString("0.9")

// ClientBalance is the immutable account position of a client.
//
// Sign convention: a positive current balance is debt the client owes the
// pharmacy; a negative one is credit in the client's favour. The credit limit
// is never negative and shares the balance currency. A zero limit means the
// client buys cash-only: every charge needs an explicit override.
type ClientBalance struct {
	current     valueobject.Money
	creditLimit valueobject.Money
}

// NewClientBalance validates and builds a balance
func NewClientBalance(current, creditLimit valueobject.Money) (ClientBalance, error) {
	if !current.SameCurrency(creditLimit) {
		return ClientBalance{}, shared.NewValidationError(
			"balance currency %s does not match credit limit currency %s", current.Currency(), creditLimit.Currency())
	}
	if creditLimit.IsNegative() {
		return ClientBalance{}, shared.NewValidationError("credit limit cannot be negative")
	}
	return ClientBalance{current: current, creditLimit: creditLimit}, nil
}

// ZeroBalance returns a settled balance with the given credit limit
func ZeroBalance(creditLimit valueobject.Money) (ClientBalance, error) {
	zero, err := valueobject.Zero(creditLimit.Currency())
	if err != nil {
		return ClientBalance{}, err
	}
	return NewClientBalance(zero, creditLimit)
}

// Current returns the signed balance (positive means debt)
func (b ClientBalance) Current() valueobject.Money {
	return b.current
}

func (b ClientBalance) CreditLimit() valueobject.Money {
	return b.creditLimit
}

func (b ClientBalance) Currency() valueobject.Currency {
	return b.current.Currency()
}

func (b ClientBalance) zero() valueobject.Money {
	z, _ := valueobject.Zero(b.current.Currency())
	return z
}

// TotalDebt returns max(current, 0)
func (b ClientBalance) TotalDebt() valueobject.Money {
	if b.current.IsPositive() {
		return b.current
	}
	return b.zero()
}

// CreditInFavor returns what the pharmacy owes the client, max(-current, 0)
func (b ClientBalance) CreditInFavor() valueobject.Money {
	if b.current.IsNegative() {
		return b.current.Abs()
	}
	return b.zero()
}

// AvailableCredit returns creditLimit - max(current, 0), floored at zero
func (b ClientBalance) AvailableCredit() valueobject.Money {
	available, _ := b.creditLimit.Subtract(b.TotalDebt())
	if available.IsNegative() {
		return b.zero()
	}
	return available
}

// OwesMoney reports whether the client has outstanding debt
func (b ClientBalance) OwesMoney() bool {
	return b.current.IsPositive()
}

// IsCreditExceeded reports whether debt is above the credit limit
func (b ClientBalance) IsCreditExceeded() bool {
	return b.current.Amount().GreaterThan(b.creditLimit.Amount())
}

// IsAtCreditLimit reports whether debt has reached 90% of the limit
func (b ClientBalance) IsAtCreditLimit() bool {
	if !b.OwesMoney() {
		return false
	}
	threshold := b.creditLimit.Amount().Mul(creditWarningRatio)
	return b.current.Amount().GreaterThanOrEqual(threshold)
}

// CanPurchase reports whether a charge of amount would stay within the limit
func (b ClientBalance) CanPurchase(amount valueobject.Money) (bool, error) {
	prospective, err := b.current.Add(amount)
	if err != nil {
		return false, err
	}
	return prospective.LessThanOrEqual(b.creditLimit)
}

func (b ClientBalance) checkAmount(amount valueobject.Money) error {
	if !amount.SameCurrency(b.current) {
		return shared.NewDomainError(shared.CodeCurrencyMismatch,
			fmt.Sprintf("currency mismatch: %s and %s", amount.Currency(), b.current.Currency()))
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("amount must be positive")
	}
	return nil
}

// Charge adds debt. It fails with CREDIT_LIMIT_EXCEEDED when the new debt
// would exceed the credit limit, unless allowOverLimit is set.
func (b ClientBalance) Charge(amount valueobject.Money, allowOverLimit bool) (ClientBalance, error) {
	if err := b.checkAmount(amount); err != nil {
		return ClientBalance{}, err
	}
	prospective, err := b.current.Add(amount)
	if err != nil {
		return ClientBalance{}, err
	}
	if !allowOverLimit && prospective.Amount().GreaterThan(b.creditLimit.Amount()) {
		return ClientBalance{}, shared.NewDomainError(shared.CodeCreditLimitExceeded,
			fmt.Sprintf("charge of %s would exceed credit limit of %s (available %s)",
				amount, b.creditLimit, b.AvailableCredit()))
	}
	return ClientBalance{current: prospective, creditLimit: b.creditLimit}, nil
}

// Pay reduces debt. Overpayment leaves credit in the client's favour.
func (b ClientBalance) Pay(amount valueobject.Money) (ClientBalance, error) {
	if err := b.checkAmount(amount); err != nil {
		return ClientBalance{}, err
	}
	next, err := b.current.Subtract(amount)
	if err != nil {
		return ClientBalance{}, err
	}
	return ClientBalance{current: next, creditLimit: b.creditLimit}, nil
}

// WithCreditLimit returns the same balance under a new limit.
// Lowering the limit below current debt is allowed; further charges are then rejected.
func (b ClientBalance) WithCreditLimit(limit valueobject.Money) (ClientBalance, error) {
	return NewClientBalance(b.current, limit)
}

// Equals compares balance and limit
func (b ClientBalance) Equals(other ClientBalance) bool {
	return b.current.Equals(other.current) && b.creditLimit.Equals(other.creditLimit)
}

func (b ClientBalance) String() string {
	state := "settled"
	switch {
	case b.current.IsPositive():
		state = "owes"
	case b.current.IsNegative():
		state = "in favor"
	}
	return fmt.Sprintf("balance %s (%s), credit limit %s", b.current, state, b.creditLimit)
}
