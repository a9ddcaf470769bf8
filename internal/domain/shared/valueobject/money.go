package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Currency represents an ISO 4217 currency code
type Currency string

const (
	ARS Currency = "ARS" // Argentine Peso (default)
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	BRL Currency = "BRL"
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = ARS

// MoneyScale is the number of decimal places money amounts are held at
const MoneyScale int32 = 2

var currencySymbols = map[Currency]string{
	ARS: "$",
	USD: "$",
	EUR: "€",
	GBP: "£",
}

// ParseCurrency upper-cases and validates a three letter currency code
func ParseCurrency(code string) (Currency, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", shared.NewValidationError("invalid currency code: %q", code)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", shared.NewValidationError("invalid currency code: %q", code)
		}
	}
	return Currency(c), nil
}

// IsValid reports whether the code is a well-formed currency code
func (c Currency) IsValid() bool {
	_, err := ParseCurrency(string(c))
	return err == nil && strings.ToUpper(string(c)) == string(c)
}

// Symbol returns the display symbol, or the code itself when none is known
func (c Currency) Symbol() string {
	if s, ok := currencySymbols[c]; ok {
		return s
	}
	return string(c)
}

// Money is an immutable monetary amount bound to a currency.
// Amounts are held at two decimal places, rounded half away from zero.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a non-negative Money. Use NewSignedMoney for balances that may go negative.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if amount.IsNegative() {
		return Money{}, shared.NewValidationError("amount cannot be negative")
	}
	return NewSignedMoney(amount, currency)
}

// NewSignedMoney creates a Money that may hold a negative amount
func NewSignedMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	c, err := ParseCurrency(string(currency))
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount.Round(MoneyScale), currency: c}, nil
}

// NewMoneyFromString creates a non-negative Money from a decimal string
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := parseAmount(amount)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d, currency)
}

// NewSignedMoneyFromString creates a signed Money from a decimal string
func NewSignedMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := parseAmount(amount)
	if err != nil {
		return Money{}, err
	}
	return NewSignedMoney(d, currency)
}

// NewMoneyFromInt creates a non-negative Money from a whole number of units
func NewMoneyFromInt(amount int64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromInt(amount), currency)
}

// NewMoneyFromCents creates a non-negative Money from minor units
func NewMoneyFromCents(cents int64, currency Currency) (Money, error) {
	return NewMoney(decimal.New(cents, -MoneyScale), currency)
}

// MustMoney parses a signed literal amount and panics if it is invalid
func MustMoney(amount string, currency Currency) Money {
	m, err := NewSignedMoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, shared.NewValidationError("invalid amount: %q", s)
	}
	return d, nil
}

// Zero returns a zero amount in the given currency
func Zero(currency Currency) (Money, error) {
	return NewSignedMoney(decimal.Zero, currency)
}

// ZeroARS returns zero pesos
func ZeroARS() Money {
	return Money{amount: decimal.Zero, currency: ARS}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// SameCurrency reports whether both values share a currency
func (m Money) SameCurrency(other Money) bool {
	return m.currency == other.currency
}

func (m Money) checkCurrency(other Money) error {
	if m.currency != other.currency {
		return shared.NewDomainError(shared.CodeCurrencyMismatch,
			fmt.Sprintf("currency mismatch: %s and %s", m.currency, other.currency))
	}
	return nil
}

// Add returns the sum. Fails with CURRENCY_MISMATCH when currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference, which may be negative.
// Fails with CURRENCY_MISMATCH when currencies differ.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// SubtractNonNegative is Subtract for amounts that must stay at or above zero
func (m Money) SubtractNonNegative(other Money) (Money, error) {
	result, err := m.Subtract(other)
	if err != nil {
		return Money{}, err
	}
	if result.IsNegative() {
		return Money{}, shared.NewValidationError("amount cannot be negative")
	}
	return result, nil
}

// Multiply returns the amount multiplied by factor, rounded to two places
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).Round(MoneyScale), currency: m.currency}
}

// MultiplyByInt returns the amount multiplied by an integer quantity
func (m Money) MultiplyByInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Max returns the larger of m and other
func (m Money) Max(other Money) (Money, error) {
	gt, err := m.GreaterThanOrEqual(other)
	if err != nil {
		return Money{}, err
	}
	if gt {
		return m, nil
	}
	return other, nil
}

// Equals returns true if amount and currency are both equal.
// Values in different currencies are simply not equal.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Compare returns -1, 0 or 1. Fails with CURRENCY_MISMATCH when currencies differ.
func (m Money) Compare(other Money) (int, error) {
	if err := m.checkCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c < 0, err
}

func (m Money) LessThanOrEqual(other Money) (bool, error) {
	c, err := m.Compare(other)
	return err == nil && c <= 0, err
}

func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c > 0, err
}

func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	c, err := m.Compare(other)
	return err == nil && c >= 0, err
}

// String returns "ARS 1234.50"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.amount.StringFixed(MoneyScale))
}

// StringFixed returns the amount with two decimal places
func (m Money) StringFixed() string {
	return m.amount.StringFixed(MoneyScale)
}

// Formatted returns the amount with its symbol and thousands separators, e.g. "$ 1,234.50"
func (m Money) Formatted() string {
	return m.currency.Symbol() + " " + groupThousands(m.amount.StringFixed(MoneyScale))
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(MoneyScale), Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler. The value goes through the signed
// factory, so currency validation still applies.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewSignedMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer and stores the amount only; currency lives in its own column
func (m Money) Value() (driver.Value, error) {
	return m.amount.StringFixed(MoneyScale), nil
}
