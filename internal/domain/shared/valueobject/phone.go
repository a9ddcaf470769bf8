package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/pharmabill/backend/internal/domain/shared"
)

// DefaultCountryCode is the calling code assumed for national numbers (Argentina)
const DefaultCountryCode = "54"

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
)

var errInvalidPhone = shared.NewDomainError(shared.CodeValidation, "invalid phone number format")

// PhoneNumber is an immutable phone number normalized to E.164.
// Equality is defined on the normalized form only.
type PhoneNumber struct {
	raw        string
	normalized string
}

// NewPhoneNumber parses free-form input using the default country code
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	return NewPhoneNumberWithCountryCode(raw, DefaultCountryCode)
}

// NewPhoneNumberWithCountryCode parses free-form input, prefixing national
// numbers with countryCode (digits, with or without a leading "+").
//
// Spaces, dashes, dots and parentheses are stripped. What remains must be an
// optional leading "+" or "00" followed by digits.
func NewPhoneNumberWithCountryCode(raw, countryCode string) (PhoneNumber, error) {
	cc := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if !isDigits(cc) || cc[0] == '0' {
		return PhoneNumber{}, shared.NewValidationError("invalid country code: %q", countryCode)
	}

	cleaned := stripPhoneSeparators(raw)
	if cleaned == "" {
		return PhoneNumber{}, shared.NewValidationError("phone number cannot be empty")
	}

	if strings.HasPrefix(cleaned, "00") {
		// international dialling prefix
		cleaned = "+" + cleaned[2:]
	}

	var normalized string
	switch {
	case strings.HasPrefix(cleaned, "+"):
		normalized = cleaned
	case strings.HasPrefix(cleaned, cc) && len(cleaned) > 10:
		// country code already present without "+"
		normalized = "+" + cleaned
	case strings.HasPrefix(cleaned, "0"):
		// national trunk prefix
		normalized = "+" + cc + strings.TrimPrefix(cleaned, "0")
	default:
		// includes 10-digit mobiles starting with the 9 marker
		normalized = "+" + cc + cleaned
	}

	digits := normalized[1:]
	if !isDigits(digits) || len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return PhoneNumber{}, errInvalidPhone
	}
	if digits[0] == '0' {
		// no calling code starts with 0
		return PhoneNumber{}, errInvalidPhone
	}

	return PhoneNumber{raw: raw, normalized: normalized}, nil
}

// PhoneNumberFromNormalized rebuilds a PhoneNumber from a stored E.164 value
func PhoneNumberFromNormalized(normalized string) (PhoneNumber, error) {
	if !strings.HasPrefix(normalized, "+") {
		return PhoneNumber{}, errInvalidPhone
	}
	return NewPhoneNumber(normalized)
}

func stripPhoneSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Raw returns the input as given
func (p PhoneNumber) Raw() string {
	return p.raw
}

// Normalized returns the E.164 form, e.g. "+5491112345678"
func (p PhoneNumber) Normalized() string {
	return p.normalized
}

func (p PhoneNumber) IsZero() bool {
	return p.normalized == ""
}

// Equals compares normalized forms
func (p PhoneNumber) Equals(other PhoneNumber) bool {
	return p.normalized == other.normalized
}

// IsArgentine reports whether the number carries the +54 calling code
func (p PhoneNumber) IsArgentine() bool {
	return strings.HasPrefix(p.normalized, "+"+DefaultCountryCode)
}

// InternationalFormat renders Argentine numbers as "+54 9 11 1234 5678".
// Other numbers are returned in E.164.
func (p PhoneNumber) InternationalFormat() string {
	if !p.IsArgentine() {
		return p.normalized
	}
	d := p.normalized[3:]
	if len(d) < 10 {
		return p.normalized
	}
	return "+54 " + d[:1] + " " + d[1:3] + " " + d[3:7] + " " + d[7:]
}

// LocalFormat renders Argentine mobiles as "11 1234 5678", otherwise the raw input
func (p PhoneNumber) LocalFormat() string {
	if !p.IsArgentine() {
		return p.raw
	}
	d := p.normalized[4:]
	if len(d) < 10 {
		return p.raw
	}
	return d[:2] + " " + d[2:6] + " " + d[6:]
}

// WhatsAppFormat returns the digits without the leading "+"
func (p PhoneNumber) WhatsAppFormat() string {
	return strings.TrimPrefix(p.normalized, "+")
}

func (p PhoneNumber) String() string {
	return p.normalized
}

// MarshalJSON writes the normalized form
func (p PhoneNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.normalized)
}

// UnmarshalJSON parses and normalizes the given string
func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewPhoneNumber(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements driver.Valuer, storing the normalized form
func (p PhoneNumber) Value() (driver.Value, error) {
	return p.normalized, nil
}
