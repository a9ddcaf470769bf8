package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pharmabill/backend/internal/domain/shared"
)

// DefaultCountry is the ISO 3166-1 alpha-2 country assumed for addresses
const DefaultCountry = "AR"

const maxAddressFieldLength = 200

// Address is an optional postal address. All parts may be blank;
// the country is always a two letter code.
type Address struct {
	street     string
	city       string
	state      string
	postalCode string
	country    string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithPostalCode sets the postal code for the address
func WithPostalCode(postalCode string) AddressOption {
	return func(a *Address) {
		a.postalCode = strings.TrimSpace(postalCode)
	}
}

// WithCountry sets the country for the address
func WithCountry(country string) AddressOption {
	return func(a *Address) {
		a.country = strings.ToUpper(strings.TrimSpace(country))
	}
}

// NewAddress creates an Address. Blank parts are allowed.
func NewAddress(street, city, state string, opts ...AddressOption) (Address, error) {
	a := Address{
		street:  strings.TrimSpace(street),
		city:    strings.TrimSpace(city),
		state:   strings.TrimSpace(state),
		country: DefaultCountry,
	}
	for _, opt := range opts {
		opt(&a)
	}

	for name, v := range map[string]string{"street": a.street, "city": a.city, "state": a.state, "postal code": a.postalCode} {
		if len([]rune(v)) > maxAddressFieldLength {
			return Address{}, shared.NewValidationError("%s cannot exceed %d characters", name, maxAddressFieldLength)
		}
	}
	if len(a.country) != 2 {
		return Address{}, shared.NewValidationError("invalid country code: %q", a.country)
	}
	return a, nil
}

// EmptyAddress returns an address with no parts set
func EmptyAddress() Address {
	return Address{country: DefaultCountry}
}

func (a Address) Street() string     { return a.street }
func (a Address) City() string       { return a.city }
func (a Address) State() string      { return a.state }
func (a Address) PostalCode() string { return a.postalCode }
func (a Address) Country() string    { return a.country }

// IsEmpty returns true if no part other than the country is set
func (a Address) IsEmpty() bool {
	return a.street == "" && a.city == "" && a.state == "" && a.postalCode == ""
}

// FullAddress joins the non-blank parts: "Av. Corrientes 1234, CABA, Buenos Aires, C1043, AR"
func (a Address) FullAddress() string {
	if a.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{a.street, a.city, a.state, a.postalCode, a.country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (a Address) String() string {
	return a.FullAddress()
}

// Equals returns true if both addresses are equal
func (a Address) Equals(other Address) bool {
	return a == other
}

type addressJSON struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{
		Street:     a.street,
		City:       a.city,
		State:      a.state,
		PostalCode: a.postalCode,
		Country:    a.country,
	})
}

// UnmarshalJSON delegates to NewAddress so validation still applies
func (a *Address) UnmarshalJSON(data []byte) error {
	var v addressJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	country := v.Country
	if country == "" {
		country = DefaultCountry
	}
	addr, err := NewAddress(v.Street, v.City, v.State, WithPostalCode(v.PostalCode), WithCountry(country))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Value implements driver.Valuer, storing the address as JSON
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (a *Address) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*a = EmptyAddress()
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}
	if len(data) == 0 {
		*a = EmptyAddress()
		return nil
	}
	return a.UnmarshalJSON(data)
}
