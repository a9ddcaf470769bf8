package valueobject

import (
	"regexp"
	"strings"

	"github.com/pharmabill/backend/internal/domain/shared"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email is a lower-cased, syntactically valid e-mail address
type Email struct {
	value string
}

// NewEmail trims, lower-cases and validates an address
func NewEmail(s string) (Email, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return Email{}, shared.NewValidationError("email cannot be empty")
	}
	if !emailPattern.MatchString(v) {
		return Email{}, shared.NewValidationError("invalid email format: %s", s)
	}
	return Email{value: v}, nil
}

func (e Email) String() string {
	return e.value
}

func (e Email) IsZero() bool {
	return e.value == ""
}

// Domain returns the part after "@"
func (e Email) Domain() string {
	_, domain, _ := strings.Cut(e.value, "@")
	return domain
}
