package values

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// PhoneNumber is a validated phone number kept exactly as entered (trimmed).
// Registry matching is an exact string comparison, so no reformatting happens here.
type PhoneNumber struct {
	number string
}

// Max digits allowed by E.164
const maxPhoneDigits = 15

var phoneCharsRegex = regexp.MustCompile(`^\+?[0-9][0-9\-.\s()]*$`)

// NewPhoneNumber creates a new PhoneNumber value object with validation
func NewPhoneNumber(number string) (PhoneNumber, error) {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return PhoneNumber{}, fmt.Errorf("phone number cannot be empty")
	}

	if !phoneCharsRegex.MatchString(trimmed) {
		return PhoneNumber{}, fmt.Errorf("invalid phone number format: %s", number)
	}

	if n := len(digitsOnly(trimmed)); n > maxPhoneDigits {
		return PhoneNumber{}, fmt.Errorf("phone number has %d digits, max %d", n, maxPhoneDigits)
	}

	return PhoneNumber{number: trimmed}, nil
}

// MustNewPhoneNumber creates PhoneNumber and panics on error (for constants/tests)
func MustNewPhoneNumber(number string) PhoneNumber {
	phone, err := NewPhoneNumber(number)
	if err != nil {
		panic(err)
	}
	return phone
}

// String returns the phone number as entered
func (p PhoneNumber) String() string {
	return p.number
}

// Digits returns only the digits of the number
func (p PhoneNumber) Digits() string {
	return digitsOnly(p.number)
}

// IsEmpty checks if the phone number is empty
func (p PhoneNumber) IsEmpty() bool {
	return p.number == ""
}

// Equal checks if two PhoneNumber values are equal
func (p PhoneNumber) Equal(other PhoneNumber) bool {
	return p.number == other.number
}

// MarshalJSON implements JSON marshaling
func (p PhoneNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.number)
}

// UnmarshalJSON implements JSON unmarshaling
func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	var number string
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}

	phone, err := NewPhoneNumber(number)
	if err != nil {
		return err
	}

	*p = phone
	return nil
}

// IsBlank reports whether a raw phone or email field carries no usable value.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// NormalizePhone trims whitespace from a raw phone. Phones otherwise compare
// exactly as entered.
func NormalizePhone(number string) string {
	return strings.TrimSpace(number)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
