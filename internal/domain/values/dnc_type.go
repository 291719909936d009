package values

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
)

// DNCType selects which channel(s) a do-not-contact entry blocks.
type DNCType string

const (
	DNCTypePhone DNCType = "phone"
	DNCTypeEmail DNCType = "email"
	DNCTypeBoth  DNCType = "both"
)

// ParseDNCType validates and normalizes a DNC type string
func ParseDNCType(s string) (DNCType, error) {
	switch t := DNCType(strings.ToLower(strings.TrimSpace(s))); t {
	case DNCTypePhone, DNCTypeEmail, DNCTypeBoth:
		return t, nil
	default:
		return "", errors.NewValidationError("INVALID_DNC_TYPE",
			fmt.Sprintf("dnc type '%s' must be one of phone, email, both", s))
	}
}

// BlocksPhone reports whether entries of this type block by phone number
func (t DNCType) BlocksPhone() bool {
	return t == DNCTypePhone || t == DNCTypeBoth
}

// BlocksEmail reports whether entries of this type block by email address
func (t DNCType) BlocksEmail() bool {
	return t == DNCTypeEmail || t == DNCTypeBoth
}

func (t DNCType) String() string {
	return string(t)
}

// UnmarshalJSON implements JSON unmarshaling with validation
func (t *DNCType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseDNCType(raw)
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}
