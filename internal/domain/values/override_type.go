package values

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
)

// OverrideType distinguishes time-boxed exceptions from permanent ones.
type OverrideType string

const (
	OverrideTemporary OverrideType = "temporary"
	OverridePermanent OverrideType = "permanent"
)

// ParseOverrideType validates and normalizes an override type string
func ParseOverrideType(s string) (OverrideType, error) {
	switch t := OverrideType(strings.ToLower(strings.TrimSpace(s))); t {
	case OverrideTemporary, OverridePermanent:
		return t, nil
	default:
		return "", errors.NewValidationError("INVALID_OVERRIDE_TYPE",
			fmt.Sprintf("override type '%s' must be temporary or permanent", s))
	}
}

func (t OverrideType) IsTemporary() bool { return t == OverrideTemporary }
func (t OverrideType) IsPermanent() bool { return t == OverridePermanent }

func (t OverrideType) String() string {
	return string(t)
}

// UnmarshalJSON implements JSON unmarshaling with validation
func (t *OverrideType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseOverrideType(raw)
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}
