package values

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
)

// DNCSource records where a do-not-contact entry came from. It is informational;
// blocking never depends on it.
type DNCSource struct {
	source string
}

// Supported DNC sources
const (
	DNCSourceCustomer   = "customer"
	DNCSourceGovernment = "government"
	DNCSourceManual     = "manual"
	DNCSourceSystem     = "system"
)

var (
	sourceDisplayNames = map[string]string{
		DNCSourceCustomer:   "Customer Request",
		DNCSourceGovernment: "Government Registry",
		DNCSourceManual:     "Manual Entry",
		DNCSourceSystem:     "System Generated",
	}

	supportedSources = map[string]bool{
		DNCSourceCustomer:   true,
		DNCSourceGovernment: true,
		DNCSourceManual:     true,
		DNCSourceSystem:     true,
	}

	// Sources that carry a regulatory obligation
	regulatorySources = map[string]bool{
		DNCSourceGovernment: true,
	}
)

// NewDNCSource creates a new DNCSource value object with validation
func NewDNCSource(source string) (DNCSource, error) {
	if source == "" {
		return DNCSource{}, errors.NewValidationError("EMPTY_DNC_SOURCE",
			"dnc source cannot be empty")
	}

	normalized := strings.ToLower(strings.TrimSpace(source))

	if !supportedSources[normalized] {
		return DNCSource{}, errors.NewValidationError("UNSUPPORTED_DNC_SOURCE",
			fmt.Sprintf("dnc source '%s' is not supported", source))
	}

	return DNCSource{source: normalized}, nil
}

// MustNewDNCSource creates DNCSource and panics on error (for constants/tests)
func MustNewDNCSource(source string) DNCSource {
	s, err := NewDNCSource(source)
	if err != nil {
		panic(err)
	}
	return s
}

func CustomerSource() DNCSource   { return MustNewDNCSource(DNCSourceCustomer) }
func GovernmentSource() DNCSource { return MustNewDNCSource(DNCSourceGovernment) }
func ManualSource() DNCSource     { return MustNewDNCSource(DNCSourceManual) }
func SystemSource() DNCSource     { return MustNewDNCSource(DNCSourceSystem) }

// String returns the source string
func (s DNCSource) String() string {
	return s.source
}

// IsEmpty checks if the source is empty
func (s DNCSource) IsEmpty() bool {
	return s.source == ""
}

// Equal checks if two DNCSource values are equal
func (s DNCSource) Equal(other DNCSource) bool {
	return s.source == other.source
}

// DisplayName returns the human-readable name for the source
func (s DNCSource) DisplayName() string {
	if name, ok := sourceDisplayNames[s.source]; ok {
		return name
	}
	return s.source
}

// IsRegulatory checks if the source is a government registry
func (s DNCSource) IsRegulatory() bool {
	return regulatorySources[s.source]
}

// MarshalJSON implements JSON marshaling
func (s DNCSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.source)
}

// UnmarshalJSON implements JSON unmarshaling
func (s *DNCSource) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	source, err := NewDNCSource(raw)
	if err != nil {
		return err
	}

	*s = source
	return nil
}
