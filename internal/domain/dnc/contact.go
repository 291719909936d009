package dnc

import (
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
)

// Contact is a candidate recipient for outreach. Contacts are treated as
// immutable once produced by the upstream contact source.
type Contact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`

	// Attributes carries display-only columns from the source (client labels,
	// spreadsheet fields). Filtering never reads it.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// HasPhone reports whether the contact carries a non-blank phone
func (c Contact) HasPhone() bool {
	return !values.IsBlank(c.Phone)
}

// HasEmail reports whether the contact carries a non-blank email
func (c Contact) HasEmail() bool {
	return !values.IsBlank(c.Email)
}

// DedupKey returns the key used to collapse duplicate rows: the trimmed phone
// when present, otherwise the normalized email. ok is false when the contact has
// neither and therefore cannot be compared with anything.
func (c Contact) DedupKey() (key string, ok bool) {
	if c.HasPhone() {
		return "phone:" + values.NormalizePhone(c.Phone), true
	}
	if c.HasEmail() {
		return "email:" + values.NormalizeEmail(c.Email), true
	}
	return "", false
}
