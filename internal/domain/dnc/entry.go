package dnc

import (
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
	"github.com/google/uuid"
)

// Entry is a single do-not-contact registration.
type Entry struct {
	ID uuid.UUID `json:"id"`

	// ClientID scopes the entry to one client; empty means it applies to every client.
	ClientID string `json:"client_id,omitempty"`

	CustomerPhone string           `json:"customer_phone,omitempty"`
	CustomerEmail string           `json:"customer_email,omitempty"`
	Type          values.DNCType   `json:"dnc_type"`
	Source        values.DNCSource `json:"dnc_source"`
	Reason        string           `json:"reason,omitempty"`

	IsActive      bool       `json:"is_active"`
	EffectiveDate time.Time  `json:"effective_date"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`

	OverrideAllowed bool       `json:"override_allowed"`
	LastOverride    *time.Time `json:"last_override,omitempty"`

	// Audit fields
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryParams carries the caller-supplied fields for a new entry
type EntryParams struct {
	ClientID        string
	CustomerPhone   string
	CustomerEmail   string
	Type            string
	Source          string
	Reason          string
	EffectiveDate   time.Time
	ExpiryDate      *time.Time
	OverrideAllowed bool
	CreatedBy       string
}

// NewEntry creates a new active DNC entry with validation.
// The channel fields required by the type must be present and well formed.
func NewEntry(p EntryParams, now time.Time) (*Entry, error) {
	dncType, err := values.ParseDNCType(p.Type)
	if err != nil {
		return nil, err
	}

	source, err := values.NewDNCSource(p.Source)
	if err != nil {
		return nil, err
	}

	var phone, email string
	if dncType.BlocksPhone() {
		pn, err := values.NewPhoneNumber(p.CustomerPhone)
		if err != nil {
			return nil, errors.NewValidationError("INVALID_PHONE_NUMBER",
				"customer phone is required for phone entries").WithCause(err)
		}
		phone = pn.String()
	} else if !values.IsBlank(p.CustomerPhone) {
		phone = p.CustomerPhone
	}

	if dncType.BlocksEmail() {
		em, err := values.NewEmail(p.CustomerEmail)
		if err != nil {
			return nil, errors.NewValidationError("INVALID_EMAIL",
				"customer email is required for email entries").WithCause(err)
		}
		email = em.String()
	} else if !values.IsBlank(p.CustomerEmail) {
		email = values.NormalizeEmail(p.CustomerEmail)
	}

	effective := p.EffectiveDate
	if effective.IsZero() {
		effective = now
	}

	if p.ExpiryDate != nil && p.ExpiryDate.Before(effective) {
		return nil, errors.NewValidationError("INVALID_EXPIRATION",
			"expiry date cannot be before effective date")
	}

	return &Entry{
		ID:              uuid.New(),
		ClientID:        p.ClientID,
		CustomerPhone:   phone,
		CustomerEmail:   email,
		Type:            dncType,
		Source:          source,
		Reason:          p.Reason,
		IsActive:        true,
		EffectiveDate:   effective,
		ExpiryDate:      p.ExpiryDate,
		OverrideAllowed: p.OverrideAllowed,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       now,
		UpdatedBy:       p.CreatedBy,
		UpdatedAt:       now,
	}, nil
}

// InWindow reports whether now falls inside [EffectiveDate, ExpiryDate].
// An expiry before the effective date yields an empty window.
func (e *Entry) InWindow(now time.Time) bool {
	if now.Before(e.EffectiveDate) {
		return false
	}
	return e.ExpiryDate == nil || !now.After(*e.ExpiryDate)
}

// IsExpired checks whether the expiry date has passed
func (e *Entry) IsExpired(now time.Time) bool {
	return e.ExpiryDate != nil && now.After(*e.ExpiryDate)
}

// IsEffective reports whether the entry can block at now given its overrides.
// Overrides belonging to other entries are ignored.
func (e *Entry) IsEffective(now time.Time, overrides []Override) bool {
	if !e.IsActive || !e.InWindow(now) {
		return false
	}
	for i := range overrides {
		if overrides[i].DNCID == e.ID && overrides[i].IsActiveAt(now) {
			return false
		}
	}
	return true
}

// AppliesToClient reports whether the entry is in scope for clientID.
// An empty clientID evaluates every entry.
func (e *Entry) AppliesToClient(clientID string) bool {
	return clientID == "" || e.ClientID == "" || e.ClientID == clientID
}

// BlocksPhone reports whether the entry blocks the given raw phone after
// trimming. Blank values never match, even against a blank customer phone.
func (e *Entry) BlocksPhone(phone string) bool {
	if !e.Type.BlocksPhone() || values.IsBlank(phone) || values.IsBlank(e.CustomerPhone) {
		return false
	}
	return values.NormalizePhone(phone) == values.NormalizePhone(e.CustomerPhone)
}

// BlocksEmail reports whether the entry blocks the given email, ignoring case.
func (e *Entry) BlocksEmail(email string) bool {
	if !e.Type.BlocksEmail() || values.IsBlank(email) || values.IsBlank(e.CustomerEmail) {
		return false
	}
	return values.NormalizeEmail(email) == values.NormalizeEmail(e.CustomerEmail)
}

// Matches reports whether the entry would block the contact, ignoring effectiveness
func (e *Entry) Matches(c Contact) bool {
	return e.BlocksPhone(c.Phone) || e.BlocksEmail(c.Email)
}

// SetActive toggles the entry
func (e *Entry) SetActive(active bool, updatedBy string, now time.Time) {
	e.IsActive = active
	e.UpdatedBy = updatedBy
	e.UpdatedAt = now
}

// RecordOverride stamps the most recent override grant
func (e *Entry) RecordOverride(grantedAt time.Time, updatedBy string) error {
	if !e.OverrideAllowed {
		return errors.NewComplianceError("override_not_allowed",
			"overrides are not permitted for this dnc entry")
	}
	e.LastOverride = &grantedAt
	e.UpdatedBy = updatedBy
	e.UpdatedAt = grantedAt
	return nil
}

// Clone returns a deep copy of the entry
func (e *Entry) Clone() Entry {
	c := *e
	if e.ExpiryDate != nil {
		exp := *e.ExpiryDate
		c.ExpiryDate = &exp
	}
	if e.LastOverride != nil {
		last := *e.LastOverride
		c.LastOverride = &last
	}
	return c
}
