package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	domainErrors "github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
)

const dateLayout = "2006-01-02"

// Date accepts either an RFC 3339 timestamp or a calendar date
type Date struct {
	time.Time
	DateOnly bool
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string")
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t.UTC()
		d.DateOnly = false
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("date %q must be RFC 3339 or YYYY-MM-DD", s)
	}
	d.Time = t
	d.DateOnly = true
	return nil
}

// Start is the first instant the date covers
func (d *Date) Start() time.Time {
	return d.Time
}

// End is the last instant the date covers. A calendar date runs to the end
// of that day in UTC.
func (d *Date) End() time.Time {
	if d.DateOnly {
		return d.Time.Add(24*time.Hour - time.Nanosecond)
	}
	return d.Time
}

func startOf(d *Date) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Start()
}

func endOf(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.End()
	return &t
}

// CreateDNCEntryRequest registers a phone and/or email on the registry
type CreateDNCEntryRequest struct {
	ClientID        string `json:"client_id" validate:"max=100"`
	CustomerPhone   string `json:"customer_phone" validate:"required_without=CustomerEmail,max=32"`
	CustomerEmail   string `json:"customer_email" validate:"omitempty,email,max=254"`
	DNCType         string `json:"dnc_type" validate:"required,oneof=phone email both"`
	Source          string `json:"source" validate:"required,oneof=customer government manual system"`
	Reason          string `json:"reason" validate:"max=500"`
	EffectiveDate   *Date  `json:"effective_date"`
	ExpiryDate      *Date  `json:"expiry_date"`
	OverrideAllowed bool   `json:"override_allowed"`
	CreatedBy       string `json:"created_by" validate:"max=100"`
}

// UpdateDNCStatusRequest toggles an entry
type UpdateDNCStatusRequest struct {
	IsActive  *bool  `json:"is_active" validate:"required"`
	UpdatedBy string `json:"updated_by" validate:"max=100"`
}

// GrantOverrideRequest suspends an entry
type GrantOverrideRequest struct {
	OverrideType string `json:"override_type" validate:"required,oneof=temporary permanent"`
	StartDate    *Date  `json:"start_date"`
	EndDate      *Date  `json:"end_date"`
	Reason       string `json:"reason" validate:"required,max=500"`
	GrantedBy    string `json:"granted_by" validate:"max=100"`
}

// CheckContactRequest asks about a single contact
type CheckContactRequest struct {
	ClientID string `json:"client_id" validate:"max=100"`
	Phone    string `json:"phone" validate:"max=32"`
	Email    string `json:"email" validate:"max=254"`
}

// FilterContactsRequest previews filtering without creating a campaign.
// Contacts stays raw so a non-list value is reported as an unprocessable
// contact list rather than a decoding failure.
type FilterContactsRequest struct {
	ClientID string          `json:"client_id" validate:"max=100"`
	Contacts json.RawMessage `json:"contacts"`
}

// CreateCampaignRequest creates a draft campaign over the eligible contacts
type CreateCampaignRequest struct {
	Name      string          `json:"name" validate:"required,max=200"`
	ClientID  string          `json:"client_id" validate:"max=100"`
	Channel   string          `json:"channel" validate:"required,oneof=sms email voice whatsapp"`
	Contacts  json.RawMessage `json:"contacts"`
	CreatedBy string          `json:"created_by" validate:"max=100"`
}

// decodeContacts parses the contacts value. Anything other than a JSON list
// of contact objects is an unprocessable contact list; a missing or null
// value yields nil, which the filter treats the same way.
func decodeContacts(raw json.RawMessage) ([]dnc.Contact, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, invalidContactList(fmt.Errorf("contacts must be a list, got %s", jsonKind(trimmed[0])))
	}

	var contacts []dnc.Contact
	if err := json.Unmarshal(trimmed, &contacts); err != nil {
		return nil, invalidContactList(err)
	}
	return contacts, nil
}

func invalidContactList(cause error) error {
	return domainErrors.NewInvalidArgumentError("INVALID_CONTACT_LIST", "could not process contact list").
		WithCause(cause)
}

func jsonKind(first byte) string {
	switch first {
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}
