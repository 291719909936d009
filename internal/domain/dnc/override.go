package dnc

import (
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
	"github.com/google/uuid"
)

// Override suppresses an entry's blocking effect. Temporary overrides cover
// [StartDate, EndDate]; permanent overrides hold from StartDate on. A revoked
// override stops applying at RevokedAt.
type Override struct {
	ID        uuid.UUID           `json:"id"`
	DNCID     uuid.UUID           `json:"dnc_id"`
	Type      values.OverrideType `json:"override_type"`
	StartDate time.Time           `json:"override_start_date"`
	EndDate   *time.Time          `json:"override_end_date,omitempty"`
	RevokedAt *time.Time          `json:"revoked_at,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	GrantedBy string              `json:"granted_by,omitempty"`
	GrantedAt time.Time           `json:"granted_at"`
}

// NewOverride validates and builds an override for the entry
func NewOverride(entryID uuid.UUID, overrideType string, start time.Time, end *time.Time, reason, grantedBy string, now time.Time) (*Override, error) {
	if entryID == uuid.Nil {
		return nil, errors.NewValidationError("INVALID_DNC_ID", "dnc entry id cannot be empty")
	}

	t, err := values.ParseOverrideType(overrideType)
	if err != nil {
		return nil, err
	}

	if start.IsZero() {
		start = now
	}

	switch t {
	case values.OverrideTemporary:
		if end == nil {
			return nil, errors.NewValidationError("MISSING_END_DATE",
				"temporary overrides require an end date")
		}
		if !end.After(start) {
			return nil, errors.NewValidationError("INVALID_END_DATE",
				"override end date must be after start date")
		}
	case values.OverridePermanent:
		end = nil
	}

	return &Override{
		ID:        uuid.New(),
		DNCID:     entryID,
		Type:      t,
		StartDate: start,
		EndDate:   end,
		Reason:    reason,
		GrantedBy: grantedBy,
		GrantedAt: now,
	}, nil
}

// IsActiveAt reports whether the override suppresses blocking at now.
// A temporary override without an end date never applies.
func (o *Override) IsActiveAt(now time.Time) bool {
	if now.Before(o.StartDate) {
		return false
	}
	if o.RevokedAt != nil && !now.Before(*o.RevokedAt) {
		return false
	}

	switch o.Type {
	case values.OverridePermanent:
		return true
	case values.OverrideTemporary:
		return o.EndDate != nil && !now.After(*o.EndDate)
	default:
		return false
	}
}

// Revoke ends the override at the given time
func (o *Override) Revoke(at time.Time) {
	o.RevokedAt = &at
}

// Clone returns a deep copy of the override
func (o *Override) Clone() Override {
	c := *o
	if o.EndDate != nil {
		end := *o.EndDate
		c.EndDate = &end
	}
	if o.RevokedAt != nil {
		rev := *o.RevokedAt
		c.RevokedAt = &rev
	}
	return c
}
