package dnc

import (
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/google/uuid"
)

// Config holds registry service settings
type Config struct {
	PublishTimeout time.Duration
	Breaker        BreakerConfig
}

func defaultConfig() *Config {
	return &Config{
		PublishTimeout: 2 * time.Second,
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 1,
			Cooldown:         30 * time.Second,
		},
	}
}

// Request types

// AddEntryRequest registers a customer phone and/or email
type AddEntryRequest struct {
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

// ListEntriesRequest narrows a listing
type ListEntriesRequest struct {
	ClientID   string
	Source     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// SetActiveRequest toggles an entry on or off
type SetActiveRequest struct {
	ID        uuid.UUID
	Active    bool
	UpdatedBy string
}

// GrantOverrideRequest suspends an entry for a period or permanently
type GrantOverrideRequest struct {
	EntryID   uuid.UUID
	Type      string
	StartDate time.Time
	EndDate   *time.Time
	Reason    string
	GrantedBy string
}

// CheckRequest asks whether a single contact is blocked right now
type CheckRequest struct {
	ClientID string
	Phone    string
	Email    string
}

// Response types

// EntryResponse is an entry with its overrides and current effectiveness
type EntryResponse struct {
	Entry     dnc.Entry      `json:"entry"`
	Overrides []dnc.Override `json:"overrides"`
	Effective bool           `json:"effective"`
}

// ListEntriesResponse is one page of entries
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Count   int              `json:"count"`
}

// OverrideResponse wraps an override with its state at response time
type OverrideResponse struct {
	Override dnc.Override `json:"override"`
	Active   bool         `json:"active"`
}

// CheckResponse reports the blocking entry, if any
type CheckResponse struct {
	Blocked         bool       `json:"blocked"`
	EntryID         *uuid.UUID `json:"entry_id,omitempty"`
	RegistryVersion int64      `json:"registry_version"`
	CheckedAt       time.Time  `json:"checked_at"`
}

// RegistryStats summarises the registry at one version
type RegistryStats struct {
	Version           int64          `json:"version"`
	TakenAt           time.Time      `json:"taken_at"`
	TotalEntries      int            `json:"total_entries"`
	ActiveEntries     int            `json:"active_entries"`
	EffectiveEntries  int            `json:"effective_entries"`
	Overrides         int            `json:"overrides"`
	ActiveOverrides   int            `json:"active_overrides"`
	BySource          map[string]int `json:"by_source"`
	RegulatoryEntries int            `json:"regulatory_entries"`
	PublisherState    string         `json:"publisher_state,omitempty"`
}
