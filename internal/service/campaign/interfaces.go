package campaign

import (
	"context"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/campaign"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/google/uuid"
)

// Service runs compliance filtering for previews and campaign creation
type Service interface {
	Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error)
	Create(ctx context.Context, req CreateRequest) (*campaign.Campaign, error)
	Get(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error)
	List(ctx context.Context, clientID string) ([]*campaign.Campaign, error)
}

// SnapshotProvider hands out the registry view to filter against
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*dnc.Snapshot, error)
}

// Metrics receives filter outcomes
type Metrics interface {
	RecordFilter(operation string, allowed, duplicates, blocked int, duration time.Duration)
	RecordFilterRejected(operation, reason string)
	RecordCampaignCreated(channel string)
}

type noopMetrics struct{}

func (noopMetrics) RecordFilter(string, int, int, int, time.Duration) {}
func (noopMetrics) RecordFilterRejected(string, string) {}
func (noopMetrics) RecordCampaignCreated(string) {}

// Config bounds a single filtering pass
type Config struct {
	MaxContactsPerRequest int
}

// PreviewRequest filters a contact list without creating anything
type PreviewRequest struct {
	ClientID string
	Contacts []dnc.Contact
}

// PreviewResponse carries the filter outcome for display
type PreviewResponse struct {
	Allowed           []dnc.Contact `json:"allowed"`
	OriginalCount     int           `json:"original_count"`
	DuplicatesRemoved int           `json:"duplicates_removed"`
	DNCBlocked        int           `json:"dnc_blocked"`
	EligibleCount     int           `json:"eligible_count"`
	Summary           string        `json:"summary"`
	RegistryVersion   int64         `json:"registry_version"`
}

// CreateRequest creates a draft campaign over the eligible contacts
type CreateRequest struct {
	Name      string
	ClientID  string
	Channel   string
	Contacts  []dnc.Contact
	CreatedBy string
}
