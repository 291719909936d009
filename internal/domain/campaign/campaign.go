package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
	"github.com/google/uuid"
)

// Status of a campaign. Campaigns are created as drafts; sending is handled elsewhere.
type Status string

const (
	StatusDraft Status = "draft"
)

// Campaign is an outreach campaign whose recipient list passed compliance filtering.
type Campaign struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	ClientID string         `json:"client_id"`
	Channel  values.Channel `json:"channel"`
	Status   Status         `json:"status"`

	TargetCount       int    `json:"target_count"`
	OriginalCount     int    `json:"original_count"`
	DuplicatesRemoved int    `json:"duplicates_removed"`
	DNCBlocked        int    `json:"dnc_blocked"`
	Summary           string `json:"summary"`

	// RegistryVersion is the DNC snapshot version the recipients were checked against
	RegistryVersion int64         `json:"registry_version"`
	Recipients      []dnc.Contact `json:"recipients"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCampaign builds a draft campaign from a filter result
func NewCampaign(name, clientID string, channel values.Channel, result *dnc.FilterResult, registryVersion int64, createdBy string, now time.Time) (*Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("INVALID_NAME", "campaign name cannot be empty")
	}
	if result == nil {
		return nil, errors.NewValidationError("MISSING_FILTER_RESULT", "campaign requires a filter result")
	}

	return &Campaign{
		ID:                uuid.New(),
		Name:              name,
		ClientID:          clientID,
		Channel:           channel,
		Status:            StatusDraft,
		TargetCount:       len(result.Allowed),
		OriginalCount:     result.OriginalCount,
		DuplicatesRemoved: result.DuplicatesRemoved,
		DNCBlocked:        result.DNCBlocked,
		Summary:           result.Summary(),
		RegistryVersion:   registryVersion,
		Recipients:        result.Allowed,
		CreatedBy:         createdBy,
		CreatedAt:         now,
	}, nil
}

// Repository stores campaigns
type Repository interface {
	Save(ctx context.Context, c *Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	List(ctx context.Context, clientID string) ([]*Campaign, error)
}
