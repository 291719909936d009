package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/campaign"
)

var _ campaign.Repository = (*CampaignRepository)(nil)

// CampaignRepository is an in-memory campaign store
type CampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[uuid.UUID]*campaign.Campaign
}

// NewCampaignRepository creates an empty campaign store
func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{
		campaigns: make(map[uuid.UUID]*campaign.Campaign),
	}
}

// Save stores a campaign. Campaigns are write-once.
func (r *CampaignRepository) Save(ctx context.Context, c *campaign.Campaign) error {
	if c == nil || c.ID == uuid.Nil {
		return fmt.Errorf("save campaign: %w", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.campaigns[c.ID]; exists {
		return fmt.Errorf("campaign %s: %w", c.ID, ErrDuplicateKey)
	}
	stored := *c
	r.campaigns[c.ID] = &stored
	return nil
}

// GetByID returns a copy of the campaign
func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

// List returns campaigns newest first, optionally for one client
func (r *CampaignRepository) List(ctx context.Context, clientID string) ([]*campaign.Campaign, error) {
	r.mu.RLock()
	result := make([]*campaign.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		if clientID != "" && c.ClientID != clientID {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
