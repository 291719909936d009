package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/campaign"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
)

func newCampaign(t *testing.T, name, clientID string, createdAt time.Time) *campaign.Campaign {
	t.Helper()
	result := &dnc.FilterResult{Allowed: []dnc.Contact{{Phone: "111"}}, OriginalCount: 1}
	c, err := campaign.NewCampaign(name, clientID, values.ChannelEmail, result, 1, "ops", createdAt)
	require.NoError(t, err)
	return c
}

func TestCampaignRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewCampaignRepository()
	c := newCampaign(t, "June renewals", "client-a", testNow)

	require.NoError(t, repo.Save(ctx, c))
	assert.ErrorIs(t, repo.Save(ctx, c), ErrDuplicateKey)
	assert.ErrorIs(t, repo.Save(ctx, nil), ErrInvalidInput)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "June renewals", got.Name)

	_, err = repo.GetByID(ctx, newCampaign(t, "other", "", testNow).ID)
	assert.True(t, IsNotFound(err))
}

func TestCampaignRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewCampaignRepository()

	older := newCampaign(t, "older", "client-a", testNow)
	newer := newCampaign(t, "newer", "client-a", testNow.Add(time.Hour))
	other := newCampaign(t, "other", "client-b", testNow)
	for _, c := range []*campaign.Campaign{older, newer, other} {
		require.NoError(t, repo.Save(ctx, c))
	}

	forA, err := repo.List(ctx, "client-a")
	require.NoError(t, err)
	require.Len(t, forA, 2)
	assert.Equal(t, newer.ID, forA[0].ID)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
