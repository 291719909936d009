package rest

import (
	"context"
	"net/http"

	campaignservice "github.com/davidleathers/outreach-compliance-backend/internal/service/campaign"
)

// CampaignHandler serves contact filtering and campaign endpoints
type CampaignHandler struct {
	*BaseHandler
	service campaignservice.Service
}

// NewCampaignHandler creates the campaign handler group
func NewCampaignHandler(base *BaseHandler, service campaignservice.Service) *CampaignHandler {
	return &CampaignHandler{BaseHandler: base, service: service}
}

func (h *CampaignHandler) routes() []route {
	return []route{
		{http.MethodPost, "/api/v1/contacts/filter", http.StatusOK, h.filterContacts},
		{http.MethodPost, "/api/v1/campaigns", http.StatusCreated, h.createCampaign},
		{http.MethodGet, "/api/v1/campaigns", http.StatusOK, h.listCampaigns},
		{http.MethodGet, "/api/v1/campaigns/{id}", http.StatusOK, h.getCampaign},
	}
}

func (h *CampaignHandler) filterContacts(ctx context.Context, r *http.Request) (interface{}, error) {
	var req FilterContactsRequest
	if err := h.ParseAndValidate(r, &req); err != nil {
		return nil, err
	}

	contacts, err := decodeContacts(req.Contacts)
	if err != nil {
		return nil, err
	}

	return h.service.Preview(ctx, campaignservice.PreviewRequest{
		ClientID: req.ClientID,
		Contacts: contacts,
	})
}

func (h *CampaignHandler) createCampaign(ctx context.Context, r *http.Request) (interface{}, error) {
	var req CreateCampaignRequest
	if err := h.ParseAndValidate(r, &req); err != nil {
		return nil, err
	}

	contacts, err := decodeContacts(req.Contacts)
	if err != nil {
		return nil, err
	}

	return h.service.Create(ctx, campaignservice.CreateRequest{
		Name:      req.Name,
		ClientID:  req.ClientID,
		Channel:   req.Channel,
		Contacts:  contacts,
		CreatedBy: actor(r, req.CreatedBy),
	})
}

func (h *CampaignHandler) listCampaigns(ctx context.Context, r *http.Request) (interface{}, error) {
	campaigns, err := h.service.List(ctx, r.URL.Query().Get("client_id"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"campaigns": campaigns,
		"count":     len(campaigns),
	}, nil
}

func (h *CampaignHandler) getCampaign(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return h.service.Get(ctx, id)
}
