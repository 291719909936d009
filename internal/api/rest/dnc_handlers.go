package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	dncservice "github.com/davidleathers/outreach-compliance-backend/internal/service/dnc"
)

const defaultActor = "api"

// DNCHandler serves registry management endpoints
type DNCHandler struct {
	*BaseHandler
	service dncservice.Service
}

// NewDNCHandler creates the registry handler group
func NewDNCHandler(base *BaseHandler, service dncservice.Service) *DNCHandler {
	return &DNCHandler{BaseHandler: base, service: service}
}

func (h *DNCHandler) routes() []route {
	return []route{
		{http.MethodPost, "/api/v1/dnc/entries", http.StatusCreated, h.createEntry},
		{http.MethodGet, "/api/v1/dnc/entries", http.StatusOK, h.listEntries},
		{http.MethodGet, "/api/v1/dnc/entries/{id}", http.StatusOK, h.getEntry},
		{http.MethodDelete, "/api/v1/dnc/entries/{id}", http.StatusOK, h.deleteEntry},
		{http.MethodPatch, "/api/v1/dnc/entries/{id}/status", http.StatusOK, h.updateStatus},
		{http.MethodPost, "/api/v1/dnc/entries/{id}/overrides", http.StatusCreated, h.grantOverride},
		{http.MethodDelete, "/api/v1/dnc/overrides/{id}", http.StatusOK, h.revokeOverride},
		{http.MethodPost, "/api/v1/dnc/check", http.StatusOK, h.check},
		{http.MethodGet, "/api/v1/dnc/stats", http.StatusOK, h.stats},
	}
}

func (h *DNCHandler) createEntry(ctx context.Context, r *http.Request) (interface{}, error) {
	var req CreateDNCEntryRequest
	if err := h.ParseAndValidate(r, &req); err != nil {
		return nil, err
	}

	return h.service.AddEntry(ctx, dncservice.AddEntryRequest{
		ClientID:        req.ClientID,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		Type:            req.DNCType,
		Source:          req.Source,
		Reason:          req.Reason,
		EffectiveDate:   startOf(req.EffectiveDate),
		ExpiryDate:      endOf(req.ExpiryDate),
		OverrideAllowed: req.OverrideAllowed,
		CreatedBy:       actor(r, req.CreatedBy),
	})
}

func (h *DNCHandler) listEntries(ctx context.Context, r *http.Request) (interface{}, error) {
	q := r.URL.Query()
	req := dncservice.ListEntriesRequest{
		ClientID: q.Get("client_id"),
		Source:   q.Get("source"),
	}

	fields := make(map[string][]string)
	if v := q.Get("active_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields["active_only"] = []string{"must be a boolean"}
		}
		req.ActiveOnly = b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fields["limit"] = []string{"must be a positive integer"}
		}
		req.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields["offset"] = []string{"must be a non-negative integer"}
		}
		req.Offset = n
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Message: "invalid query parameters", Fields: fields}
	}

	return h.service.ListEntries(ctx, req)
}

func (h *DNCHandler) getEntry(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return h.service.GetEntry(ctx, id)
}

func (h *DNCHandler) deleteEntry(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	if err := h.service.RemoveEntry(ctx, id, actor(r, "")); err != nil {
		return nil, err
	}
	return map[string]interface{}{"id": id, "deleted": true}, nil
}

func (h *DNCHandler) updateStatus(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}

	var req UpdateDNCStatusRequest
	if err := h.ParseAndValidate(r, &req); err != nil {
		return nil, err
	}

	return h.service.SetActive(ctx, dncservice.SetActiveRequest{
		ID:        id,
		Active:    *req.IsActive,
		UpdatedBy: actor(r, req.UpdatedBy),
	})
}

func (h *DNCHandler) grantOverride(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}

	var req GrantOverrideRequest
	if err := h.ParseAndValidate(r, &req); err != nil {
		return nil, err
	}

	return h.service.GrantOverride(ctx, dncservice.GrantOverrideRequest{
		EntryID:   id,
		Type:      req.OverrideType,
		StartDate: startOf(req.StartDate),
		EndDate:   endOf(req.EndDate),
		Reason:    req.Reason,
		GrantedBy: actor(r, req.GrantedBy),
	})
}

func (h *DNCHandler) revokeOverride(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return h.service.RevokeOverride(ctx, id, actor(r, ""))
}

func (h *DNCHandler) check(ctx context.Context, r *http.Request) (interface{}, error) {
	var req CheckContactRequest
	if err := h.ParseAndValidate(r, &req); err != nil {
		return nil, err
	}
	return h.service.Check(ctx, dncservice.CheckRequest{
		ClientID: req.ClientID,
		Phone:    req.Phone,
		Email:    req.Email,
	})
}

func (h *DNCHandler) stats(ctx context.Context, _ *http.Request) (interface{}, error) {
	return h.service.Stats(ctx)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ValidationError{
			Message: "invalid id",
			Fields:  map[string][]string{"id": {"must be a valid UUID"}},
		}
	}
	return id, nil
}

// actor picks the body-supplied identity, then the X-Actor header
func actor(r *http.Request, fromBody string) string {
	if s := strings.TrimSpace(fromBody); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("X-Actor")); s != "" {
		return s
	}
	return defaultActor
}
