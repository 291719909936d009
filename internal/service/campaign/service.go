package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/campaign"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	operationPreview = "preview"
	operationCreate  = "campaign"
)

// Ensure service implements the interface
var _ Service = (*service)(nil)

type service struct {
	logger    *zap.Logger
	config    Config
	snapshots SnapshotProvider
	repo      campaign.Repository
	filter    *dnc.ComplianceFilter
	clock     dnc.Clock
	metrics   Metrics
	tracer    trace.Tracer
}

// NewService wires the campaign workflow. A nil clock uses wall time and nil
// metrics are discarded.
func NewService(
	logger *zap.Logger,
	config Config,
	snapshots SnapshotProvider,
	repo campaign.Repository,
	clock dnc.Clock,
	metrics Metrics,
) (Service, error) {
	if logger == nil {
		return nil, errors.NewValidationError("INVALID_LOGGER", "logger cannot be nil")
	}
	if snapshots == nil {
		return nil, errors.NewValidationError("INVALID_SNAPSHOT_PROVIDER", "snapshot provider cannot be nil")
	}
	if repo == nil {
		return nil, errors.NewValidationError("INVALID_REPOSITORY", "campaign repository cannot be nil")
	}
	if clock == nil {
		clock = dnc.RealClock{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &service{
		logger:    logger.Named("campaign"),
		config:    config,
		snapshots: snapshots,
		repo:      repo,
		filter:    dnc.NewComplianceFilter(clock),
		clock:     clock,
		metrics:   metrics,
		tracer:    otel.Tracer("service.campaign"),
	}, nil
}

// Preview filters the contacts against the current registry
func (s *service) Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "campaign.Preview",
		trace.WithAttributes(attribute.String("client.id", req.ClientID)))
	defer span.End()

	result, version, err := s.runFilter(ctx, span, operationPreview, req.ClientID, req.Contacts)
	if err != nil {
		return nil, err
	}

	return &PreviewResponse{
		Allowed:           result.Allowed,
		OriginalCount:     result.OriginalCount,
		DuplicatesRemoved: result.DuplicatesRemoved,
		DNCBlocked:        result.DNCBlocked,
		EligibleCount:     len(result.Allowed),
		Summary:           result.Summary(),
		RegistryVersion:   version,
	}, nil
}

// Create filters the contacts and stores a draft campaign over the eligible
// ones. A valid list that filters down to nothing is rejected as a business
// error, distinct from an unprocessable list.
func (s *service) Create(ctx context.Context, req CreateRequest) (*campaign.Campaign, error) {
	ctx, span := s.tracer.Start(ctx, "campaign.Create",
		trace.WithAttributes(
			attribute.String("client.id", req.ClientID),
			attribute.String("campaign.channel", req.Channel),
		))
	defer span.End()

	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.NewValidationError("INVALID_NAME", "campaign name cannot be empty")
	}

	channel, err := values.ParseChannel(req.Channel)
	if err != nil {
		span.SetStatus(codes.Error, "invalid channel")
		return nil, err
	}

	result, version, err := s.runFilter(ctx, span, operationCreate, req.ClientID, req.Contacts)
	if err != nil {
		return nil, err
	}

	if len(result.Allowed) == 0 {
		s.metrics.RecordFilterRejected(operationCreate, "no_eligible_contacts")
		s.logger.Info("campaign rejected, no eligible contacts",
			zap.String("client_id", req.ClientID),
			zap.Int("original_count", result.OriginalCount),
			zap.Int("duplicates_removed", result.DuplicatesRemoved),
			zap.Int("dnc_blocked", result.DNCBlocked))
		span.SetStatus(codes.Error, "no eligible contacts")

		return nil, errors.NewBusinessError("NO_ELIGIBLE_CONTACTS", "all contacts blocked or duplicate").
			WithDetails(map[string]interface{}{
				"original_count":     result.OriginalCount,
				"duplicates_removed": result.DuplicatesRemoved,
				"dnc_blocked":        result.DNCBlocked,
				"summary":            result.Summary(),
			})
	}

	c, err := campaign.NewCampaign(req.Name, req.ClientID, channel, result, version, req.CreatedBy, s.clock.Now())
	if err != nil {
		span.SetStatus(codes.Error, "invalid campaign")
		return nil, err
	}

	if err := s.repo.Save(ctx, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save campaign")
		s.logger.Error("failed to save campaign", zap.Error(err))
		return nil, errors.NewInternalError("failed to save campaign").WithCause(err)
	}

	s.metrics.RecordCampaignCreated(channel.String())
	s.logger.Info("campaign created",
		zap.String("campaign_id", c.ID.String()),
		zap.String("client_id", c.ClientID),
		zap.String("channel", channel.String()),
		zap.Int("target_count", c.TargetCount),
		zap.Int64("registry_version", version))

	span.SetAttributes(attribute.String("campaign.id", c.ID.String()))
	return c, nil
}

// Get returns a stored campaign
func (s *service) Get(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("campaign").WithCause(err)
		}
		return nil, errors.NewInternalError("failed to load campaign").WithCause(err)
	}
	return c, nil
}

// List returns campaigns for a client, newest first. An empty client id lists all.
func (s *service) List(ctx context.Context, clientID string) ([]*campaign.Campaign, error) {
	campaigns, err := s.repo.List(ctx, clientID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list campaigns").WithCause(err)
	}
	return campaigns, nil
}

// runFilter takes one snapshot and filters against it. Every failure to
// produce a result surfaces as an unprocessable contact list.
func (s *service) runFilter(ctx context.Context, span trace.Span, operation, clientID string, contacts []dnc.Contact) (*dnc.FilterResult, int64, error) {
	if contacts == nil {
		s.metrics.RecordFilterRejected(operation, "invalid_contact_list")
		span.SetStatus(codes.Error, "contacts missing")
		return nil, 0, invalidContactList(dnc.ErrInvalidContactList)
	}
	if limit := s.config.MaxContactsPerRequest; limit > 0 && len(contacts) > limit {
		s.metrics.RecordFilterRejected(operation, "too_many_contacts")
		span.SetStatus(codes.Error, "contact list too large")
		return nil, 0, errors.NewValidationError("CONTACT_LIST_TOO_LARGE",
			fmt.Sprintf("contact list has %d entries, max %d", len(contacts), limit))
	}

	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot unavailable")
		return nil, 0, err
	}
	if snap == nil {
		span.SetStatus(codes.Error, "snapshot unavailable")
		return nil, 0, errors.NewInternalError("dnc registry unavailable").WithCause(dnc.ErrInvalidRegistry)
	}

	start := time.Now()
	result, err := s.filter.Filter(contacts, clientID, snap)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.RecordFilterRejected(operation, "invalid_contact_list")
		span.RecordError(err)
		span.SetStatus(codes.Error, "filter failed")
		s.logger.Warn("could not process contact list",
			zap.String("client_id", clientID),
			zap.Error(err))
		return nil, 0, invalidContactList(err)
	}

	s.metrics.RecordFilter(operation, len(result.Allowed), result.DuplicatesRemoved, result.DNCBlocked, elapsed)
	span.SetAttributes(
		attribute.Int64("dnc.version", snap.Version),
		attribute.Int("filter.original", result.OriginalCount),
		attribute.Int("filter.allowed", len(result.Allowed)),
		attribute.Int("filter.duplicates", result.DuplicatesRemoved),
		attribute.Int("filter.blocked", result.DNCBlocked),
	)
	s.logger.Debug("contacts filtered",
		zap.String("operation", operation),
		zap.String("client_id", clientID),
		zap.String("summary", result.Summary()),
		zap.Duration("elapsed", elapsed))

	return result, snap.Version, nil
}

func invalidContactList(cause error) error {
	return errors.NewInvalidArgumentError("INVALID_CONTACT_LIST", "could not process contact list").WithCause(cause)
}
