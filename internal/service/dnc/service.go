package dnc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Ensure service implements the interface
var _ Service = (*service)(nil)

// service owns the mutable registry. Every mutation bumps the repository
// version; readers only ever receive deep-copied snapshots.
type service struct {
	logger  *zap.Logger
	config  *Config
	repo    dnc.Repository
	clock   dnc.Clock
	metrics Metrics
	tracer  trace.Tracer

	publisher SnapshotPublisher
	source    SnapshotSource
	breaker   *circuitBreaker

	// writeMu serialises read-modify-write sequences against the repository
	writeMu sync.Mutex
}

// Option customises the service
type Option func(*service)

// WithPublisher distributes snapshots after every mutation
func WithPublisher(p SnapshotPublisher) Option {
	return func(s *service) { s.publisher = p }
}

// WithSnapshotSource lets Sync adopt snapshots published elsewhere
func WithSnapshotSource(src SnapshotSource) Option {
	return func(s *service) { s.source = src }
}

// WithMetrics reports registry state
func WithMetrics(m Metrics) Option {
	return func(s *service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock replaces the wall clock
func WithClock(c dnc.Clock) Option {
	return func(s *service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithConfig replaces the default settings
func WithConfig(c *Config) Option {
	return func(s *service) {
		if c != nil {
			s.config = c
		}
	}
}

// NewService creates the registry manager
func NewService(logger *zap.Logger, repo dnc.Repository, opts ...Option) (Service, error) {
	if logger == nil {
		return nil, errors.NewValidationError("INVALID_LOGGER", "logger cannot be nil")
	}
	if repo == nil {
		return nil, errors.NewValidationError("INVALID_REPOSITORY", "dnc repository cannot be nil")
	}

	s := &service{
		logger:  logger.Named("dnc_registry"),
		config:  defaultConfig(),
		repo:    repo,
		clock:   dnc.RealClock{},
		metrics: noopMetrics{},
		tracer:  otel.Tracer("service.dnc"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = newCircuitBreaker(s.config.Breaker, s.clock)
	s.breaker.onStateChange = func(from, to CircuitState) {
		s.logger.Warn("snapshot publisher circuit changed state",
			zap.String("from", string(from)),
			zap.String("to", string(to)))
	}

	return s, nil
}

// AddEntry validates and stores a new active entry
func (s *service) AddEntry(ctx context.Context, req AddEntryRequest) (*EntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dnc.AddEntry",
		trace.WithAttributes(
			attribute.String("dnc.type", req.Type),
			attribute.String("dnc.source", req.Source),
		))
	defer span.End()

	now := s.clock.Now()
	entry, err := dnc.NewEntry(dnc.EntryParams{
		ClientID:        req.ClientID,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		Type:            req.Type,
		Source:          req.Source,
		Reason:          req.Reason,
		EffectiveDate:   req.EffectiveDate,
		ExpiryDate:      req.ExpiryDate,
		OverrideAllowed: req.OverrideAllowed,
		CreatedBy:       req.CreatedBy,
	}, now)
	if err != nil {
		span.SetStatus(codes.Error, "invalid entry")
		return nil, err
	}

	s.writeMu.Lock()
	err = s.repo.SaveEntry(ctx, entry)
	s.writeMu.Unlock()
	if err != nil {
		return nil, s.storageError(span, "failed to save dnc entry", err)
	}

	s.logger.Info("dnc entry added",
		zap.String("entry_id", entry.ID.String()),
		zap.String("client_id", entry.ClientID),
		zap.String("type", entry.Type.String()),
		zap.String("source", entry.Source.String()))

	s.publish(ctx)

	return &EntryResponse{
		Entry:     *entry,
		Overrides: []dnc.Override{},
		Effective: entry.IsEffective(now, nil),
	}, nil
}

// GetEntry returns an entry with its overrides
func (s *service) GetEntry(ctx context.Context, id uuid.UUID) (*EntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dnc.GetEntry")
	defer span.End()

	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return nil, s.lookupError(span, "dnc entry", err)
	}
	return s.entryResponse(ctx, entry, s.clock.Now())
}

// ListEntries returns entries matching the request, newest first
func (s *service) ListEntries(ctx context.Context, req ListEntriesRequest) (*ListEntriesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dnc.ListEntries")
	defer span.End()

	if req.Limit < 0 || req.Offset < 0 {
		return nil, errors.NewValidationError("INVALID_PAGINATION", "limit and offset cannot be negative")
	}

	entries, err := s.repo.ListEntries(ctx, dnc.EntryFilter{
		ClientID:   req.ClientID,
		Source:     req.Source,
		ActiveOnly: req.ActiveOnly,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return nil, s.storageError(span, "failed to list dnc entries", err)
	}

	now := s.clock.Now()
	resp := &ListEntriesResponse{Entries: make([]*EntryResponse, 0, len(entries))}
	for _, e := range entries {
		er, err := s.entryResponse(ctx, e, now)
		if err != nil {
			return nil, err
		}
		resp.Entries = append(resp.Entries, er)
	}
	resp.Count = len(resp.Entries)

	span.SetAttributes(attribute.Int("dnc.count", resp.Count))
	return resp, nil
}

// SetActive toggles an entry
func (s *service) SetActive(ctx context.Context, req SetActiveRequest) (*EntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dnc.SetActive",
		trace.WithAttributes(attribute.Bool("dnc.active", req.Active)))
	defer span.End()

	now := s.clock.Now()

	s.writeMu.Lock()
	entry, err := s.repo.GetEntry(ctx, req.ID)
	if err != nil {
		s.writeMu.Unlock()
		return nil, s.lookupError(span, "dnc entry", err)
	}
	entry.SetActive(req.Active, req.UpdatedBy, now)
	err = s.repo.SaveEntry(ctx, entry)
	s.writeMu.Unlock()
	if err != nil {
		return nil, s.storageError(span, "failed to update dnc entry", err)
	}

	s.logger.Info("dnc entry status changed",
		zap.String("entry_id", entry.ID.String()),
		zap.Bool("active", req.Active),
		zap.String("updated_by", req.UpdatedBy))

	s.publish(ctx)
	return s.entryResponse(ctx, entry, now)
}

// RemoveEntry deletes an entry and its overrides
func (s *service) RemoveEntry(ctx context.Context, id uuid.UUID, removedBy string) error {
	ctx, span := s.tracer.Start(ctx, "dnc.RemoveEntry")
	defer span.End()

	s.writeMu.Lock()
	err := s.repo.DeleteEntry(ctx, id)
	s.writeMu.Unlock()
	if err != nil {
		return s.lookupError(span, "dnc entry", err)
	}

	s.logger.Info("dnc entry removed",
		zap.String("entry_id", id.String()),
		zap.String("removed_by", removedBy))

	s.publish(ctx)
	return nil
}

// GrantOverride suspends an entry. Entries registered without override
// permission reject every grant.
func (s *service) GrantOverride(ctx context.Context, req GrantOverrideRequest) (*OverrideResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dnc.GrantOverride",
		trace.WithAttributes(attribute.String("dnc.override_type", req.Type)))
	defer span.End()

	now := s.clock.Now()
	override, err := dnc.NewOverride(req.EntryID, req.Type, req.StartDate, req.EndDate, req.Reason, req.GrantedBy, now)
	if err != nil {
		span.SetStatus(codes.Error, "invalid override")
		return nil, err
	}

	s.writeMu.Lock()
	entry, err := s.repo.GetEntry(ctx, req.EntryID)
	if err != nil {
		s.writeMu.Unlock()
		return nil, s.lookupError(span, "dnc entry", err)
	}
	if err := entry.RecordOverride(now, req.GrantedBy); err != nil {
		s.writeMu.Unlock()
		s.logger.Warn("override rejected",
			zap.String("entry_id", entry.ID.String()),
			zap.String("granted_by", req.GrantedBy))
		span.SetStatus(codes.Error, "override not allowed")
		return nil, err
	}
	if err := s.repo.SaveOverride(ctx, override); err != nil {
		s.writeMu.Unlock()
		return nil, s.storageError(span, "failed to save override", err)
	}
	err = s.repo.SaveEntry(ctx, entry)
	s.writeMu.Unlock()
	if err != nil {
		return nil, s.storageError(span, "failed to update dnc entry", err)
	}

	s.logger.Info("override granted",
		zap.String("override_id", override.ID.String()),
		zap.String("entry_id", entry.ID.String()),
		zap.String("type", override.Type.String()),
		zap.String("granted_by", req.GrantedBy))

	s.publish(ctx)
	return &OverrideResponse{Override: *override, Active: override.IsActiveAt(now)}, nil
}

// RevokeOverride ends an override immediately
func (s *service) RevokeOverride(ctx context.Context, id uuid.UUID, revokedBy string) (*OverrideResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dnc.RevokeOverride")
	defer span.End()

	now := s.clock.Now()

	s.writeMu.Lock()
	override, err := s.repo.GetOverride(ctx, id)
	if err != nil {
		s.writeMu.Unlock()
		return nil, s.lookupError(span, "override", err)
	}
	if override.RevokedAt != nil {
		s.writeMu.Unlock()
		return nil, errors.NewConflictError("override already revoked")
	}
	override.Revoke(now)
	err = s.repo.SaveOverride(ctx, override)
	s.writeMu.Unlock()
	if err != nil {
		return nil, s.storageError(span, "failed to revoke override", err)
	}

	s.logger.Info("override revoked",
		zap.String("override_id", id.String()),
		zap.String("entry_id", override.DNCID.String()),
		zap.String("revoked_by", revokedBy))

	s.publish(ctx)
	return &OverrideResponse{Override: *override, Active: false}, nil
}

// Snapshot returns a deep copy of the registry. Later mutations are not
// visible through the returned value.
func (s *service) Snapshot(ctx context.Context) (*dnc.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "dnc.Snapshot")
	defer span.End()

	snap, err := s.repo.Snapshot(ctx, s.clock.Now())
	if err != nil {
		return nil, s.storageError(span, "failed to snapshot dnc registry", err)
	}

	span.SetAttributes(
		attribute.Int64("dnc.version", snap.Version),
		attribute.Int("dnc.entries", len(snap.Entries)),
	)
	return snap, nil
}

// Check reports whether one contact is blocked for the client right now
func (s *service) Check(ctx context.Context, req CheckRequest) (*CheckResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dnc.Check")
	defer span.End()

	contact := dnc.Contact{Phone: req.Phone, Email: req.Email}
	if !contact.HasPhone() && !contact.HasEmail() {
		return nil, errors.NewValidationError("MISSING_CONTACT_KEY", "phone or email is required")
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	resp := &CheckResponse{
		RegistryVersion: snap.Version,
		CheckedAt:       snap.TakenAt,
	}
	if id, ok := snap.Blocklist(req.ClientID, snap.TakenAt).Match(contact); ok {
		resp.Blocked = true
		resp.EntryID = &id
	}

	span.SetAttributes(attribute.Bool("dnc.blocked", resp.Blocked))
	return resp, nil
}

// Stats summarises the current registry
func (s *service) Stats(ctx context.Context) (*RegistryStats, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.statsOf(snap), nil
}

func (s *service) statsOf(snap *dnc.Snapshot) *RegistryStats {
	now := snap.TakenAt
	effective := snap.EffectiveEntries("", now)
	stats := &RegistryStats{
		Version:          snap.Version,
		TakenAt:          now,
		TotalEntries:     len(snap.Entries),
		EffectiveEntries: len(effective),
		Overrides:        len(snap.Overrides),
		BySource:         make(map[string]int),
	}
	for i := range effective {
		stats.BySource[effective[i].Source.String()]++
		if effective[i].Source.IsRegulatory() {
			stats.RegulatoryEntries++
		}
	}
	for i := range snap.Entries {
		if snap.Entries[i].IsActive {
			stats.ActiveEntries++
		}
	}
	for i := range snap.Overrides {
		if snap.Overrides[i].IsActiveAt(now) {
			stats.ActiveOverrides++
		}
	}
	if s.publisher != nil {
		stats.PublisherState = string(s.breaker.State())
	}
	return stats
}

// publish pushes the latest snapshot to the shared store. Failures are
// logged and counted; the local registry stays authoritative.
func (s *service) publish(ctx context.Context) {
	snap, err := s.repo.Snapshot(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to snapshot registry after mutation", zap.Error(err))
		return
	}
	s.metrics.SetRegistryState(len(snap.Entries), snap.Version)

	if s.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PublishTimeout)
	defer cancel()

	// Superseded snapshots do not count against the breaker
	var stale error
	err = s.breaker.Execute(func() error {
		err := s.publisher.Publish(pubCtx, snap)
		if dnc.IsStaleSnapshot(err) {
			stale = err
			return nil
		}
		return err
	})
	if stale != nil {
		err = stale
	}
	s.metrics.RecordSnapshotPublish(err)

	switch {
	case stale != nil:
		s.logger.Info("dnc snapshot superseded in shared store",
			zap.Int64("version", snap.Version),
			zap.Error(stale))
	case err != nil:
		s.logger.Warn("failed to publish dnc snapshot",
			zap.Int64("version", snap.Version),
			zap.Error(err))
	}
}

// Sync adopts the shared snapshot when it is newer than the local registry.
// It reports whether the local registry was replaced.
func (s *service) Sync(ctx context.Context) (bool, error) {
	if s.source == nil {
		return false, nil
	}

	ctx, span := s.tracer.Start(ctx, "dnc.Sync")
	defer span.End()

	remote, err := s.source.Version(ctx)
	if err != nil {
		return false, s.storageError(span, "failed to read shared snapshot version", err)
	}
	local := s.repo.Version()
	span.SetAttributes(
		attribute.Int64("dnc.local_version", local),
		attribute.Int64("dnc.remote_version", remote),
	)
	if remote <= local {
		return false, nil
	}

	snap, err := s.source.Latest(ctx)
	if err != nil {
		return false, s.storageError(span, "failed to read shared snapshot", err)
	}

	s.writeMu.Lock()
	restored, err := s.repo.Restore(ctx, snap)
	s.writeMu.Unlock()
	if err != nil {
		return false, s.storageError(span, "failed to restore dnc registry", err)
	}
	if !restored {
		return false, nil
	}

	s.metrics.SetRegistryState(len(snap.Entries), snap.Version)
	s.logger.Info("dnc registry synced from shared store",
		zap.Int64("from_version", local),
		zap.Int64("to_version", snap.Version),
		zap.Int("entries", len(snap.Entries)),
		zap.Int("overrides", len(snap.Overrides)))
	return true, nil
}

// RunSync calls Sync every interval until ctx is done
func (s *service) RunSync(ctx context.Context, interval time.Duration) {
	if s.source == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil {
				s.logger.Warn("dnc registry sync failed", zap.Error(err))
			}
		}
	}
}

func (s *service) entryResponse(ctx context.Context, entry *dnc.Entry, now time.Time) (*EntryResponse, error) {
	ptrs, err := s.repo.ListOverrides(ctx, entry.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load overrides").WithCause(err)
	}

	overrides := make([]dnc.Override, 0, len(ptrs))
	for _, o := range ptrs {
		overrides = append(overrides, *o)
	}

	return &EntryResponse{
		Entry:     *entry,
		Overrides: overrides,
		Effective: entry.IsEffective(now, overrides),
	}, nil
}

func (s *service) lookupError(span trace.Span, resource string, err error) error {
	if errors.IsNotFound(err) {
		span.SetStatus(codes.Error, resource+" not found")
		return errors.NewNotFoundError(resource).WithCause(err)
	}
	return s.storageError(span, fmt.Sprintf("failed to load %s", resource), err)
}

func (s *service) storageError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.logger.Error(msg, zap.Error(err))
	return errors.NewInternalError(msg).WithCause(err)
}
