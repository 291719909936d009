package dnc

import (
	"context"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/google/uuid"
)

// Service manages the DNC registry and hands out immutable snapshots of it
type Service interface {
	// Entry management
	AddEntry(ctx context.Context, req AddEntryRequest) (*EntryResponse, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*EntryResponse, error)
	ListEntries(ctx context.Context, req ListEntriesRequest) (*ListEntriesResponse, error)
	SetActive(ctx context.Context, req SetActiveRequest) (*EntryResponse, error)
	RemoveEntry(ctx context.Context, id uuid.UUID, removedBy string) error

	// Overrides
	GrantOverride(ctx context.Context, req GrantOverrideRequest) (*OverrideResponse, error)
	RevokeOverride(ctx context.Context, id uuid.UUID, revokedBy string) (*OverrideResponse, error)

	// Reads over a point-in-time view
	Snapshot(ctx context.Context) (*dnc.Snapshot, error)
	Check(ctx context.Context, req CheckRequest) (*CheckResponse, error)
	Stats(ctx context.Context) (*RegistryStats, error)

	// Replication through the shared snapshot store
	Sync(ctx context.Context) (bool, error)
	RunSync(ctx context.Context, interval time.Duration)
}

// SnapshotProvider is the read side consumed by filtering callers
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*dnc.Snapshot, error)
}

// SnapshotPublisher distributes snapshots to other replicas
type SnapshotPublisher interface {
	Publish(ctx context.Context, snap *dnc.Snapshot) error
}

// SnapshotSource reads snapshots published by any replica
type SnapshotSource interface {
	Version(ctx context.Context) (int64, error)
	Latest(ctx context.Context) (*dnc.Snapshot, error)
}

// Metrics receives registry state after each mutation
type Metrics interface {
	SetRegistryState(entries int, version int64)
	RecordSnapshotPublish(err error)
}

type noopMetrics struct{}

func (noopMetrics) SetRegistryState(int, int64) {}
func (noopMetrics) RecordSnapshotPublish(error) {}
