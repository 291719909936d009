package dnc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStaleSnapshot marks a snapshot that lost to a newer published version.
// Stores wrap it so callers can tell a superseded publish from an outage.
var ErrStaleSnapshot = errors.New("snapshot superseded by a newer version")

// IsStaleSnapshot reports whether err wraps ErrStaleSnapshot
func IsStaleSnapshot(err error) bool {
	return errors.Is(err, ErrStaleSnapshot)
}

// EntryFilter narrows ListEntries results
type EntryFilter struct {
	ClientID   string
	Source     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository stores the mutable registry owned by the registry manager.
// Implementations return copies; callers persist changes with Save*.
type Repository interface {
	SaveEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]*Entry, error)

	SaveOverride(ctx context.Context, override *Override) error
	GetOverride(ctx context.Context, id uuid.UUID) (*Override, error)
	ListOverrides(ctx context.Context, entryID uuid.UUID) ([]*Override, error)

	// Snapshot copies the whole registry atomically, stamped with the
	// current write version.
	Snapshot(ctx context.Context, takenAt time.Time) (*Snapshot, error)

	// Version returns the current write version
	Version() int64

	// Restore replaces the registry with snap when snap is newer than the
	// current version and adopts its version. It reports whether it did.
	Restore(ctx context.Context, snap *Snapshot) (bool, error)
}
