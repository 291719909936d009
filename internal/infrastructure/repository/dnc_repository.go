package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
)

var _ dnc.Repository = (*DNCRepository)(nil)

// DNCRepository is an in-memory registry store. Every write bumps the version
// so snapshots can be told apart; reads and snapshots hand out copies only.
type DNCRepository struct {
	mu        sync.RWMutex
	version   int64
	entries   map[uuid.UUID]*dnc.Entry
	overrides map[uuid.UUID]*dnc.Override
}

// NewDNCRepository creates an empty registry store
func NewDNCRepository() *DNCRepository {
	return &DNCRepository{
		entries:   make(map[uuid.UUID]*dnc.Entry),
		overrides: make(map[uuid.UUID]*dnc.Override),
	}
}

// SaveEntry creates or replaces an entry
func (r *DNCRepository) SaveEntry(ctx context.Context, entry *dnc.Entry) error {
	if entry == nil || entry.ID == uuid.Nil {
		return fmt.Errorf("save dnc entry: %w", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c := entry.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[c.ID] = &c
	r.version++
	return nil
}

// GetEntry returns a copy of the entry
func (r *DNCRepository) GetEntry(ctx context.Context, id uuid.UUID) (*dnc.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("dnc entry %s: %w", id, ErrNotFound)
	}
	c := e.Clone()
	return &c, nil
}

// DeleteEntry removes an entry together with its overrides
func (r *DNCRepository) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("dnc entry %s: %w", id, ErrNotFound)
	}
	delete(r.entries, id)
	for oid, o := range r.overrides {
		if o.DNCID == id {
			delete(r.overrides, oid)
		}
	}
	r.version++
	return nil
}

// ListEntries returns matching entries ordered by creation time
func (r *DNCRepository) ListEntries(ctx context.Context, filter dnc.EntryFilter) ([]*dnc.Entry, error) {
	r.mu.RLock()
	matched := make([]*dnc.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if filter.ClientID != "" && e.ClientID != filter.ClientID {
			continue
		}
		if filter.Source != "" && e.Source.String() != filter.Source {
			continue
		}
		if filter.ActiveOnly && !e.IsActive {
			continue
		}
		c := e.Clone()
		matched = append(matched, &c)
	}
	r.mu.RUnlock()

	sortEntries(matched)
	return paginate(matched, filter.Offset, filter.Limit), nil
}

// SaveOverride creates or replaces an override. The entry must exist.
func (r *DNCRepository) SaveOverride(ctx context.Context, override *dnc.Override) error {
	if override == nil || override.ID == uuid.Nil {
		return fmt.Errorf("save override: %w", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c := override.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[c.DNCID]; !ok {
		return fmt.Errorf("dnc entry %s: %w", c.DNCID, ErrNotFound)
	}
	r.overrides[c.ID] = &c
	r.version++
	return nil
}

// GetOverride returns a copy of the override
func (r *DNCRepository) GetOverride(ctx context.Context, id uuid.UUID) (*dnc.Override, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.overrides[id]
	if !ok {
		return nil, fmt.Errorf("override %s: %w", id, ErrNotFound)
	}
	c := o.Clone()
	return &c, nil
}

// ListOverrides returns the overrides of one entry, oldest grant first
func (r *DNCRepository) ListOverrides(ctx context.Context, entryID uuid.UUID) ([]*dnc.Override, error) {
	r.mu.RLock()
	result := make([]*dnc.Override, 0)
	for _, o := range r.overrides {
		if o.DNCID != entryID {
			continue
		}
		c := o.Clone()
		result = append(result, &c)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].GrantedAt.Before(result[j].GrantedAt)
	})
	return result, nil
}

// Snapshot copies the registry under a single read lock
func (r *DNCRepository) Snapshot(ctx context.Context, takenAt time.Time) (*dnc.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*dnc.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sortEntries(entries)

	overrides := make([]*dnc.Override, 0, len(r.overrides))
	for _, o := range r.overrides {
		overrides = append(overrides, o)
	}
	sort.Slice(overrides, func(i, j int) bool {
		return overrides[i].GrantedAt.Before(overrides[j].GrantedAt)
	})

	return dnc.NewSnapshot(r.version, takenAt, entries, overrides), nil
}

// Version returns the current write version
func (r *DNCRepository) Version() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Restore swaps in the entries and overrides of a newer snapshot, typically
// one published by another replica or before a restart
func (r *DNCRepository) Restore(ctx context.Context, snap *dnc.Snapshot) (bool, error) {
	if snap == nil {
		return false, fmt.Errorf("restore dnc registry: %w", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	entries := make(map[uuid.UUID]*dnc.Entry, len(snap.Entries))
	for i := range snap.Entries {
		c := snap.Entries[i].Clone()
		entries[c.ID] = &c
	}
	overrides := make(map[uuid.UUID]*dnc.Override, len(snap.Overrides))
	for i := range snap.Overrides {
		c := snap.Overrides[i].Clone()
		overrides[c.ID] = &c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if snap.Version <= r.version {
		return false, nil
	}
	r.entries = entries
	r.overrides = overrides
	r.version = snap.Version
	return true, nil
}

func sortEntries(entries []*dnc.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID.String() < entries[j].ID.String()
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
