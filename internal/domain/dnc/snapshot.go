package dnc

import (
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
	"github.com/google/uuid"
)

// Snapshot is a point-in-time, read-only copy of the registry. Filtering only
// ever reads a snapshot; the registry owner never hands out shared memory.
type Snapshot struct {
	Version   int64      `json:"version"`
	TakenAt   time.Time  `json:"taken_at"`
	Entries   []Entry    `json:"entries"`
	Overrides []Override `json:"overrides"`
}

// NewSnapshot deep-copies entries and overrides into a new snapshot
func NewSnapshot(version int64, takenAt time.Time, entries []*Entry, overrides []*Override) *Snapshot {
	s := &Snapshot{
		Version:   version,
		TakenAt:   takenAt,
		Entries:   make([]Entry, 0, len(entries)),
		Overrides: make([]Override, 0, len(overrides)),
	}
	for _, e := range entries {
		s.Entries = append(s.Entries, e.Clone())
	}
	for _, o := range overrides {
		s.Overrides = append(s.Overrides, o.Clone())
	}
	return s
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Version:   s.Version,
		TakenAt:   s.TakenAt,
		Entries:   make([]Entry, 0, len(s.Entries)),
		Overrides: make([]Override, 0, len(s.Overrides)),
	}
	for i := range s.Entries {
		c.Entries = append(c.Entries, s.Entries[i].Clone())
	}
	for i := range s.Overrides {
		c.Overrides = append(c.Overrides, s.Overrides[i].Clone())
	}
	return c
}

// overriddenAt returns the ids of entries with at least one override active at now
func (s *Snapshot) overriddenAt(now time.Time) map[uuid.UUID]bool {
	overridden := make(map[uuid.UUID]bool)
	for i := range s.Overrides {
		if s.Overrides[i].IsActiveAt(now) {
			overridden[s.Overrides[i].DNCID] = true
		}
	}
	return overridden
}

// EffectiveEntries returns the entries that can block at now for clientID:
// active, inside their date window, in scope, and not overridden.
func (s *Snapshot) EffectiveEntries(clientID string, now time.Time) []Entry {
	overridden := s.overriddenAt(now)

	effective := make([]Entry, 0, len(s.Entries))
	for i := range s.Entries {
		e := &s.Entries[i]
		if !e.IsActive || !e.InWindow(now) || overridden[e.ID] || !e.AppliesToClient(clientID) {
			continue
		}
		effective = append(effective, *e)
	}
	return effective
}

// IsEffective reports whether a single entry in the snapshot can block at now
func (s *Snapshot) IsEffective(id uuid.UUID, now time.Time) bool {
	overridden := s.overriddenAt(now)
	for i := range s.Entries {
		e := &s.Entries[i]
		if e.ID == id {
			return e.IsActive && e.InWindow(now) && !overridden[e.ID]
		}
	}
	return false
}

// Blocklist indexes effective entries by phone and by normalized email.
type Blocklist struct {
	phones map[string]uuid.UUID
	emails map[string]uuid.UUID
}

// Blocklist builds the effective blocklist for clientID at now
func (s *Snapshot) Blocklist(clientID string, now time.Time) *Blocklist {
	b := &Blocklist{
		phones: make(map[string]uuid.UUID),
		emails: make(map[string]uuid.UUID),
	}

	for _, e := range s.EffectiveEntries(clientID, now) {
		if e.Type.BlocksPhone() && !values.IsBlank(e.CustomerPhone) {
			key := values.NormalizePhone(e.CustomerPhone)
			if _, ok := b.phones[key]; !ok {
				b.phones[key] = e.ID
			}
		}
		if e.Type.BlocksEmail() && !values.IsBlank(e.CustomerEmail) {
			key := values.NormalizeEmail(e.CustomerEmail)
			if _, ok := b.emails[key]; !ok {
				b.emails[key] = e.ID
			}
		}
	}
	return b
}

// Match returns the id of the first effective entry blocking c
func (b *Blocklist) Match(c Contact) (uuid.UUID, bool) {
	if c.HasPhone() {
		if id, ok := b.phones[values.NormalizePhone(c.Phone)]; ok {
			return id, true
		}
	}
	if c.HasEmail() {
		if id, ok := b.emails[values.NormalizeEmail(c.Email)]; ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// Blocks reports whether any effective entry blocks c
func (b *Blocklist) Blocks(c Contact) bool {
	_, ok := b.Match(c)
	return ok
}

// Len returns the number of indexed phone and email keys
func (b *Blocklist) Len() int {
	return len(b.phones) + len(b.emails)
}
