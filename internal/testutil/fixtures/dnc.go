package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
)

// EntryBuilder builds test DNC entries. Entries start active, phone-typed
// and effective from a year before the reference time.
type EntryBuilder struct {
	entry dnc.Entry
}

// NewEntryBuilder creates an EntryBuilder anchored at now
func NewEntryBuilder(now time.Time) *EntryBuilder {
	return &EntryBuilder{entry: dnc.Entry{
		ID:            uuid.New(),
		Type:          values.DNCTypePhone,
		Source:        values.CustomerSource(),
		IsActive:      true,
		EffectiveDate: now.AddDate(-1, 0, 0),
		CreatedAt:     now.AddDate(-1, 0, 0),
		UpdatedAt:     now.AddDate(-1, 0, 0),
	}}
}

// WithPhone blocks the given phone
func (b *EntryBuilder) WithPhone(phone string) *EntryBuilder {
	b.entry.CustomerPhone = phone
	return b
}

// WithEmail blocks the given email. The type widens to both when a phone is set.
func (b *EntryBuilder) WithEmail(email string) *EntryBuilder {
	b.entry.CustomerEmail = values.NormalizeEmail(email)
	if b.entry.CustomerPhone != "" {
		b.entry.Type = values.DNCTypeBoth
	} else {
		b.entry.Type = values.DNCTypeEmail
	}
	return b
}

// WithClient scopes the entry to one client
func (b *EntryBuilder) WithClient(clientID string) *EntryBuilder {
	b.entry.ClientID = clientID
	return b
}

// WithSource sets the registration source
func (b *EntryBuilder) WithSource(source values.DNCSource) *EntryBuilder {
	b.entry.Source = source
	return b
}

// Inactive disables the entry
func (b *EntryBuilder) Inactive() *EntryBuilder {
	b.entry.IsActive = false
	return b
}

// ExpiringAt sets the expiry date
func (b *EntryBuilder) ExpiringAt(t time.Time) *EntryBuilder {
	b.entry.ExpiryDate = &t
	return b
}

// Build returns the entry
func (b *EntryBuilder) Build() dnc.Entry {
	return b.entry.Clone()
}

// SnapshotBuilder assembles a registry snapshot from entries and overrides
type SnapshotBuilder struct {
	snap dnc.Snapshot
	now  time.Time
}

// NewSnapshotBuilder creates an empty snapshot taken at now
func NewSnapshotBuilder(version int64, now time.Time) *SnapshotBuilder {
	return &SnapshotBuilder{
		snap: dnc.Snapshot{
			Version:   version,
			TakenAt:   now,
			Entries:   []dnc.Entry{},
			Overrides: []dnc.Override{},
		},
		now: now,
	}
}

// WithEntry adds a built entry
func (b *SnapshotBuilder) WithEntry(e dnc.Entry) *SnapshotBuilder {
	b.snap.Entries = append(b.snap.Entries, e)
	return b
}

// WithPhones adds one active phone entry per number
func (b *SnapshotBuilder) WithPhones(phones ...string) *SnapshotBuilder {
	for _, p := range phones {
		b.WithEntry(NewEntryBuilder(b.now).WithPhone(p).Build())
	}
	return b
}

// WithOverride adds an override
func (b *SnapshotBuilder) WithOverride(o dnc.Override) *SnapshotBuilder {
	b.snap.Overrides = append(b.snap.Overrides, o)
	return b
}

// Build returns a copy of the snapshot
func (b *SnapshotBuilder) Build() *dnc.Snapshot {
	return b.snap.Clone()
}

// PhoneContacts returns one contact per phone, in order
func PhoneContacts(phones ...string) []dnc.Contact {
	contacts := make([]dnc.Contact, 0, len(phones))
	for _, p := range phones {
		contacts = append(contacts, dnc.Contact{Phone: p})
	}
	return contacts
}
