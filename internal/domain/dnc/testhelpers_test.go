package dnc

import (
	"testing"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T {
	return &v
}

// rawEntry builds an entry without constructor validation, the way a snapshot
// decoded from storage would look.
func rawEntry(phone, email string, dncType values.DNCType) Entry {
	return Entry{
		ID:            uuid.New(),
		CustomerPhone: phone,
		CustomerEmail: email,
		Type:          dncType,
		Source:        values.CustomerSource(),
		IsActive:      true,
		EffectiveDate: date("2020-01-01"),
	}
}

func snapshotOf(entries []Entry, overrides ...Override) *Snapshot {
	if overrides == nil {
		overrides = []Override{}
	}
	return &Snapshot{Version: 1, TakenAt: testNow, Entries: entries, Overrides: overrides}
}

func newTestEntry(t *testing.T, p EntryParams) *Entry {
	t.Helper()
	e, err := NewEntry(p, testNow)
	require.NoError(t, err)
	return e
}
