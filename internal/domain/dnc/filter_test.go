package dnc

import (
	"testing"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Scenarios(t *testing.T) {
	inactive := rawEntry("111", "", values.DNCTypePhone)
	inactive.IsActive = false

	tests := []struct {
		name           string
		contacts       []Contact
		entries        []Entry
		wantAllowed    []Contact
		wantDuplicates int
		wantBlocked    int
	}{
		{
			name: "duplicate phone keeps first occurrence",
			contacts: []Contact{
				{Phone: "9876543210", Email: "a@x.com"},
				{Phone: "9876543210", Email: "b@y.com"},
			},
			entries:        []Entry{},
			wantAllowed:    []Contact{{Phone: "9876543210", Email: "a@x.com"}},
			wantDuplicates: 1,
		},
		{
			name:        "active phone entry blocks",
			contacts:    []Contact{{Phone: "111", Email: "a@x.com"}},
			entries:     []Entry{rawEntry("111", "", values.DNCTypePhone)},
			wantAllowed: []Contact{},
			wantBlocked: 1,
		},
		{
			name:        "inactive entry does not block",
			contacts:    []Contact{{Phone: "111", Email: "a@x.com"}},
			entries:     []Entry{inactive},
			wantAllowed: []Contact{{Phone: "111", Email: "a@x.com"}},
		},
		{
			name: "blank phone falls back to email key",
			contacts: []Contact{
				{Phone: "", Email: "a@x.com"},
				{Phone: "", Email: "a@x.com"},
			},
			entries:        []Entry{},
			wantAllowed:    []Contact{{Phone: "", Email: "a@x.com"}},
			wantDuplicates: 1,
		},
		{
			name:        "email entry matches case-insensitively",
			contacts:    []Contact{{Phone: "222", Email: "A@X.COM"}},
			entries:     []Entry{rawEntry("", "a@x.com", values.DNCTypeEmail)},
			wantAllowed: []Contact{},
			wantBlocked: 1,
		},
		{
			name:        "phone entry ignores email match",
			contacts:    []Contact{{Phone: "222", Email: "a@x.com"}},
			entries:     []Entry{rawEntry("111", "a@x.com", values.DNCTypePhone)},
			wantAllowed: []Contact{{Phone: "222", Email: "a@x.com"}},
		},
		{
			name:        "blank contact phone never matches blank entry phone",
			contacts:    []Contact{{Phone: "", Email: "c@z.com"}},
			entries:     []Entry{rawEntry("", "a@x.com", values.DNCTypeBoth)},
			wantAllowed: []Contact{{Phone: "", Email: "c@z.com"}},
		},
		{
			name: "contacts without any key are kept",
			contacts: []Contact{
				{Name: "walk-in"},
				{Name: "walk-in"},
			},
			entries:     []Entry{rawEntry("", "", values.DNCTypeBoth)},
			wantAllowed: []Contact{{Name: "walk-in"}, {Name: "walk-in"}},
		},
		{
			name: "dedup runs before blocking",
			contacts: []Contact{
				{Phone: "111", Email: "first@x.com"},
				{Phone: "111", Email: "second@x.com"},
				{Phone: "333", Email: "ok@x.com"},
			},
			entries:        []Entry{rawEntry("111", "", values.DNCTypePhone)},
			wantAllowed:    []Contact{{Phone: "333", Email: "ok@x.com"}},
			wantDuplicates: 1,
			wantBlocked:    1,
		},
		{
			name: "padded phones dedup and block after trimming",
			contacts: []Contact{
				{Phone: "9876543210 ", Email: "first@x.com"},
				{Phone: " 9876543210", Email: "second@x.com"},
				{Phone: "333", Email: "ok@x.com"},
			},
			entries:        []Entry{rawEntry(" 9876543210 ", "", values.DNCTypePhone)},
			wantAllowed:    []Contact{{Phone: "333", Email: "ok@x.com"}},
			wantDuplicates: 1,
			wantBlocked:    1,
		},
		{
			name:        "empty input",
			contacts:    []Contact{},
			entries:     []Entry{rawEntry("111", "", values.DNCTypePhone)},
			wantAllowed: []Contact{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Filter(tt.contacts, "", snapshotOf(tt.entries), testNow)
			require.NoError(t, err)

			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.wantDuplicates, result.DuplicatesRemoved)
			assert.Equal(t, tt.wantBlocked, result.DNCBlocked)
			assert.Equal(t, len(tt.contacts), result.OriginalCount)
			assert.True(t, result.Balanced())
		})
	}
}

func TestFilter_InvalidArguments(t *testing.T) {
	_, err := Filter(nil, "", snapshotOf(nil), testNow)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = Filter([]Contact{}, "", nil, testNow)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestFilter_ExpiredEntryDoesNotBlock(t *testing.T) {
	expired := rawEntry("111", "a@x.com", values.DNCTypeBoth)
	expired.ExpiryDate = ptr(date("2024-12-31"))

	notYet := rawEntry("222", "", values.DNCTypePhone)
	notYet.EffectiveDate = date("2026-01-01")

	contacts := []Contact{{Phone: "111", Email: "a@x.com"}, {Phone: "222"}}
	result, err := Filter(contacts, "", snapshotOf([]Entry{expired, notYet}), testNow)
	require.NoError(t, err)

	assert.Equal(t, contacts, result.Allowed)
	assert.Zero(t, result.DNCBlocked)
}

func TestFilter_OverrideLifecycle(t *testing.T) {
	entry := rawEntry("111", "", values.DNCTypePhone)
	entry.OverrideAllowed = true
	override := Override{
		ID:        uuid.New(),
		DNCID:     entry.ID,
		Type:      values.OverrideTemporary,
		StartDate: date("2025-06-01"),
		EndDate:   ptr(date("2025-06-30")),
	}
	registry := snapshotOf([]Entry{entry}, override)
	contacts := []Contact{{Phone: "111", Email: "a@x.com"}}

	clock := &MockClock{CurrentTime: testNow}
	f := NewComplianceFilter(clock)

	result, err := f.Filter(contacts, "", registry)
	require.NoError(t, err)
	assert.Len(t, result.Allowed, 1, "override covering now lets the contact through")

	clock.Set(date("2025-07-01"))
	result, err = f.Filter(contacts, "", registry)
	require.NoError(t, err)
	assert.Empty(t, result.Allowed, "contact is blocked again once the override ends")
	assert.Equal(t, 1, result.DNCBlocked)
}

func TestFilter_ClientScoping(t *testing.T) {
	scoped := rawEntry("111", "", values.DNCTypePhone)
	scoped.ClientID = "client-a"
	global := rawEntry("222", "", values.DNCTypePhone)
	registry := snapshotOf([]Entry{scoped, global})
	contacts := []Contact{{Phone: "111"}, {Phone: "222"}}

	forA, err := Filter(contacts, "client-a", registry, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, forA.DNCBlocked)

	forB, err := Filter(contacts, "client-b", registry, testNow)
	require.NoError(t, err)
	assert.Equal(t, []Contact{{Phone: "111"}}, forB.Allowed)

	unscoped, err := Filter(contacts, "", registry, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, unscoped.DNCBlocked)
}

func TestFilter_DoesNotMutateInputs(t *testing.T) {
	contacts := []Contact{
		{Phone: "111", Email: "A@X.COM", Attributes: map[string]string{"policy": "P-1"}},
		{Phone: "111", Email: "b@x.com"},
	}
	before := []Contact{
		{Phone: "111", Email: "A@X.COM", Attributes: map[string]string{"policy": "P-1"}},
		{Phone: "111", Email: "b@x.com"},
	}
	registry := snapshotOf([]Entry{rawEntry("", "a@x.com", values.DNCTypeEmail)})
	registryBefore := registry.Clone()

	_, err := Filter(contacts, "", registry, testNow)
	require.NoError(t, err)

	assert.Equal(t, before, contacts)
	assert.Equal(t, registryBefore, registry)
}

func TestFilterResult_Summary(t *testing.T) {
	r := &FilterResult{
		Allowed:           []Contact{{Phone: "1"}, {Phone: "2"}},
		DuplicatesRemoved: 3,
		DNCBlocked:        4,
		OriginalCount:     9,
	}
	assert.Equal(t, "2 contacts eligible; 3 duplicates removed; 4 blocked by DNC", r.Summary())
	assert.True(t, r.Balanced())
}

func TestComplianceFilter_DefaultsToRealClock(t *testing.T) {
	f := NewComplianceFilter(nil)
	result, err := f.Filter([]Contact{{Phone: "1"}}, "", snapshotOf(nil))
	require.NoError(t, err)
	assert.Len(t, result.Allowed, 1)
	assert.WithinDuration(t, time.Now(), f.clock.Now(), time.Minute)
}
