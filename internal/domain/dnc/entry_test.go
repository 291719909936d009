package dnc

import (
	"testing"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	tests := []struct {
		name    string
		params  EntryParams
		wantErr string
	}{
		{
			name:   "phone entry",
			params: EntryParams{CustomerPhone: "9876543210", Type: "phone", Source: "customer"},
		},
		{
			name:   "email entry normalizes address",
			params: EntryParams{CustomerEmail: "A@X.COM", Type: "email", Source: "manual"},
		},
		{
			name:   "both requires both fields",
			params: EntryParams{CustomerPhone: "111", CustomerEmail: "a@x.com", Type: "both", Source: "government"},
		},
		{
			name:    "phone entry without phone",
			params:  EntryParams{CustomerEmail: "a@x.com", Type: "phone", Source: "customer"},
			wantErr: "INVALID_PHONE_NUMBER",
		},
		{
			name:    "both without email",
			params:  EntryParams{CustomerPhone: "111", Type: "both", Source: "customer"},
			wantErr: "INVALID_EMAIL",
		},
		{
			name:    "unknown type",
			params:  EntryParams{CustomerPhone: "111", Type: "fax", Source: "customer"},
			wantErr: "INVALID_DNC_TYPE",
		},
		{
			name:    "unknown source",
			params:  EntryParams{CustomerPhone: "111", Type: "phone", Source: "federal"},
			wantErr: "UNSUPPORTED_DNC_SOURCE",
		},
		{
			name: "expiry before effective date",
			params: EntryParams{
				CustomerPhone: "111", Type: "phone", Source: "customer",
				EffectiveDate: date("2025-01-02"), ExpiryDate: ptr(date("2025-01-01")),
			},
			wantErr: "INVALID_EXPIRATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewEntry(tt.params, testNow)
			if tt.wantErr != "" {
				require.Error(t, err)
				appErr, ok := errors.As(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantErr, appErr.Code)
				return
			}

			require.NoError(t, err)
			assert.True(t, entry.IsActive)
			assert.Equal(t, testNow, entry.EffectiveDate)
			assert.Equal(t, testNow, entry.CreatedAt)
			assert.NotEmpty(t, entry.ID)
		})
	}
}

func TestEntry_InWindow(t *testing.T) {
	e := rawEntry("111", "", values.DNCTypePhone)
	e.EffectiveDate = date("2025-01-01")
	e.ExpiryDate = ptr(date("2025-12-31"))

	assert.False(t, e.InWindow(date("2024-12-31")))
	assert.True(t, e.InWindow(date("2025-01-01")))
	assert.True(t, e.InWindow(date("2025-12-31")))
	assert.False(t, e.InWindow(date("2025-12-31").Add(time.Nanosecond)))
	assert.True(t, e.IsExpired(date("2026-01-01")))

	inverted := rawEntry("111", "", values.DNCTypePhone)
	inverted.EffectiveDate = date("2025-06-01")
	inverted.ExpiryDate = ptr(date("2025-05-01"))
	assert.False(t, inverted.InWindow(date("2025-05-15")))
	assert.False(t, inverted.InWindow(date("2025-06-15")))
}

func TestEntry_Matching(t *testing.T) {
	phoneOnly := rawEntry("111", "a@x.com", values.DNCTypePhone)
	emailOnly := rawEntry("111", "a@x.com", values.DNCTypeEmail)
	both := rawEntry("111", "a@x.com", values.DNCTypeBoth)
	blankPhone := rawEntry("", "", values.DNCTypeBoth)

	assert.True(t, phoneOnly.BlocksPhone("111"))
	assert.False(t, phoneOnly.BlocksEmail("a@x.com"))
	assert.False(t, emailOnly.BlocksPhone("111"))
	assert.True(t, emailOnly.BlocksEmail("A@X.COM"))
	assert.True(t, both.Matches(Contact{Phone: "222", Email: "a@x.com"}))
	assert.True(t, both.Matches(Contact{Phone: "111"}))

	assert.False(t, blankPhone.BlocksPhone(""))
	assert.False(t, blankPhone.BlocksEmail(" "))
	assert.True(t, phoneOnly.BlocksPhone(" 111 "), "phones are trimmed before comparing")
	assert.False(t, phoneOnly.BlocksPhone("1 11"), "phone match is otherwise exact")
}

func TestEntry_AppliesToClient(t *testing.T) {
	scoped := rawEntry("111", "", values.DNCTypePhone)
	scoped.ClientID = "client-a"
	global := rawEntry("111", "", values.DNCTypePhone)

	assert.True(t, scoped.AppliesToClient("client-a"))
	assert.False(t, scoped.AppliesToClient("client-b"))
	assert.True(t, scoped.AppliesToClient(""))
	assert.True(t, global.AppliesToClient("client-b"))
}

func TestEntry_RecordOverride(t *testing.T) {
	e := newTestEntry(t, EntryParams{CustomerPhone: "111", Type: "phone", Source: "customer"})

	err := e.RecordOverride(testNow, "agent")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCompliance))
	assert.Nil(t, e.LastOverride)

	e.OverrideAllowed = true
	require.NoError(t, e.RecordOverride(testNow, "agent"))
	require.NotNil(t, e.LastOverride)
	assert.Equal(t, testNow, *e.LastOverride)
}

func TestEntry_CloneIsDeep(t *testing.T) {
	e := rawEntry("111", "", values.DNCTypePhone)
	e.ExpiryDate = ptr(date("2030-01-01"))

	c := e.Clone()
	*c.ExpiryDate = date("2031-01-01")

	assert.Equal(t, date("2030-01-01"), *e.ExpiryDate)
}

func TestEntry_IsEffective(t *testing.T) {
	e := rawEntry("555", "", values.DNCTypePhone)
	other := rawEntry("666", "", values.DNCTypePhone)

	permanent := Override{DNCID: e.ID, Type: values.OverridePermanent, StartDate: date("2025-06-01")}
	foreign := Override{DNCID: other.ID, Type: values.OverridePermanent, StartDate: date("2025-06-01")}

	assert.True(t, e.IsEffective(testNow, nil))
	assert.True(t, e.IsEffective(testNow, []Override{foreign}))
	assert.False(t, e.IsEffective(testNow, []Override{foreign, permanent}))
	assert.True(t, e.IsEffective(date("2025-05-31"), []Override{permanent}))

	e.IsActive = false
	assert.False(t, e.IsEffective(testNow, nil))
}
