package dnc

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
	"github.com/davidleathers/outreach-compliance-backend/internal/infrastructure/repository"
	"github.com/davidleathers/outreach-compliance-backend/internal/testutil"
	"github.com/davidleathers/outreach-compliance-backend/internal/testutil/fixtures"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Mock implementations

type MockSnapshotPublisher struct {
	mock.Mock
}

func (m *MockSnapshotPublisher) Publish(ctx context.Context, snap *dnc.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

type MockSnapshotSource struct {
	mock.Mock
}

func (m *MockSnapshotSource) Version(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSnapshotSource) Latest(ctx context.Context) (*dnc.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dnc.Snapshot), args.Error(1)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) SetRegistryState(entries int, version int64) {
	m.Called(entries, version)
}

func (m *MockMetrics) RecordSnapshotPublish(err error) {
	m.Called(err)
}

var serviceNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type testService struct {
	svc       Service
	clock     *dnc.MockClock
	repo      *repository.DNCRepository
	publisher *MockSnapshotPublisher
}

func newTestService(t *testing.T, opts ...Option) *testService {
	t.Helper()

	ts := &testService{
		clock:     &dnc.MockClock{CurrentTime: serviceNow},
		repo:      repository.NewDNCRepository(),
		publisher: new(MockSnapshotPublisher),
	}

	all := append([]Option{WithClock(ts.clock), WithPublisher(ts.publisher)}, opts...)
	svc, err := NewService(zaptest.NewLogger(t), ts.repo, all...)
	require.NoError(t, err)
	ts.svc = svc
	return ts
}

func (ts *testService) expectPublish() {
	ts.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*dnc.Snapshot")).Return(nil)
}

func (ts *testService) addPhoneEntry(t *testing.T, phone string, overrideAllowed bool) *EntryResponse {
	t.Helper()
	resp, err := ts.svc.AddEntry(context.Background(), AddEntryRequest{
		CustomerPhone:   phone,
		Type:            "phone",
		Source:          "customer",
		Reason:          "customer request",
		OverrideAllowed: overrideAllowed,
		CreatedBy:       "agent-1",
	})
	require.NoError(t, err)
	return resp
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(nil, repository.NewDNCRepository())
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = NewService(zaptest.NewLogger(t), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestService_AddEntry(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()

	resp := ts.addPhoneEntry(t, "9876543210", false)

	assert.NotEqual(t, uuid.Nil, resp.Entry.ID)
	assert.True(t, resp.Entry.IsActive)
	assert.True(t, resp.Effective)
	assert.Equal(t, serviceNow, resp.Entry.EffectiveDate)
	assert.Empty(t, resp.Overrides)

	ts.publisher.AssertNumberOfCalls(t, "Publish", 1)
	published := ts.publisher.Calls[0].Arguments.Get(1).(*dnc.Snapshot)
	assert.Equal(t, int64(1), published.Version)
	require.Len(t, published.Entries, 1)
	assert.Equal(t, resp.Entry.ID, published.Entries[0].ID)
}

func TestService_AddEntry_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		req      AddEntryRequest
		wantCode string
	}{
		{
			name:     "phone type without phone",
			req:      AddEntryRequest{CustomerEmail: "a@x.com", Type: "phone", Source: "customer"},
			wantCode: "INVALID_PHONE_NUMBER",
		},
		{
			name:     "email type with malformed email",
			req:      AddEntryRequest{CustomerEmail: "not-an-email", Type: "email", Source: "customer"},
			wantCode: "INVALID_EMAIL",
		},
		{
			name: "expiry before effective date",
			req: AddEntryRequest{
				CustomerPhone: "555", Type: "phone", Source: "manual",
				EffectiveDate: serviceNow,
				ExpiryDate:    testutil.Ptr(serviceNow.Add(-time.Hour)),
			},
			wantCode: "INVALID_EXPIRATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestService(t)

			_, err := ts.svc.AddEntry(context.Background(), tt.req)
			require.Error(t, err)

			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			ts.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestService_GetEntry_NotFound(t *testing.T) {
	ts := newTestService(t)

	_, err := ts.svc.GetEntry(context.Background(), uuid.New())
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.Equal(t, 404, errors.GetStatusCode(err))
}

func TestService_SetActive(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()
	ctx := testutil.TestContext(t)

	entry := ts.addPhoneEntry(t, "555", false)

	resp, err := ts.svc.SetActive(ctx, SetActiveRequest{ID: entry.Entry.ID, Active: false, UpdatedBy: "supervisor"})
	require.NoError(t, err)
	assert.False(t, resp.Entry.IsActive)
	assert.False(t, resp.Effective)
	assert.Equal(t, "supervisor", resp.Entry.UpdatedBy)

	check, err := ts.svc.Check(ctx, CheckRequest{Phone: "555"})
	require.NoError(t, err)
	assert.False(t, check.Blocked)
}

func TestService_GrantOverride_NotAllowed(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()
	ctx := testutil.TestContext(t)

	entry := ts.addPhoneEntry(t, "555", false)

	_, err := ts.svc.GrantOverride(ctx, GrantOverrideRequest{
		EntryID:   entry.Entry.ID,
		Type:      "permanent",
		GrantedBy: "agent-2",
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCompliance))

	got, err := ts.svc.GetEntry(ctx, entry.Entry.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Overrides)
	assert.Nil(t, got.Entry.LastOverride)
}

func TestService_TemporaryOverrideLifecycle(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()
	ctx := testutil.TestContext(t)

	entry := ts.addPhoneEntry(t, "555", true)

	end := serviceNow.Add(48 * time.Hour)
	granted, err := ts.svc.GrantOverride(ctx, GrantOverrideRequest{
		EntryID:   entry.Entry.ID,
		Type:      "temporary",
		EndDate:   &end,
		Reason:    "customer asked for one follow-up",
		GrantedBy: "agent-2",
	})
	require.NoError(t, err)
	assert.True(t, granted.Active)

	check, err := ts.svc.Check(ctx, CheckRequest{Phone: "555"})
	require.NoError(t, err)
	assert.False(t, check.Blocked, "override suspends the entry")

	got, err := ts.svc.GetEntry(ctx, entry.Entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Entry.LastOverride)
	assert.Equal(t, serviceNow, *got.Entry.LastOverride)
	assert.Len(t, got.Overrides, 1)
	assert.False(t, got.Effective)

	ts.clock.Advance(72 * time.Hour)

	check, err = ts.svc.Check(ctx, CheckRequest{Phone: "555"})
	require.NoError(t, err)
	assert.True(t, check.Blocked, "entry blocks again once the override ends")
	require.NotNil(t, check.EntryID)
	assert.Equal(t, entry.Entry.ID, *check.EntryID)
}

func TestService_GrantOverride_TemporaryNeedsEndDate(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()

	entry := ts.addPhoneEntry(t, "555", true)

	_, err := ts.svc.GrantOverride(context.Background(), GrantOverrideRequest{
		EntryID: entry.Entry.ID,
		Type:    "temporary",
	})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "MISSING_END_DATE", appErr.Code)
}

func TestService_RevokeOverride(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()
	ctx := testutil.TestContext(t)

	entry := ts.addPhoneEntry(t, "555", true)
	granted, err := ts.svc.GrantOverride(ctx, GrantOverrideRequest{
		EntryID:   entry.Entry.ID,
		Type:      "permanent",
		GrantedBy: "agent-2",
	})
	require.NoError(t, err)

	ts.clock.Advance(time.Hour)

	revoked, err := ts.svc.RevokeOverride(ctx, granted.Override.ID, "supervisor")
	require.NoError(t, err)
	assert.False(t, revoked.Active)
	require.NotNil(t, revoked.Override.RevokedAt)

	check, err := ts.svc.Check(ctx, CheckRequest{Phone: "555"})
	require.NoError(t, err)
	assert.True(t, check.Blocked)

	_, err = ts.svc.RevokeOverride(ctx, granted.Override.ID, "supervisor")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))

	_, err = ts.svc.RevokeOverride(ctx, uuid.New(), "supervisor")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestService_RemoveEntry(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()
	ctx := testutil.TestContext(t)

	entry := ts.addPhoneEntry(t, "555", false)

	require.NoError(t, ts.svc.RemoveEntry(ctx, entry.Entry.ID, "supervisor"))

	_, err := ts.svc.GetEntry(ctx, entry.Entry.ID)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	err = ts.svc.RemoveEntry(ctx, entry.Entry.ID, "supervisor")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestService_ListEntries(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()
	ctx := testutil.TestContext(t)

	first := ts.addPhoneEntry(t, "111", false)
	ts.addPhoneEntry(t, "222", false)
	_, err := ts.svc.SetActive(ctx, SetActiveRequest{ID: first.Entry.ID, Active: false})
	require.NoError(t, err)

	all, err := ts.svc.ListEntries(ctx, ListEntriesRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)

	active, err := ts.svc.ListEntries(ctx, ListEntriesRequest{ActiveOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, active.Count)
	assert.Equal(t, "222", active.Entries[0].Entry.CustomerPhone)

	_, err = ts.svc.ListEntries(ctx, ListEntriesRequest{Limit: -1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestService_SnapshotIsolation(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()
	ctx := testutil.TestContext(t)

	entry := ts.addPhoneEntry(t, "555", false)

	before, err := ts.svc.Snapshot(ctx)
	require.NoError(t, err)

	ts.addPhoneEntry(t, "666", false)
	_, err = ts.svc.SetActive(ctx, SetActiveRequest{ID: entry.Entry.ID, Active: false})
	require.NoError(t, err)

	assert.Len(t, before.Entries, 1)
	assert.True(t, before.Entries[0].IsActive)

	after, err := ts.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Greater(t, after.Version, before.Version)
	assert.Len(t, after.Entries, 2)
}

func TestService_Check(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()
	ctx := testutil.TestContext(t)

	_, err := ts.svc.AddEntry(ctx, AddEntryRequest{
		ClientID:      "client-a",
		CustomerEmail: "Jane@Example.com",
		Type:          "email",
		Source:        "customer",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     CheckRequest
		blocked bool
	}{
		{"same client, different case", CheckRequest{ClientID: "client-a", Email: "JANE@example.com"}, true},
		{"unscoped check", CheckRequest{Email: "jane@example.com"}, true},
		{"other client", CheckRequest{ClientID: "client-b", Email: "jane@example.com"}, false},
		{"phone only", CheckRequest{ClientID: "client-a", Phone: "555"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ts.svc.Check(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.blocked, resp.Blocked)
			assert.Equal(t, serviceNow, resp.CheckedAt)
		})
	}

	_, err = ts.svc.Check(ctx, CheckRequest{ClientID: "client-a"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestService_Stats(t *testing.T) {
	ts := newTestService(t)
	ts.expectPublish()
	ctx := testutil.TestContext(t)

	a := ts.addPhoneEntry(t, "111", true)
	b := ts.addPhoneEntry(t, "222", false)
	ts.addPhoneEntry(t, "333", false)

	_, err := ts.svc.SetActive(ctx, SetActiveRequest{ID: b.Entry.ID, Active: false})
	require.NoError(t, err)
	_, err = ts.svc.GrantOverride(ctx, GrantOverrideRequest{EntryID: a.Entry.ID, Type: "permanent"})
	require.NoError(t, err)

	stats, err := ts.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 2, stats.ActiveEntries)
	assert.Equal(t, 1, stats.EffectiveEntries)
	assert.Equal(t, 1, stats.Overrides)
	assert.Equal(t, 1, stats.ActiveOverrides)
	assert.Equal(t, map[string]int{"customer": 1}, stats.BySource)
	assert.Zero(t, stats.RegulatoryEntries)
	assert.Equal(t, string(CircuitClosed), stats.PublisherState)

	_, err = ts.svc.AddEntry(ctx, AddEntryRequest{
		CustomerPhone: "444",
		Type:          "phone",
		Source:        "government",
		CreatedBy:     "sync",
	})
	require.NoError(t, err)

	stats, err = ts.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"customer": 1, "government": 1}, stats.BySource)
	assert.Equal(t, 1, stats.RegulatoryEntries)
}

func TestService_PublishFailureIsNotFatal(t *testing.T) {
	metrics := new(MockMetrics)
	metrics.On("SetRegistryState", mock.Anything, mock.Anything).Return()
	metrics.On("RecordSnapshotPublish", mock.Anything).Return()

	ts := newTestService(t,
		WithMetrics(metrics),
		WithConfig(&Config{
			PublishTimeout: time.Second,
			Breaker:        BreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Cooldown: time.Minute},
		}),
	)
	ts.publisher.On("Publish", mock.Anything, mock.Anything).Return(stderrors.New("redis unavailable"))

	ts.addPhoneEntry(t, "111", false)
	ts.addPhoneEntry(t, "222", false)
	ts.addPhoneEntry(t, "333", false)

	// the third mutation hits an open circuit and never reaches the store
	ts.publisher.AssertNumberOfCalls(t, "Publish", 2)
	metrics.AssertCalled(t, "SetRegistryState", 3, int64(3))
	metrics.AssertCalled(t, "RecordSnapshotPublish", ErrCircuitBreakerOpen)

	stats, err := ts.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(CircuitOpen), stats.PublisherState)
	assert.Equal(t, 3, stats.TotalEntries)
}

func TestService_StalePublishDoesNotTripBreaker(t *testing.T) {
	metrics := new(MockMetrics)
	metrics.On("SetRegistryState", mock.Anything, mock.Anything).Return()
	metrics.On("RecordSnapshotPublish", mock.Anything).Return()

	ts := newTestService(t,
		WithMetrics(metrics),
		WithConfig(&Config{
			PublishTimeout: time.Second,
			Breaker:        BreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Cooldown: time.Minute},
		}),
	)
	stale := fmt.Errorf("snapshot version 1 is older than cached version 10: %w", dnc.ErrStaleSnapshot)
	ts.publisher.On("Publish", mock.Anything, mock.Anything).Return(stale)

	for _, phone := range []string{"111", "222", "333", "444"} {
		ts.addPhoneEntry(t, phone, false)
	}

	ts.publisher.AssertNumberOfCalls(t, "Publish", 4)
	metrics.AssertCalled(t, "RecordSnapshotPublish", stale)
	metrics.AssertNotCalled(t, "RecordSnapshotPublish", ErrCircuitBreakerOpen)

	stats, err := ts.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(CircuitClosed), stats.PublisherState)
}

func TestService_Sync(t *testing.T) {
	remote := fixtures.NewSnapshotBuilder(10, serviceNow).WithPhones("555-0100", "555-0101").Build()

	tests := []struct {
		name          string
		remoteVersion int64
		localEntries  int
		wantRestored  bool
		wantVersion   int64
	}{
		{name: "adopts newer shared snapshot", remoteVersion: 10, wantRestored: true, wantVersion: 10},
		{name: "keeps local registry when ahead", remoteVersion: 2, localEntries: 3, wantVersion: 3},
		{name: "nothing published yet", remoteVersion: 0, wantVersion: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := new(MockSnapshotSource)
			source.On("Version", mock.Anything).Return(tt.remoteVersion, nil)
			source.On("Latest", mock.Anything).Return(remote, nil)

			ts := newTestService(t, WithSnapshotSource(source))
			ts.expectPublish()
			for i := 0; i < tt.localEntries; i++ {
				ts.addPhoneEntry(t, fmt.Sprintf("777-%04d", i), false)
			}

			restored, err := ts.svc.Sync(testutil.TestContext(t))
			require.NoError(t, err)
			assert.Equal(t, tt.wantRestored, restored)
			assert.Equal(t, tt.wantVersion, ts.repo.Version())

			if tt.wantRestored {
				check, err := ts.svc.Check(context.Background(), CheckRequest{Phone: "555-0101"})
				require.NoError(t, err)
				assert.True(t, check.Blocked)
			} else {
				source.AssertNotCalled(t, "Latest", mock.Anything)
			}
		})
	}
}

func TestService_SyncThenMutatePublishesNextVersion(t *testing.T) {
	source := new(MockSnapshotSource)
	source.On("Version", mock.Anything).Return(int64(10), nil)
	source.On("Latest", mock.Anything).Return(
		fixtures.NewSnapshotBuilder(10, serviceNow).WithPhones("555-0100").Build(), nil)

	ts := newTestService(t, WithSnapshotSource(source))
	ts.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(s *dnc.Snapshot) bool {
		return s.Version == 11 && len(s.Entries) == 2
	})).Return(nil).Once()

	_, err := ts.svc.Sync(context.Background())
	require.NoError(t, err)
	ts.addPhoneEntry(t, "555-0199", false)

	ts.publisher.AssertExpectations(t)
}

func TestService_SyncSourceErrors(t *testing.T) {
	source := new(MockSnapshotSource)
	source.On("Version", mock.Anything).Return(int64(0), stderrors.New("redis unavailable"))

	ts := newTestService(t, WithSnapshotSource(source))
	restored, err := ts.svc.Sync(context.Background())
	assert.False(t, restored)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))

	withoutSource := newTestService(t)
	restored, err = withoutSource.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestService_RunSyncStopsWithContext(t *testing.T) {
	polled := make(chan struct{}, 1)
	source := new(MockSnapshotSource)
	source.On("Version", mock.Anything).Return(int64(0), nil).Run(func(mock.Arguments) {
		select {
		case polled <- struct{}{}:
		default:
		}
	})

	ts := newTestService(t, WithSnapshotSource(source))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ts.svc.RunSync(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("sync loop never polled the shared store")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sync loop did not stop")
	}
}

func TestService_WithoutPublisher(t *testing.T) {
	svc, err := NewService(zaptest.NewLogger(t), repository.NewDNCRepository())
	require.NoError(t, err)

	_, err = svc.AddEntry(context.Background(), AddEntryRequest{CustomerPhone: "555", Type: "phone", Source: "system"})
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats.PublisherState)
}
