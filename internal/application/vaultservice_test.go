package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ericfisherdev/accountvault/internal/application"
	"github.com/ericfisherdev/accountvault/internal/domain/model"
	"github.com/ericfisherdev/accountvault/internal/domain/port/driven"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockAccountStore is an in-memory driven.AccountStore.
type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]model.Account
	listErr  error
}

func newMockAccountStore(accounts ...model.Account) *mockAccountStore {
	m := &mockAccountStore{accounts: make(map[string]model.Account)}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountStore) Create(_ context.Context, a model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountStore) Update(_ context.Context, a model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return driven.ErrAccountNotFound
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountStore) Get(_ context.Context, id string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return model.Account{}, driven.ErrAccountNotFound
	}
	return a, nil
}

func (m *mockAccountStore) ListAll(_ context.Context) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

func (m *mockAccountStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return driven.ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVaultService_CreateAssignsIDAndTimestamp(t *testing.T) {
	store := newMockAccountStore()
	svc := application.NewVaultService(store, discardLogger())

	created, err := svc.Create(context.Background(), model.Account{
		Platform: " TikTok ",
		Handle:   " @brand ",
		Notes:    "redmi #2",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.UpdatedAt.IsZero())
	assert.Equal(t, "tiktok", created.Platform)
	assert.Equal(t, "@brand", created.Handle)

	stored, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestVaultService_CreateValidation(t *testing.T) {
	tests := []struct {
		name      string
		account   model.Account
		wantField string
	}{
		{"missing platform", model.Account{Handle: "@a"}, "platform"},
		{"blank handle", model.Account{Platform: "instagram", Handle: "  "}, "handle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := application.NewVaultService(newMockAccountStore(), discardLogger())

			_, err := svc.Create(context.Background(), tt.account)

			var verr *application.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestVaultService_UpdateUnknownAccount(t *testing.T) {
	svc := application.NewVaultService(newMockAccountStore(), discardLogger())

	_, err := svc.Update(context.Background(), model.Account{ID: "missing", Platform: "tiktok", Handle: "@x"})

	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
}

func TestVaultService_DeleteUnknownAccount(t *testing.T) {
	svc := application.NewVaultService(newMockAccountStore(), discardLogger())

	err := svc.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
}

func TestVaultService_ListFiltersByQuery(t *testing.T) {
	store := newMockAccountStore(
		model.Account{ID: "1", Handle: "@alpha", Notes: "iphone 1"},
		model.Account{ID: "2", Handle: "@beta", Notes: "redmi #3"},
	)
	svc := application.NewVaultService(store, discardLogger())

	got, err := svc.List(context.Background(), "REDMI")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestVaultService_ListError(t *testing.T) {
	store := newMockAccountStore()
	store.listErr = errors.New("disk on fire")
	svc := application.NewVaultService(store, discardLogger())

	_, err := svc.DeviceGroups(context.Background(), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestVaultService_DeviceGroups(t *testing.T) {
	store := newMockAccountStore(
		model.Account{ID: "1", Handle: "@a", Notes: "phone 2"},
		model.Account{ID: "2", Handle: "@b", Notes: "redmi #1"},
		model.Account{ID: "3", Handle: "@c", Notes: "not yet logged in"},
		model.Account{ID: "4", Handle: "@d", Notes: "iphone 2"},
	)
	svc := application.NewVaultService(store, discardLogger())

	groups, err := svc.DeviceGroups(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assert.Equal(t, "iphone_2", groups[0].Key)
	assert.Len(t, groups[0].Members, 2)
	assert.Equal(t, "android_1", groups[1].Key)
}

func receiveSnapshot(t *testing.T, ch <-chan []model.Account) []model.Account {
	t.Helper()
	select {
	case snapshot, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestVaultService_SubscribeDeliversSnapshots(t *testing.T) {
	store := newMockAccountStore(model.Account{ID: "1", Platform: "tiktok", Handle: "@first"})
	svc := application.NewVaultService(store, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Subscribe(ctx)
	require.NoError(t, err)

	initial := receiveSnapshot(t, ch)
	require.Len(t, initial, 1)

	created, err := svc.Create(ctx, model.Account{Platform: "instagram", Handle: "@second"})
	require.NoError(t, err)

	afterCreate := receiveSnapshot(t, ch)
	assert.Len(t, afterCreate, 2)

	require.NoError(t, svc.Delete(ctx, created.ID))

	afterDelete := receiveSnapshot(t, ch)
	assert.Len(t, afterDelete, 1)
}

func TestVaultService_SubscribeKeepsLatestSnapshotOnly(t *testing.T) {
	store := newMockAccountStore()
	svc := application.NewVaultService(store, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	assert.Empty(t, receiveSnapshot(t, ch))

	// Three changes while the subscriber is not reading.
	for _, handle := range []string{"@a", "@b", "@c"} {
		_, err := svc.Create(ctx, model.Account{Platform: "tiktok", Handle: handle})
		require.NoError(t, err)
	}

	// The forwarding goroutine may already hold one older snapshot; the
	// newest one must arrive within two reads.
	latest := receiveSnapshot(t, ch)
	if len(latest) != 3 {
		latest = receiveSnapshot(t, ch)
	}
	assert.Len(t, latest, 3)
}

func TestVaultService_SubscribeClosesOnCancel(t *testing.T) {
	svc := application.NewVaultService(newMockAccountStore(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := svc.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestVaultService_SubscribeInitialLoadError(t *testing.T) {
	store := newMockAccountStore()
	store.listErr = errors.New("locked")
	svc := application.NewVaultService(store, discardLogger())

	_, err := svc.Subscribe(context.Background())

	require.Error(t, err)
}
