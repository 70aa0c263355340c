package httphandler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	httphandler "github.com/ericfisherdev/accountvault/internal/adapter/driving/http"
	"github.com/ericfisherdev/accountvault/internal/application"
	"github.com/ericfisherdev/accountvault/internal/domain/model"
	"github.com/ericfisherdev/accountvault/internal/domain/port/driven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockAccountStore struct {
	mu        sync.Mutex
	accounts  map[string]model.Account
	listErr   error
	createErr error
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
	if m.createErr != nil {
		return m.createErr
	}
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

// --- Test helpers ---

var testTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupMux(store *mockAccountStore) http.Handler {
	vault := application.NewVaultService(store, quietLogger())
	h := httphandler.NewHandler(vault, quietLogger())
	return httphandler.NewServeMux(h, quietLogger())
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

func seededStore() *mockAccountStore {
	return newMockAccountStore(
		model.Account{ID: "a1", Platform: "tiktok", Handle: "@alpha", Username: "alpha", Password: "pw", Notes: "iphone 2", UpdatedAt: testTime},
		model.Account{ID: "b2", Platform: "instagram", Handle: "@beta", Notes: "Redmi #5", UpdatedAt: testTime},
		model.Account{ID: "c3", Platform: "tiktok", Handle: "@gamma", Notes: "not yet logged in", UpdatedAt: testTime},
	)
}

// --- Tests ---

func TestHealth(t *testing.T) {
	mux := setupMux(newMockAccountStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body httphandler.HealthResponse
	decodeJSON(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
}

func TestListAccounts(t *testing.T) {
	tests := []struct {
		name       string
		store      *mockAccountStore
		query      string
		wantStatus int
		wantIDs    []string
	}{
		{name: "empty vault", store: newMockAccountStore(), wantStatus: http.StatusOK, wantIDs: []string{}},
		{name: "all accounts", store: seededStore(), wantStatus: http.StatusOK, wantIDs: []string{"a1", "b2", "c3"}},
		{name: "filtered", store: seededStore(), query: "?q=redmi", wantStatus: http.StatusOK, wantIDs: []string{"b2"}},
		{
			name:       "store error",
			store:      func() *mockAccountStore { s := newMockAccountStore(); s.listErr = errors.New("boom"); return s }(),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(tt.store)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts"+tt.query, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body []httphandler.AccountResponse
			decodeJSON(t, rec, &body)
			ids := make([]string, 0, len(body))
			for _, a := range body {
				ids = append(ids, a.ID)
				assert.Empty(t, a.Password, "list must not expose secrets")
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGetAccount(t *testing.T) {
	mux := setupMux(seededStore())

	t.Run("found includes secrets", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/a1", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body httphandler.AccountResponse
		decodeJSON(t, rec, &body)
		assert.Equal(t, "@alpha", body.Handle)
		assert.Equal(t, "pw", body.Password)
		assert.True(t, body.HasPassword)
		assert.Equal(t, "2026-02-10T12:00:00Z", body.UpdatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/zzz", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreateAccount(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		storeErr   error
		wantStatus int
	}{
		{name: "valid", body: `{"platform":"tiktok","handle":"@new","notes":"redmi #1"}`, wantStatus: http.StatusCreated},
		{name: "malformed json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "missing handle", body: `{"platform":"tiktok"}`, wantStatus: http.StatusBadRequest},
		{name: "no encryption key", body: `{"platform":"tiktok","handle":"@x","password":"pw"}`, storeErr: driven.ErrEncryptionKeyNotSet, wantStatus: http.StatusConflict},
		{name: "store failure", body: `{"platform":"tiktok","handle":"@x"}`, storeErr: errors.New("disk full"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockAccountStore()
			store.createErr = tt.storeErr
			mux := setupMux(store)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusCreated {
				var body httphandler.AccountResponse
				decodeJSON(t, rec, &body)
				assert.NotEmpty(t, body.ID)
				assert.Equal(t, "@new", body.Handle)
				assert.Len(t, store.accounts, 1)
			}
		})
	}
}

func TestUpdateAccount(t *testing.T) {
	t.Run("replaces existing", func(t *testing.T) {
		store := seededStore()
		mux := setupMux(store)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/accounts/b2",
			strings.NewReader(`{"platform":"instagram","handle":"@beta","notes":"Redmi #6"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Redmi #6", store.accounts["b2"].Notes)
		assert.True(t, store.accounts["b2"].UpdatedAt.After(testTime))
	})

	t.Run("unknown id", func(t *testing.T) {
		mux := setupMux(seededStore())

		req := httptest.NewRequest(http.MethodPut, "/api/v1/accounts/nope",
			strings.NewReader(`{"platform":"tiktok","handle":"@x"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteAccount(t *testing.T) {
	store := seededStore()
	mux := setupMux(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/accounts/a1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, store.accounts, "a1")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/accounts/a1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDevices(t *testing.T) {
	mux := setupMux(seededStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body []httphandler.DeviceGroupResponse
	decodeJSON(t, rec, &body)
	require.Len(t, body, 2)

	assert.Equal(t, "iphone_2", body[0].Key)
	assert.Equal(t, "iPhone #2", body[0].DisplayName)
	assert.Equal(t, "ios", body[0].Kind)
	require.Len(t, body[0].Members, 1)
	assert.Equal(t, "a1", body[0].Members[0].ID)

	assert.Equal(t, "android_5", body[1].Key)
	assert.Equal(t, "Android Phone #5", body[1].DisplayName)
	assert.Equal(t, int64(1005), body[1].SortOrder)
}

func TestListDevices_Query(t *testing.T) {
	mux := setupMux(seededStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices?q=beta", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body []httphandler.DeviceGroupResponse
	decodeJSON(t, rec, &body)
	require.Len(t, body, 1)
	assert.Equal(t, "android_5", body[0].Key)
}

// readEvent reads one SSE event and returns its data payload.
func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			require.Equal(t, "devices", event)
			return data
		}
	}
}

func TestStreamDevices(t *testing.T) {
	store := seededStore()
	vault := application.NewVaultService(store, quietLogger())
	srv := httptest.NewServer(httphandler.NewServeMux(httphandler.NewHandler(vault, quietLogger()), quietLogger()))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/devices/stream", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	var initial []httphandler.DeviceGroupResponse
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, reader)), &initial))
	assert.Len(t, initial, 2)

	_, err = vault.Create(context.Background(), model.Account{Platform: "tiktok", Handle: "@delta", Notes: "phone 9"})
	require.NoError(t, err)

	var updated []httphandler.DeviceGroupResponse
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, reader)), &updated))
	require.Len(t, updated, 3)
	assert.Equal(t, "iphone_9", updated[1].Key)
}

func TestRecoveryMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })
	handler := httphandler.ApplyMiddleware(mux, quietLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
