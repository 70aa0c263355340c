// Package httphandler implements the JSON REST API driving adapter.
package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/accountvault/internal/application"
	"github.com/ericfisherdev/accountvault/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	vault  *application.VaultService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(vault *application.VaultService, logger *slog.Logger) *Handler {
	return &Handler{
		vault:  vault,
		logger: logger,
	}
}

// RegisterAPIRoutes registers all /api/v1 routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/accounts", h.ListAccounts)
	mux.HandleFunc("GET /api/v1/accounts/{id}", h.GetAccount)
	mux.HandleFunc("POST /api/v1/accounts", h.CreateAccount)
	mux.HandleFunc("PUT /api/v1/accounts/{id}", h.UpdateAccount)
	mux.HandleFunc("DELETE /api/v1/accounts/{id}", h.DeleteAccount)
	mux.HandleFunc("GET /api/v1/devices", h.ListDevices)
	mux.HandleFunc("GET /api/v1/devices/stream", h.StreamDevices)
}

// NewServeMux creates an http.Handler with all API routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// ListAccounts returns accounts matching the optional q search parameter.
// Secrets are omitted.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.vault.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponses(accounts))
}

// GetAccount returns a single account including its secrets.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	account, err := h.vault.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "get account", id, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account, true))
}

// CreateAccount adds a new account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.vault.Create(r.Context(), req.toModel(""))
	if err != nil {
		h.writeServiceError(w, "create account", req.Handle, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(created, false))
}

// UpdateAccount replaces an existing account.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.vault.Update(r.Context(), req.toModel(id))
	if err != nil {
		h.writeServiceError(w, "update account", id, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(updated, false))
}

// DeleteAccount removes an account.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.vault.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "delete account", id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListDevices returns the device board for accounts matching q.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	groups, err := h.vault.DeviceGroups(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("failed to group devices", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toDeviceGroupResponses(groups))
}

// StreamDevices pushes the device board as Server-Sent Events: one "devices"
// event with the current board, then one after every vault change. The stream
// ends when the client disconnects.
func (h *Handler) StreamDevices(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	query := r.URL.Query().Get("q")

	snapshots, err := h.vault.Subscribe(r.Context())
	if err != nil {
		h.logger.Error("failed to subscribe to vault", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for snapshot := range snapshots {
		groups := application.GroupByDevice(application.FilterAccounts(snapshot, query))

		data, err := json.Marshal(toDeviceGroupResponses(groups))
		if err != nil {
			h.logger.Error("failed to encode device event", "error", err)
			return
		}

		if _, err := fmt.Fprintf(w, "event: devices\ndata: %s\n\n", data); err != nil {
			h.logger.Debug("device stream closed", "error", err)
			return
		}
		if err := rc.Flush(); err != nil {
			h.logger.Warn("device stream cannot flush", "error", err)
			return
		}
	}
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps vault errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, op, subject string, err error) {
	var verr *application.ValidationError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, driven.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusConflict, driven.ErrEncryptionKeyNotSet.Error())
	default:
		h.logger.Error("failed to "+op, "subject", subject, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
