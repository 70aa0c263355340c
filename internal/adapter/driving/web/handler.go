// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/accountvault/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/accountvault/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/accountvault/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/accountvault/internal/application"
	"github.com/ericfisherdev/accountvault/internal/domain/model"
	"github.com/ericfisherdev/accountvault/internal/domain/port/driven"
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
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

// Dashboard renders the device board for the optional q search term.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	board := vm.BoardViewModel{
		Query:     r.URL.Query().Get("q"),
		CSRFToken: csrfToken(w, r),
	}
	h.renderBoard(w, r, board, http.StatusOK)
}

// CreateAccount handles the add-account form.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	account := model.Account{
		Platform:        r.FormValue("platform"),
		Handle:          r.FormValue("handle"),
		Username:        r.FormValue("username"),
		Password:        r.FormValue("password"),
		TwoFactorSecret: r.FormValue("two_factor_secret"),
		Notes:           r.FormValue("notes"),
	}

	if _, err := h.vault.Create(r.Context(), account); err != nil {
		var verr *application.ValidationError
		if !errors.As(err, &verr) && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			h.logger.Error("failed to create account", "handle", account.Handle, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		board := vm.BoardViewModel{
			CSRFToken: csrfToken(w, r),
			Error:     err.Error(),
			Form: vm.AccountFormViewModel{
				Platform: account.Platform,
				Handle:   account.Handle,
				Username: account.Username,
				Notes:    account.Notes,
			},
		}
		h.renderBoard(w, r, board, http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeleteAccount handles the per-tile remove form.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	id := r.PathValue("id")
	if err := h.vault.Delete(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrAccountNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete account", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// renderBoard fills in the device data for board and writes the full page.
func (h *Handler) renderBoard(w http.ResponseWriter, r *http.Request, board vm.BoardViewModel, status int) {
	accounts, err := h.vault.List(r.Context(), board.Query)
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	groups := application.GroupByDevice(accounts)
	board.Devices = toDeviceViewModels(groups)
	board.Unplaced = toUnplacedViewModels(accounts, groups)
	board.TotalAccounts = len(accounts)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	layout := templates.Layout("Account Vault", pages.Board(board))
	if err := layout.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
	}
}
