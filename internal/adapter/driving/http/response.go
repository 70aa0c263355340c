package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/accountvault/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AccountResponse is the JSON representation of an account. Secrets are only
// populated on the single-account endpoint.
type AccountResponse struct {
	ID              string `json:"id"`
	Platform        string `json:"platform"`
	Handle          string `json:"handle"`
	Username        string `json:"username"`
	Password        string `json:"password,omitempty"`
	TwoFactorSecret string `json:"two_factor_secret,omitempty"`
	HasPassword     bool   `json:"has_password"`
	HasTwoFactor    bool   `json:"has_two_factor"`
	Notes           string `json:"notes"`
	UpdatedAt       string `json:"updated_at"`
}

// AccountRequest is the JSON body for the create and replace endpoints.
type AccountRequest struct {
	Platform        string `json:"platform"`
	Handle          string `json:"handle"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	TwoFactorSecret string `json:"two_factor_secret"`
	Notes           string `json:"notes"`
}

// DeviceGroupResponse is the JSON representation of an inferred device.
type DeviceGroupResponse struct {
	Key         string            `json:"key"`
	DisplayName string            `json:"display_name"`
	Kind        string            `json:"kind"`
	SortOrder   int64             `json:"sort_order"`
	Members     []AccountResponse `json:"members"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func (req AccountRequest) toModel(id string) model.Account {
	return model.Account{
		ID:              id,
		Platform:        req.Platform,
		Handle:          req.Handle,
		Username:        req.Username,
		Password:        req.Password,
		TwoFactorSecret: req.TwoFactorSecret,
		Notes:           req.Notes,
	}
}

// toAccountResponse converts a domain Account to its JSON representation.
// Secrets are included only when withSecrets is true.
func toAccountResponse(a model.Account, withSecrets bool) AccountResponse {
	resp := AccountResponse{
		ID:           a.ID,
		Platform:     a.Platform,
		Handle:       a.Handle,
		Username:     a.Username,
		HasPassword:  a.Password != "",
		HasTwoFactor: a.TwoFactorSecret != "",
		Notes:        a.Notes,
		UpdatedAt:    formatTimestamp(a.UpdatedAt),
	}
	if withSecrets {
		resp.Password = a.Password
		resp.TwoFactorSecret = a.TwoFactorSecret
	}
	return resp
}

func toAccountResponses(accounts []model.Account) []AccountResponse {
	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a, false))
	}
	return resp
}

// toDeviceGroupResponses converts device groups to their JSON representation,
// preserving order.
func toDeviceGroupResponses(groups []model.DeviceGroup) []DeviceGroupResponse {
	resp := make([]DeviceGroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, DeviceGroupResponse{
			Key:         g.Key,
			DisplayName: g.DisplayName,
			Kind:        string(g.Kind),
			SortOrder:   g.SortOrder,
			Members:     toAccountResponses(g.Members),
		})
	}
	return resp
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
