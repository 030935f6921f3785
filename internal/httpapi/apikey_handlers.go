package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"authgrid.org/internal/apikey"
	"authgrid.org/internal/audit"
	"authgrid.org/internal/directory"
	"authgrid.org/internal/obs"
)

type apiKeyGenerateRequest struct {
	UserID     string   `json:"user_id"`
	Service    string   `json:"service"`
	Scopes     []string `json:"scopes"`
	TTLSeconds int64    `json:"ttl_seconds"`
}

type apiKeyGenerateResponse struct {
	ID        string    `json:"id"`
	APIKey    string    `json:"api_key"`
	UserID    string    `json:"user_id"`
	ServiceID string    `json:"service_id"`
	Role      string    `json:"role"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleAPIKeysCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.generateAPIKey(w, r)
	case http.MethodGet:
		a.listAPIKeys(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) generateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyGenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Service) == "" {
		writeError(w, r, http.StatusBadRequest, "user_id and service are required")
		return
	}

	if _, err := a.directory.FindUser(r.Context(), req.UserID); err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	svc, err := a.directory.FindService(r.Context(), req.Service)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	// The key inherits its role from the user's assignment; without one the
	// user has no standing on the service at all.
	assignment, err := a.directory.ActiveAssignment(r.Context(), req.UserID, svc.ID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, r, http.StatusForbidden, "no active assignment for service")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	k, raw, err := a.apikeys.Generate(r.Context(), req.UserID, svc.ID, assignment.Role, req.Scopes, ttl)
	if err != nil {
		handleAPIKeyError(w, r, err)
		return
	}

	obs.CredentialIssued("api_key")
	_ = audit.LogEvent(r.Context(), "apikey.generated", map[string]any{
		"key_id":     k.ID,
		"owner_id":   k.UserID,
		"service_id": k.ServiceID,
		"role":       k.Role,
	})

	writeJSON(w, http.StatusCreated, apiKeyGenerateResponse{
		ID:        k.ID,
		APIKey:    raw,
		UserID:    k.UserID,
		ServiceID: k.ServiceID,
		Role:      k.Role,
		Scopes:    k.Scopes,
		ExpiresAt: k.ExpiresAt,
	})
}

func (a *API) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	keys, err := a.apikeys.List(r.Context(), userID)
	if err != nil {
		handleAPIKeyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// handleAPIKeyResource covers /v1/apikeys/{id}.
func (a *API) handleAPIKeyResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/apikeys/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}

	if err := a.apikeys.Revoke(r.Context(), id); err != nil {
		handleAPIKeyError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "apikey.revoked", map[string]any{
		"key_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"revoked": true,
	})
}

type apiKeyValidateRequest struct {
	APIKey string `json:"api_key"`
}

func (a *API) handleAPIKeyValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	raw := bearerAPIKey(r.Header.Get(authHeader))
	if raw == "" {
		var req apiKeyValidateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		raw = req.APIKey
	}

	k, err := a.apikeys.Validate(r.Context(), raw)
	if err != nil {
		result := "invalid"
		if errors.Is(err, apikey.ErrExpired) {
			result = "expired"
		}
		obs.CredentialValidated("api_key", result)
		handleAPIKeyError(w, r, err)
		return
	}
	obs.CredentialValidated("api_key", "ok")

	writeJSON(w, http.StatusOK, k)
}

// bearerAPIKey pulls a raw key out of an Authorization header, tolerating a
// missing or non-bearer header.
func bearerAPIKey(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}
