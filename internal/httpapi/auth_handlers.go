package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"authgrid.org/internal/audit"
	"authgrid.org/internal/keyring"
	"authgrid.org/internal/obs"
	"authgrid.org/internal/ticket"
	"authgrid.org/internal/token"
)

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	DateOfBirth     string `json:"date_of_birth"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// Alternative to the plain fields: credentials sealed with the published
	// RSA key. EncryptedData is base64 of OAEP ciphertext over the JSON
	// {"email":...,"password":...}; KeyID names the private key.
	EncryptedData string `json:"encrypted_data"`
	KeyID         string `json:"key_id"`
}

type loginResponse struct {
	UserID           string    `json:"user_id"`
	SessionKey       string    `json:"session_key"`
	TGT              string    `json:"tgt"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password != req.PasswordConfirm {
		writeError(w, r, http.StatusBadRequest, "passwords do not match")
		return
	}

	u, err := a.directory.RegisterUser(r.Context(), req.Name, req.Email, req.Password, req.DateOfBirth)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.registered", map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
	})
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email, password, err := a.loginCredentials(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := a.directory.Authenticate(r.Context(), email, password)
	if err != nil {
		obs.CredentialValidated("password", "invalid")
		handleDirectoryError(w, r, err)
		return
	}
	obs.CredentialValidated("password", "ok")

	sessionKey, err := ticket.GenerateSessionKey()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	tgt, err := a.tickets.IssueTGT(u.ID, sessionKey)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	access, accessExp, err := a.tokens.IssueAccess(u.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	refresh, refreshExp, err := a.tokens.IssueRefresh(u.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.CredentialIssued("tgt")
	obs.CredentialIssued("access")
	obs.CredentialIssued("refresh")
	_ = audit.LogEvent(r.Context(), "user.login", map[string]any{
		"user_id": u.ID,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		UserID:           u.ID,
		SessionKey:       sessionKey,
		TGT:              tgt,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	})
}

// loginCredentials resolves the plain or sealed credential form of a login
// request into an email and password pair.
func (a *API) loginCredentials(req loginRequest) (string, string, error) {
	if req.EncryptedData == "" {
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			return "", "", errors.New("email and password are required")
		}
		return req.Email, req.Password, nil
	}
	if a.keys == nil {
		return "", "", errors.New("encrypted login is not enabled")
	}
	if req.KeyID == "" {
		return "", "", errors.New("key_id is required with encrypted_data")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(req.EncryptedData)
	if err != nil {
		return "", "", errors.New("encrypted_data must be base64")
	}
	plaintext, err := a.keys.Decrypt(ciphertext, req.KeyID)
	if err != nil {
		if errors.Is(err, keyring.ErrUnknownKey) {
			return "", "", errors.New("unknown key_id")
		}
		return "", "", errors.New("decryption failed")
	}
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return "", "", errors.New("decrypted payload is not valid JSON")
	}
	if creds.Email == "" || creds.Password == "" {
		return "", "", errors.New("email and password are required")
	}
	return creds.Email, creds.Password, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	claims, err := a.tokens.Verify(req.RefreshToken, token.Refresh)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			obs.CredentialValidated("refresh", "expired")
			writeError(w, r, http.StatusUnauthorized, "refresh token expired")
			return
		}
		obs.CredentialValidated("refresh", "invalid")
		writeError(w, r, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	// The account may have been removed since the token was minted.
	u, err := a.directory.FindUser(r.Context(), claims.Subject)
	if err != nil {
		obs.CredentialValidated("refresh", "invalid")
		writeError(w, r, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	obs.CredentialValidated("refresh", "ok")

	access, accessExp, err := a.tokens.IssueAccess(u.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	obs.CredentialIssued("access")
	_ = audit.LogEvent(r.Context(), "token.refreshed", map[string]any{
		"user_id": u.ID,
	})

	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:     access,
		AccessExpiresAt: accessExp,
	})
}
