package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"authgrid.org/internal/audit"
	"authgrid.org/internal/directory"
	"authgrid.org/internal/obs"
	"authgrid.org/internal/ticket"
)

type serviceTicketRequest struct {
	TGT     string `json:"tgt"`
	Service string `json:"service"`
}

type serviceTicketResponse struct {
	ServiceTicket string `json:"service_ticket"`
	Service       string `json:"service"`
}

// handleServiceTicket exchanges a valid TGT for a ticket scoped to one
// service. The caller must hold an active assignment on that service.
func (a *API) handleServiceTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req serviceTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Service) == "" {
		writeError(w, r, http.StatusBadRequest, "service is required")
		return
	}

	p, err := a.tickets.ValidateTGT(req.TGT)
	if err != nil {
		obs.CredentialValidated("tgt", "invalid")
		writeError(w, r, http.StatusUnauthorized, "invalid ticket")
		return
	}
	obs.CredentialValidated("tgt", "ok")

	svc, err := a.directory.FindService(r.Context(), req.Service)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	if _, err := a.directory.ActiveAssignment(r.Context(), p.UserID, svc.ID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, r, http.StatusForbidden, "no active assignment for service")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	st, err := a.tickets.IssueServiceTicket(p.UserID, svc.Name, p.SessionKey)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.CredentialIssued("service_ticket")
	_ = audit.LogEvent(r.Context(), "ticket.service.issued", map[string]any{
		"user_id": p.UserID,
		"service": svc.Name,
	})

	writeJSON(w, http.StatusOK, serviceTicketResponse{
		ServiceTicket: st,
		Service:       svc.Name,
	})
}

type ticketValidateRequest struct {
	Ticket  string `json:"ticket"`
	Service string `json:"service"`
}

type ticketValidateResponse struct {
	UserID     string `json:"user_id"`
	Service    string `json:"service"`
	SessionKey string `json:"session_key"`
	ExpiresAt  int64  `json:"expires_at"`
}

// handleTicketValidate lets a target service confirm a presented ticket and
// recover the session key shared with the caller.
func (a *API) handleTicketValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req ticketValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Service) == "" {
		writeError(w, r, http.StatusBadRequest, "service is required")
		return
	}

	p, err := a.tickets.ValidateServiceTicket(req.Ticket, req.Service)
	if err != nil {
		if errors.Is(err, ticket.ErrInvalid) {
			obs.CredentialValidated("service_ticket", "invalid")
			writeError(w, r, http.StatusUnauthorized, "invalid ticket")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	obs.CredentialValidated("service_ticket", "ok")

	writeJSON(w, http.StatusOK, ticketValidateResponse{
		UserID:     p.UserID,
		Service:    p.Service,
		SessionKey: p.SessionKey,
		ExpiresAt:  p.ExpiresAt,
	})
}

// handlePublicKey serves the PEM used by clients to seal login credentials.
func (a *API) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.keys == nil {
		writeError(w, r, http.StatusNotFound, "key exchange is not enabled")
		return
	}
	pub, err := a.keys.PublicKey()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pub)
}
