package httpapi

import (
	"net/http"

	"authgrid.org/internal/audit"
)

type createServiceRequest struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
}

func (a *API) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createServiceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		svc, err := a.directory.CreateService(r.Context(), req.OrganizationID, req.Name, req.Description)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "service.created", map[string]any{
			"service_id": svc.ID,
			"name":       svc.Name,
		})
		writeJSON(w, http.StatusCreated, svc)

	case http.MethodGet:
		services, err := a.directory.ListServices(r.Context())
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})

	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

type assignServiceRequest struct {
	UserID    string `json:"user_id"`
	ServiceID string `json:"service_id"`
	Role      string `json:"role"`
}

func (a *API) handleServiceAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req assignServiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	assignment, err := a.directory.AssignService(r.Context(), req.UserID, req.ServiceID, req.Role)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "service.assigned", map[string]any{
		"user_id":    assignment.UserID,
		"service_id": assignment.ServiceID,
		"role":       assignment.Role,
	})
	writeJSON(w, http.StatusCreated, assignment)
}

type createOrganizationRequest struct {
	Name string `json:"name"`
}

func (a *API) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createOrganizationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		org, err := a.directory.CreateOrganization(r.Context(), req.Name)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, org)

	case http.MethodGet:
		orgs, err := a.directory.ListOrganizations(r.Context())
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})

	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}
