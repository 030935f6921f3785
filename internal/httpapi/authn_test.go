package httpapi

import (
	"net/http"
	"testing"
)

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestAPI(t).Handler()

	for _, c := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/services"},
		{http.MethodGet, "/v1/organizations"},
		{http.MethodGet, "/v1/apikeys?user_id=u1"},
		{http.MethodDelete, "/v1/apikeys/some-id"},
	} {
		rec := doJSON(t, h, c.method, c.path, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s status = %d, want 401", c.method, c.path, rec.Code)
		}
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	h := newTestAPI(t).Handler()

	// These must not answer 401 without a token; they have their own
	// validation semantics.
	for _, c := range []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/v1/keyexchange/public", http.StatusNotFound},
		{http.MethodPost, "/v1/users/register", http.StatusBadRequest},
		{http.MethodPost, "/v1/tickets/validate", http.StatusBadRequest},
		{http.MethodPost, "/v1/apikeys/validate", http.StatusBadRequest},
	} {
		rec := doJSON(t, h, c.method, c.path, nil, nil)
		if rec.Code != c.want {
			t.Fatalf("%s %s status = %d, want %d", c.method, c.path, rec.Code, c.want)
		}
	}
}

func TestRejectsGarbageBearerToken(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doJSON(t, h, http.MethodGet, "/v1/services", nil,
		map[string]string{"Authorization": "Bearer not-a-token"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/services", nil,
		map[string]string{"Authorization": "Basic dXNlcjpwYXNz"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	if _, err := extractBearerToken(""); err == nil {
		t.Fatal("expected error for empty header")
	}
	if _, err := extractBearerToken("Token abc"); err == nil {
		t.Fatal("expected error for wrong scheme")
	}
	if _, err := extractBearerToken("Bearer "); err == nil {
		t.Fatal("expected error for empty token")
	}
	got, err := extractBearerToken("bearer abc123")
	if err != nil || got != "abc123" {
		t.Fatalf("got %q, %v", got, err)
	}
}
