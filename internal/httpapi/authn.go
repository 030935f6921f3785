package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"authgrid.org/internal/obs"
	"authgrid.org/internal/token"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Paths reachable without an access token. Everything else behind /v1
// requires a bearer token. Credential validation endpoints stay public: the
// callers presenting tickets or API keys do not hold access tokens.
var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/users/register",
	"/v1/users/login",
	"/v1/auth/refresh",
	"/v1/keyexchange/public",
	"/v1/tickets/service",
	"/v1/tickets/validate",
	"/v1/apikeys/validate",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.tokens.Verify(raw, token.Access)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				obs.CredentialValidated("access", "expired")
				writeError(w, r, http.StatusUnauthorized, "token expired")
				return
			}
			obs.CredentialValidated("access", "invalid")
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		obs.CredentialValidated("access", "ok")

		ctx := token.ContextWithSubject(r.Context(), claims.Subject)
		ctx = token.ContextWithToken(ctx, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	raw := strings.TrimSpace(header[len(bearer):])
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	return raw, nil
}
