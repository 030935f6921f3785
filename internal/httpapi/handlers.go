package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"authgrid.org/internal/apikey"
	"authgrid.org/internal/directory"
	"authgrid.org/internal/keyring"
	"authgrid.org/internal/obs"
	"authgrid.org/internal/ticket"
	"authgrid.org/internal/token"
)

// ReadyProbe — простая проверка готовности (например, ping БД).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the credential services into the HTTP layer.
type Config struct {
	Directory  *directory.Directory
	Tickets    *ticket.Authority
	Tokens     *token.Authority
	Keys       *keyring.Ring
	APIKeys    *apikey.Service
	ReadyProbe ReadyProbe
	Version    string
}

// API — HTTP слой.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	directory *directory.Directory
	tickets   *ticket.Authority
	tokens    *token.Authority
	keys      *keyring.Ring
	apikeys   *apikey.Service
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
		directory:  cfg.Directory,
		tickets:    cfg.Tickets,
		tokens:     cfg.Tokens,
		keys:       cfg.Keys,
		apikeys:    cfg.APIKeys,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// accounts and sessions
	a.mux.HandleFunc("/v1/users/register", a.handleRegister)
	a.mux.HandleFunc("/v1/users/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)

	// tickets
	a.mux.HandleFunc("/v1/tickets/service", a.handleServiceTicket)
	a.mux.HandleFunc("/v1/tickets/validate", a.handleTicketValidate)

	// key exchange
	a.mux.HandleFunc("/v1/keyexchange/public", a.handlePublicKey)

	// API keys
	a.mux.HandleFunc("/v1/apikeys", a.handleAPIKeysCollection)
	a.mux.HandleFunc("/v1/apikeys/validate", a.handleAPIKeyValidate)
	a.mux.HandleFunc("/v1/apikeys/", a.handleAPIKeyResource)

	// directory
	a.mux.HandleFunc("/v1/services", a.handleServices)
	a.mux.HandleFunc("/v1/services/assign", a.handleServiceAssign)
	a.mux.HandleFunc("/v1/organizations", a.handleOrganizations)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler возвращает http.Handler для сервера (без доп. аргументов).
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authgrid-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "authgrid-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
