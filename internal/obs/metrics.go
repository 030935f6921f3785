package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets, // [0.005..10]
		},
		[]string{"method", "path", "status"},
	)

	credentialIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_issued_total",
			Help: "Credentials issued, by kind (tgt, service_ticket, access, refresh, api_key).",
		},
		[]string{"kind"},
	)

	credentialValidationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_validation_total",
			Help: "Credential validation attempts, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ready",
		Help: "Whether the service reports ready (1) or not (0).",
	})
)

// Регистрация метрик в default-регистре.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		credentialIssuedTotal,
		credentialValidationTotal,
		readyGauge,
	)
}

// Хэндлер Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CredentialIssued increments the issuance counter for a credential kind.
func CredentialIssued(kind string) {
	credentialIssuedTotal.WithLabelValues(kind).Inc()
}

// CredentialValidated records a validation attempt and its result
// ("ok", "invalid", "expired").
func CredentialValidated(kind, result string) {
	credentialValidationTotal.WithLabelValues(kind, result).Inc()
}

// SetReady publishes the readiness state as a gauge.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// CanonicalPath collapses identifier path segments so metric labels stay low
// cardinality. Only the routes that embed ids need rewriting.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 3 && parts[0] == "v1" && parts[1] == "apikeys" && parts[2] != "validate" {
		return "/v1/apikeys/:id"
	}
	if len(parts) == 3 && parts[0] == "v1" && parts[1] == "users" && parts[2] != "register" && parts[2] != "login" {
		return "/v1/users/:id"
	}
	return path
}

// Обёртка для измерения RPS/latency/в полёте.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter — локальная копия, чтобы знать код ответа.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
