package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"prostaff.org/internal/notify"
	"prostaff.org/internal/obs"
	"prostaff.org/internal/roster"
	"prostaff.org/internal/tracking"
	"prostaff.org/internal/worktoken"
)

// ReadyProbe — readiness check (e.g., DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the work-hours tracking engine.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	tracking   tracking.Service
	roster     roster.Store
	issuer     *worktoken.Issuer
	stream     *notify.Stream
	dispatcher notify.Dispatcher

	tokenTTL     time.Duration
	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64

	// now is swapped in tests to pin timestamps.
	now func() time.Time
}

func New(rp ReadyProbe, version string, track tracking.Service, ros roster.Store, stream *notify.Stream, dispatcher notify.Dispatcher) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   rp,
		version:      version,
		tracking:     track,
		roster:       ros,
		issuer:       worktoken.NewIssuer(),
		stream:       stream,
		dispatcher:   dispatcher,
		tokenTTL:     time.Hour,
		rateBurst:    20,
		ratePerSec:   10,
		maxBodyBytes: 1 << 20,
		now:          func() time.Time { return time.Now().UTC() },
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// identity boundary (platform login is external; this mints dev tokens)
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	// work-hours engine
	a.mux.HandleFunc("/v1/work-schedule/", a.handleWorkSchedule)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Tune overrides the default token TTL, rate limits, and request body cap,
// typically from loaded configuration. Call before Handler.
func (a *API) Tune(tokenTTL time.Duration, rateBurst, ratePerSec int, maxBodyBytes int64) {
	if tokenTTL > 0 {
		a.tokenTTL = tokenTTL
	}
	if rateBurst > 0 {
		a.rateBurst = rateBurst
	}
	if ratePerSec > 0 {
		a.ratePerSec = ratePerSec
	}
	if maxBodyBytes > 0 {
		a.maxBodyBytes = maxBodyBytes
	}
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "prostaff-api",
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
		"name":    "prostaff-api",
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

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeErrorKind(w, r, code, "", msg, nil)
}

// writeErrorKind emits the error payload with a stable machine-readable
// kind tag so clients can branch without parsing messages.
func writeErrorKind(w http.ResponseWriter, r *http.Request, code int, kind, msg string, extra map[string]any) {
	payload := map[string]any{
		"error": msg,
	}
	if kind != "" {
		payload["kind"] = kind
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	for k, v := range extra {
		payload[k] = v
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
