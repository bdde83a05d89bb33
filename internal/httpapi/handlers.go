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

	"cratevault.org/internal/auth"
	"cratevault.org/internal/obs"
	"cratevault.org/internal/registry"
)

// ReadyProbe is a simple readiness check (e.g. a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer: the cargo-compatible registry surface plus token
// management and the usual probes.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	baseURL    string

	repo      registry.Repository
	publisher *registry.Publisher
	tokens    *auth.TokenService
	sessions  *auth.Sessions

	rateBurst  int
	ratePerSec int
	maxBody    int64
}

func New(rp ReadyProbe, version, baseURL string, repo registry.Repository,
	publisher *registry.Publisher, tokens *auth.TokenService, sessions *auth.Sessions) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		repo:       repo,
		publisher:  publisher,
		tokens:     tokens,
		sessions:   sessions,
		rateBurst:  20,
		ratePerSec: 10,
		maxBody:    16 << 20,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// registry protocol
	a.mux.HandleFunc("/config.json", a.ConfigJSON)
	a.mux.HandleFunc("/me", a.RedirectForToken)
	a.mux.HandleFunc("/api/v1/crates/", a.handleCrates)

	// session + token management
	a.mux.HandleFunc("/v1/auth/session", a.handleSession)
	a.mux.HandleFunc("/v1/tokens", a.handleTokensCollection)
	a.mux.HandleFunc("/v1/tokens/", a.handleTokenResource)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// everything else is an index lookup
	a.mux.HandleFunc("/", a.handleIndex)

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// SetRateLimit overrides the default per-IP rate limit.
func (a *API) SetRateLimit(burst, perSec int) {
	a.rateBurst = burst
	a.ratePerSec = perSec
}

// SetMaxPublishBytes overrides the request body cap.
func (a *API) SetMaxPublishBytes(n int64) {
	if n > 0 {
		a.maxBody = n
	}
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "cratevault-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "cratevault-api",
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
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeRegistryError uses the error body shape cargo clients understand.
func writeRegistryError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]any{
		"errors": []map[string]string{{"detail": detail}},
	})
}

// handleRegistryError classifies a registry error into a status code without
// leaking internals on unexpected failures.
func handleRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		dup        *registry.DuplicateVersionError
		pkgMissing *registry.PackageNotFoundError
		verMissing *registry.VersionNotFoundError
	)
	switch {
	case errors.Is(err, registry.ErrMalformedPayload):
		writeRegistryError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &dup):
		writeRegistryError(w, http.StatusConflict, dup.Error())
	case errors.Is(err, registry.ErrWriteConflict):
		writeRegistryError(w, http.StatusConflict, "concurrent publish detected, please retry")
	case errors.As(err, &pkgMissing):
		writeRegistryError(w, http.StatusNotFound, pkgMissing.Error())
	case errors.As(err, &verMissing):
		writeRegistryError(w, http.StatusNotFound, verMissing.Error())
	case errors.Is(err, registry.ErrNotOwner):
		writeRegistryError(w, http.StatusForbidden, err.Error())
	default:
		obs.LogRequest(map[string]any{
			"level":      "error",
			"msg":        "registry operation failed",
			"error":      err.Error(),
			"request_id": RequestIDFromContext(r.Context()),
		})
		writeRegistryError(w, http.StatusInternalServerError, "internal server error")
	}
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

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
