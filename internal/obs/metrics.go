package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

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
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	publishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_publishes_total",
			Help: "Publish attempts by outcome.",
		},
		[]string{"result"},
	)

	yanksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_yanks_total",
			Help: "Yank and unyank operations.",
		},
		[]string{"action"},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
		publishesTotal, yanksTotal)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountPublish records one publish attempt. result is "ok", "duplicate",
// "malformed", "conflict" or "error".
func CountPublish(result string) {
	publishesTotal.WithLabelValues(result).Inc()
}

// CountYank records a yank ("yank") or unyank ("unyank") operation.
func CountYank(action string) {
	yanksTotal.WithLabelValues(action).Inc()
}

// Instrument wraps an http.Handler with RPS/latency/in-flight metrics.
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

// CanonicalPath collapses dynamic path segments so metric cardinality stays
// bounded. Crate names and versions become placeholders; the sharded index
// paths all fold into one label.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p == "/" {
		return "/"
	}

	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) >= 4 && segs[0] == "api" && segs[1] == "v1" && segs[2] == "crates" {
		rest := segs[3:]
		switch {
		case len(rest) == 1 && rest[0] == "new":
			return "/api/v1/crates/new"
		case len(rest) == 2 && rest[1] == "owners":
			return "/api/v1/crates/:name/owners"
		case len(rest) == 3:
			return "/api/v1/crates/:name/:version/" + rest[2]
		}
	}
	if len(segs) == 3 && segs[0] == "v1" && segs[1] == "tokens" {
		return "/v1/tokens/:id"
	}

	switch p {
	case "/api/v1/crates/new", "/v1/tokens", "/v1/info", "/config.json",
		"/me", "/healthz", "/readyz", "/metrics":
		return p
	}
	return "/index"
}

// statusWriter captures the response code for the metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
