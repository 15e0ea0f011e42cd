// Package metrics provides Prometheus instrumentation for the launchpad engine.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PurchasesTotal counts completed purchases, partitioned by entrypoint
	// ("public" or "whitelisted").
	PurchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "launchpad_purchases_total",
		Help: "Total number of completed purchases",
	}, []string{"path"})

	// PurchaseRejections counts aborted purchases by error kind.
	PurchaseRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "launchpad_purchase_rejections_total",
		Help: "Purchases aborted, by reason",
	}, []string{"path", "reason"})

	// PurchaseLatency tracks end-to-end purchase duration including lock wait.
	PurchaseLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "launchpad_purchase_latency_seconds",
		Help:    "Purchase execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	// ProceedsTotal tracks cumulative payment forwarded to listings, in
	// smallest currency units.
	ProceedsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "launchpad_proceeds_units_total",
		Help: "Cumulative payment collected in smallest currency units",
	}, []string{"currency"})

	// MarketsCreated counts fixed-price markets by registration path.
	MarketsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "launchpad_markets_created_total",
		Help: "Fixed-price markets created",
	}, []string{"path"})

	// PriceUpdates counts successful admin price changes.
	PriceUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_price_updates_total",
		Help: "Successful market price updates",
	})

	// CertificatesBurned counts whitelist certificates consumed by purchases.
	CertificatesBurned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_certificates_burned_total",
		Help: "Whitelist certificates consumed",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "launchpad_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "launchpad_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "launchpad_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
