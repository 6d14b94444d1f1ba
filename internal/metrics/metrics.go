// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RelayRequests counts relay outcomes: knowledge_base, intent, or an error kind.
	RelayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "querybee_relay_requests_total",
		Help: "Relay requests by outcome",
	}, []string{"outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "querybee_upstream_request_duration_seconds",
		Help:    "Latency of detectIntent calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"transport", "result"})

	TokenExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "querybee_token_exchanges_total",
		Help: "Service-account token exchanges by result",
	}, []string{"result"})

	ManualTokenFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "querybee_manual_token_fallbacks_total",
		Help: "Retries with a service-account token after the manual token was rejected",
	})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "querybee_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		httpRequestDuration.WithLabelValues(r.Method, path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
