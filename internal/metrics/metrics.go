// Package metrics содержит Prometheus-метрики storyflow и HTTP middleware,
// считающий запросы по шаблону маршрута chi.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storyflow"

// Metrics набор коллекторов. Методы безопасно вызывать на nil.
type Metrics struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	entitlementChecks *prometheus.CounterVec
	premiumExpired    *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		entitlementChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_checks_total",
			Help:      "Can-submit-article decisions by result.",
		}, []string{"result"}),
		premiumExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "premium_expired_total",
			Help:      "Premium grants cleared after expiry, by source.",
		}, []string{"source"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.entitlementChecks, m.premiumExpired)
	return m
}

// Middleware считает запросы и их длительность.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// EntitlementChecked фиксирует решение о праве добавить статью.
func (m *Metrics) EntitlementChecked(allowed bool) {
	if m == nil {
		return
	}
	m.entitlementChecks.WithLabelValues(strconv.FormatBool(allowed)).Inc()
}

// PremiumExpired фиксирует очистку истёкшего доступа; source: signin или sweeper.
func (m *Metrics) PremiumExpired(source string) {
	if m == nil {
		return
	}
	m.premiumExpired.WithLabelValues(source).Inc()
}
