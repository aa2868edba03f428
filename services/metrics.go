package services

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics regroupe les collecteurs Prometheus de l'application.
// Toutes les méthodes acceptent un receveur nil.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	statusChanges   *prometheus.CounterVec
	adminLogins     *prometheus.CounterVec
	mediaOps        *prometheus.CounterVec
}

// NewMetrics enregistre les collecteurs sur un registre dédié
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_submissions_total",
			Help: "Registration submissions by outcome",
		}, []string{"outcome"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_status_changes_total",
			Help: "Admin decisions applied to registrations",
		}, []string{"status"}),
		adminLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_login_attempts_total",
			Help: "Admin login attempts by outcome",
		}, []string{"outcome"}),
		mediaOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_operations_total",
			Help: "Media store calls by operation and outcome",
		}, []string{"operation", "outcome"}),
	}

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.submissions, m.statusChanges, m.adminLogins, m.mediaOps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler expose les métriques au format Prometheus
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry expose le registre pour les tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest enregistre une requête HTTP
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, labelStatus).Inc()
}

// ObserveSubmission compte une soumission d'inscription
func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveStatusChange compte une décision admin
func (m *Metrics) ObserveStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// ObserveAdminLogin compte une tentative de connexion admin
func (m *Metrics) ObserveAdminLogin(outcome string) {
	if m == nil {
		return
	}
	m.adminLogins.WithLabelValues(outcome).Inc()
}

// ObserveMedia compte un appel au media store
func (m *Metrics) ObserveMedia(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mediaOps.WithLabelValues(operation, outcome).Inc()
}
