// Package metrics defines the Prometheus counters exposed at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Requests       *prometheus.CounterVec
	MessagesPosted prometheus.Counter
	Uploads        *prometheus.CounterVec
	Registrations  prometheus.Counter
	Logins         *prometheus.CounterVec

	registry *prometheus.Registry
}

// New registers every collector on a private registry so several apps can
// coexist in one process.
func New() *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pastelfeed_http_requests_total",
				Help: "HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		MessagesPosted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pastelfeed_messages_posted_total",
				Help: "Messages posted to the wall.",
			},
		),
		Uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pastelfeed_uploads_total",
				Help: "Stored image uploads by purpose.",
			},
			[]string{"purpose"},
		),
		Registrations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pastelfeed_registrations_total",
				Help: "Successful user registrations.",
			},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pastelfeed_logins_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Requests,
		m.MessagesPosted,
		m.Uploads,
		m.Registrations,
		m.Logins,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// The helpers below are safe on a nil *Metrics.

func (m *Metrics) MessagePosted() {
	if m != nil {
		m.MessagesPosted.Inc()
	}
}

func (m *Metrics) Uploaded(purpose string) {
	if m != nil {
		m.Uploads.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) Registered() {
	if m != nil {
		m.Registrations.Inc()
	}
}

func (m *Metrics) Login(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.Logins.WithLabelValues(outcome).Inc()
}
