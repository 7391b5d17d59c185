// Package metrics holds the Prometheus collectors shared by the API
// transport and the notification sink.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mhestore"

// Metrics groups the storefront client collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Toasts   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "REST API requests by method and status class.",
		}, []string{"method", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "REST API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Toasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User notifications emitted by level.",
		}, []string{"level"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Latency, m.Toasts)
	}
	return m
}

// StatusClass buckets an HTTP status code ("2xx", "4xx", ...). Zero means
// the request never got a response.
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
