// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "social_publisher"

type Metrics struct {
	PublishOutcomes *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec
	DispatchBatches prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PublishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publication_outcomes_total",
			Help:      "Dispatched publications by platform and result.",
		}, []string{"platform", "result"}),
		PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Time spent inside platform adapters.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform"}),
		DispatchBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_batches_total",
			Help:      "Dispatcher batch runs.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.PublishOutcomes, m.PublishDuration, m.DispatchBatches, m.HTTPRequests, m.HTTPDuration)
	return m
}

// The Observe helpers accept a nil receiver so callers can run without metrics.

func (m *Metrics) ObservePublish(platform, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.PublishOutcomes.WithLabelValues(platform, result).Inc()
	if d > 0 {
		m.PublishDuration.WithLabelValues(platform).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveBatch() {
	if m == nil {
		return
	}
	m.DispatchBatches.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
