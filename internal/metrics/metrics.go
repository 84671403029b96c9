// Package metrics exposes Prometheus collectors for the companion core.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	responsesTotal  *prometheus.CounterVec
	fallbacksTotal  prometheus.Counter
	confidence      prometheus.Histogram
	resetsTotal     prometheus.Counter
	sessionsCreated prometheus.Counter
}

// NewCollector registers the collectors on a private registry so several
// collectors can coexist in one process (tests, CLI).
func NewCollector(serviceName string) *Collector {
	ns := strings.ReplaceAll(serviceName, "-", "_")
	c := &Collector{registry: prometheus.NewRegistry()}

	c.responsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "responses_total",
			Help:      "Assistant replies by template intent",
		},
		[]string{"intent"},
	)
	c.fallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "knowledge_fallbacks_total",
		Help:      "Replies built on the generic fallback entry",
	})
	c.confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "response_confidence",
		Help:      "Confidence attached to assistant replies",
		Buckets:   []float64{0.5, 0.7, 0.8, 0.9, 0.95, 1.0},
	})
	c.resetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "session_resets_total",
		Help:      "Session resets",
	})
	c.sessionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "sessions_created_total",
		Help:      "Sessions created",
	})

	c.registry.MustRegister(
		c.responsesTotal,
		c.fallbacksTotal,
		c.confidence,
		c.resetsTotal,
		c.sessionsCreated,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) ObserveResponse(intent string, confidence float64, fallback bool) {
	c.responsesTotal.WithLabelValues(intent).Inc()
	c.confidence.Observe(confidence)
	if fallback {
		c.fallbacksTotal.Inc()
	}
}

func (c *Collector) ObserveReset() {
	c.resetsTotal.Inc()
}

func (c *Collector) ObserveSessionCreated() {
	c.sessionsCreated.Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
