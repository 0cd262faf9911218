// Package metrics exposes Prometheus counters for the proxy behind an
// explicit registry, so tests and multiple server instances never collide on
// the global default.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prefixproxy"

// Collector owns the proxy's metric instruments.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	timestampsStripped prometheus.Counter
	messageIDsStripped prometheus.Counter
	itemsModified      prometheus.Counter
	streamBytes        prometheus.Counter
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Wall-clock request duration, including stream lifetime.",
			// Inference latencies: sub-second health checks up to multi-minute streams.
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 120, 300},
		}, []string{"path"}),
		timestampsStripped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timestamps_stripped_total",
			Help:      "Timestamp prefixes removed from request input.",
		}),
		messageIDsStripped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_ids_stripped_total",
			Help:      "message_id fragments removed from request input.",
		}),
		itemsModified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_modified_total",
			Help:      "Input items rewritten by normalization.",
		}),
		streamBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_bytes_relayed_total",
			Help:      "Bytes relayed to clients on streaming responses.",
		}),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.timestampsStripped,
		c.messageIDsStripped,
		c.itemsModified,
		c.streamBytes,
	)
	return c
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one completed request.
func (c *Collector) RecordRequest(method, path, status string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, path, status).Inc()
	c.requestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordNormalization records what one normalization pass removed.
func (c *Collector) RecordNormalization(timestamps, messageIDs, itemsModified int) {
	c.timestampsStripped.Add(float64(timestamps))
	c.messageIDsStripped.Add(float64(messageIDs))
	c.itemsModified.Add(float64(itemsModified))
}

// RecordStreamBytes records bytes relayed on a finished stream.
func (c *Collector) RecordStreamBytes(n int64) {
	c.streamBytes.Add(float64(n))
}
