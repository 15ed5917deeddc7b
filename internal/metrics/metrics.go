// Package metrics exposes engine and transport counters to prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/distopia/districtview/pkg/engine"
)

// Metrics owns a registry and every collector registered on it.
type Metrics struct {
	registry *prometheus.Registry

	admitted     prometheus.Counter
	dropped      prometheus.Counter
	rejected     prometheus.Counter
	lastCounter  prometheus.Gauge
	repaintMs    prometheus.Histogram
	failures     *prometheus.CounterVec
	state        prometheus.Gauge
	messages     *prometheus.CounterVec
	reconnects   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "districtview_snapshots_admitted_total",
			Help: "Snapshots admitted by the ordering gate",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "districtview_snapshots_dropped_total",
			Help: "Stale or duplicate snapshots dropped by the ordering gate",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "districtview_snapshots_rejected_total",
			Help: "Snapshot messages that failed to decode",
		}),
		lastCounter: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "districtview_snapshot_last_counter",
			Help: "Counter of the last admitted snapshot",
		}),
		repaintMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "districtview_repaint_duration_ms",
			Help:    "Full repaint duration in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "districtview_repaint_failures_total",
			Help: "Failed repaints by reason",
		}, []string{"reason"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "districtview_engine_state",
			Help: "Engine lifecycle state (0 uninitialized .. 3 live)",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "districtview_transport_messages_total",
			Help: "Messages received by transport and topic",
		}, []string{"transport", "topic"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "districtview_transport_reconnects_total",
			Help: "Transport reconnect attempts",
		}, []string{"transport"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "districtview_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"route", "status"}),
	}
	m.registry.MustRegister(
		m.admitted, m.dropped, m.rejected, m.lastCounter, m.repaintMs,
		m.failures, m.state, m.messages, m.reconnects, m.httpRequests,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SnapshotAdmitted(counter int64) {
	m.admitted.Inc()
	m.lastCounter.Set(float64(counter))
}

func (m *Metrics) SnapshotDropped()  { m.dropped.Inc() }
func (m *Metrics) SnapshotRejected() { m.rejected.Inc() }

func (m *Metrics) RepaintDone(d time.Duration) {
	m.repaintMs.Observe(float64(d.Microseconds()) / 1000)
}

func (m *Metrics) RepaintFailed(reason string) { m.failures.WithLabelValues(reason).Inc() }

func (m *Metrics) StateChanged(s engine.State) { m.state.Set(float64(s)) }

// MessageReceived counts one inbound transport message.
func (m *Metrics) MessageReceived(transport, topic string) {
	m.messages.WithLabelValues(transport, topic).Inc()
}

// Reconnected counts one reconnect attempt.
func (m *Metrics) Reconnected(transport string) {
	m.reconnects.WithLabelValues(transport).Inc()
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(route string, status int) {
	m.httpRequests.WithLabelValues(route, httpStatus(status)).Inc()
}

func httpStatus(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}

var _ engine.Recorder = (*Metrics)(nil)
