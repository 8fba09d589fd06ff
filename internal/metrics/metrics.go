package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame processing counters
	FramesProcessed atomic.Uint64
	FramesSkipped   atomic.Uint64
	Violations      atomic.Uint64

	// Streaming
	ActiveStreams atomic.Int64
	TotalStreams  atomic.Uint64
	StreamErrors  atomic.Uint64

	// Alerting
	AlertActive  atomic.Uint64 // 0 = idle, 1 = alerting
	AlertClients atomic.Int64
	LastFPS      atomic.Uint64

	// Uploads
	Uploads atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name, help string
		value      *atomic.Uint64
	}{
		{"ppe_frames_processed_total", "Total frames run through the detector", &m.FramesProcessed},
		{"ppe_frames_skipped_total", "Total frames dropped because encoding failed", &m.FramesSkipped},
		{"ppe_violations_total", "Total violation episodes (compliant to violating transitions)", &m.Violations},
		{"ppe_streams_total", "Total HTTP video streams opened", &m.TotalStreams},
		{"ppe_stream_errors_total", "Total streams ended with the placeholder image", &m.StreamErrors},
		{"ppe_uploads_total", "Total uploaded videos", &m.Uploads},
	}
	for _, c := range counters {
		value := c.value
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(value.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ppe_active_streams",
			Help: "Number of HTTP video streams currently served",
		},
		func() float64 { return float64(m.ActiveStreams.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ppe_alert_active",
			Help: "Alert sound active (0=idle, 1=alerting)",
		},
		func() float64 { return float64(m.AlertActive.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ppe_alert_clients",
			Help: "Number of connected alert feed viewers",
		},
		func() float64 { return float64(m.AlertClients.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ppe_fps",
			Help: "Frame rate of the most recently processed frame",
		},
		func() float64 { return float64(m.LastFPS.Load()) },
	))
}

// StreamStarted marks a new HTTP stream. Safe on a nil receiver.
func (m *Metrics) StreamStarted() {
	if m == nil {
		return
	}
	m.ActiveStreams.Add(1)
	m.TotalStreams.Add(1)
}

// StreamFinished marks the end of an HTTP stream; failed streams count as errors.
func (m *Metrics) StreamFinished(failed bool) {
	if m == nil {
		return
	}
	m.ActiveStreams.Add(-1)
	if failed {
		m.StreamErrors.Add(1)
	}
}

// FrameProcessed records one annotated frame and its frame rate.
func (m *Metrics) FrameProcessed(fps int) {
	if m == nil {
		return
	}
	m.FramesProcessed.Add(1)
	m.LastFPS.Store(uint64(max(fps, 0)))
}

// FrameSkipped records a frame that could not be encoded.
func (m *Metrics) FrameSkipped() {
	if m == nil {
		return
	}
	m.FramesSkipped.Add(1)
}

// ViolationStarted records the first frame of a violation episode.
func (m *Metrics) ViolationStarted() {
	if m == nil {
		return
	}
	m.Violations.Add(1)
}

// SetAlerting records the alert controller state.
func (m *Metrics) SetAlerting(active bool) {
	if m == nil {
		return
	}
	if active {
		m.AlertActive.Store(1)
	} else {
		m.AlertActive.Store(0)
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
