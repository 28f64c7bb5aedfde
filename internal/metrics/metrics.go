// Package metrics exposes reconciliation counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "anchorwatch"

// Cycle outcomes
const (
	OutcomeOK      = "ok"
	OutcomeFailure = "failure"
)

// Metrics holds every collector on its own registry
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal       *prometheus.CounterVec
	cycleDuration     prometheus.Histogram
	reconciledDevices prometheus.Gauge
	newDetections     prometheus.Counter
	sourceErrors      *prometheus.CounterVec
	whitelistAdds     *prometheus.CounterVec
	ingestReadings    *prometheus.CounterVec
	anchorsUp         prometheus.Gauge
	archiveWrites     *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, including the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Reconciliation cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a reconciliation cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		reconciledDevices: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconciled_devices",
			Help:      "Devices in the committed reconciled set.",
		}),
		newDetections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_detections_total",
			Help:      "Devices reported as new across all cycles.",
		}),
		sourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed fetches by source.",
		}, []string{"source"}),
		whitelistAdds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "whitelist_submissions_total",
			Help:      "Whitelist submissions by result.",
		}, []string{"result"}),
		ingestReadings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_readings_total",
			Help:      "Anchor readings received by result.",
		}, []string{"result"}),
		anchorsUp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "anchors_up",
			Help:      "Anchors answering the last probe.",
		}),
		archiveWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_writes_total",
			Help:      "Snapshot archive uploads by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records one finished cycle
func (m *Metrics) ObserveCycle(outcome string, elapsed time.Duration, devices, newItems int) {
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(elapsed.Seconds())
	if outcome != OutcomeOK {
		return
	}
	m.reconciledDevices.Set(float64(devices))
	m.newDetections.Add(float64(newItems))
}

// SourceError counts a failed fetch
func (m *Metrics) SourceError(source string) {
	m.sourceErrors.WithLabelValues(source).Inc()
}

// WhitelistSubmission counts a whitelist add attempt
func (m *Metrics) WhitelistSubmission(result string) {
	m.whitelistAdds.WithLabelValues(result).Inc()
}

// IngestReading counts an anchor upload
func (m *Metrics) IngestReading(result string) {
	m.ingestReadings.WithLabelValues(result).Inc()
}

// AnchorsUp sets the number of reachable anchors
func (m *Metrics) AnchorsUp(n int) {
	m.anchorsUp.Set(float64(n))
}

// ArchiveWrite counts a snapshot upload
func (m *Metrics) ArchiveWrite(outcome string) {
	m.archiveWrites.WithLabelValues(outcome).Inc()
}
