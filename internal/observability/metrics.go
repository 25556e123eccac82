package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion service.
type Metrics struct {
	ReadingsStored      *prometheus.CounterVec // labels: source={direct,chirpstack}
	EventsIgnored       *prometheus.CounterVec // labels: reason
	ValidationErrors    prometheus.Counter
	CalibrationNotFound prometheus.Counter

	// Conversion metrics.
	ConversionFallbacks *prometheus.CounterVec // labels: reason
	ConversionClamped   prometheus.Counter

	// Warehouse metrics.
	StorageErrors  prometheus.Counter
	InsertDuration prometheus.Histogram

	// Kafka mirror metrics.
	ReadingsMirrored prometheus.Counter
	MirrorErrors     prometheus.Counter
	MirrorEnabled    prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReadingsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tank_ingest",
			Name:      "readings_stored_total",
			Help:      "Readings written to the warehouse, by payload source.",
		}, []string{"source"}),
		EventsIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tank_ingest",
			Name:      "events_ignored_total",
			Help:      "Inbound messages acknowledged but ignored, by reason.",
		}, []string{"reason"}),
		ValidationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_ingest",
			Name:      "validation_errors_total",
			Help:      "Rejected payloads with missing or malformed required fields.",
		}),
		CalibrationNotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_ingest",
			Name:      "calibration_not_found_total",
			Help:      "Ingest attempts for device ids with no calibration row.",
		}),
		ConversionFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tank_ingest",
			Name:      "conversion_fallbacks_total",
			Help:      "Conversions that degraded to pass-through, by reason.",
		}, []string{"reason"}),
		ConversionClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_ingest",
			Name:      "conversion_clamped_total",
			Help:      "Conversions where the raw distance fell outside the tank's physical envelope.",
		}),
		StorageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_ingest",
			Name:      "storage_errors_total",
			Help:      "Failed warehouse inserts.",
		}),
		InsertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tank_ingest",
			Name:      "insert_duration_seconds",
			Help:      "Duration of a warehouse streaming insert.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ReadingsMirrored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_ingest",
			Name:      "readings_mirrored_total",
			Help:      "Stored readings published to the mirror topic.",
		}),
		MirrorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_ingest",
			Name:      "mirror_errors_total",
			Help:      "Best-effort mirror publishes that failed.",
		}),
		MirrorEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tank_ingest",
			Name:      "mirror_enabled",
			Help:      "1 when the Kafka readings mirror is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ReadingsStored,
		m.EventsIgnored,
		m.ValidationErrors,
		m.CalibrationNotFound,
		m.ConversionFallbacks,
		m.ConversionClamped,
		m.StorageErrors,
		m.InsertDuration,
		m.ReadingsMirrored,
		m.MirrorErrors,
		m.MirrorEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReadingsStored:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tank_ingest", Name: "readings_stored_total"}, []string{"source"}),
		EventsIgnored:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tank_ingest", Name: "events_ignored_total"}, []string{"reason"}),
		ValidationErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tank_ingest", Name: "validation_errors_total"}),
		CalibrationNotFound: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tank_ingest", Name: "calibration_not_found_total"}),
		ConversionFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tank_ingest", Name: "conversion_fallbacks_total"}, []string{"reason"}),
		ConversionClamped:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tank_ingest", Name: "conversion_clamped_total"}),
		StorageErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tank_ingest", Name: "storage_errors_total"}),
		InsertDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tank_ingest", Name: "insert_duration_seconds"}),
		ReadingsMirrored:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tank_ingest", Name: "readings_mirrored_total"}),
		MirrorErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tank_ingest", Name: "mirror_errors_total"}),
		MirrorEnabled:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tank_ingest", Name: "mirror_enabled"}),
	}
}
