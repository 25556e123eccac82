// Package pipeline orchestrates one ingestion: calibration lookup, unit
// conversion, canonical record assembly, and the warehouse insert.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mesuradors/tank-telemetry/internal/adapter/payload"
	"github.com/mesuradors/tank-telemetry/internal/domain"
	"github.com/mesuradors/tank-telemetry/internal/observability"
)

// CalibrationStore resolves per-device calibration. A missing device id is
// reported as domain.ErrCalibrationNotFound.
type CalibrationStore interface {
	GetCalibration(ctx context.Context, deviceID string) (domain.Calibration, error)
}

// ReadingStore persists canonical readings. The insert is all-or-nothing;
// any row-level error fails the whole operation.
type ReadingStore interface {
	InsertReading(ctx context.Context, r domain.Reading) error
}

// Pinger checks that the warehouse is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Mirror publishes stored readings to a downstream topic. Publishing is
// best-effort and never fails an ingest.
type Mirror interface {
	PublishReading(ctx context.Context, r domain.Reading) error
}

// Receipt summarizes a stored reading back to the caller.
type Receipt struct {
	Status       string              `json:"status"`
	DeviceID     string              `json:"device_id"`
	GroupID      string              `json:"group_id,omitempty"`
	RawValue     float64             `json:"raw_value"`
	RawUnit      string              `json:"raw_unit,omitempty"`
	Value        float64             `json:"value"`
	Unit         string              `json:"unit,omitempty"`
	BatteryVolts *float64            `json:"battery_v,omitempty"`
	TemperatureC *float64            `json:"temperature_c,omitempty"`
	TiltDegrees  *float64            `json:"tilt_deg,omitempty"`
	Diagnostics  *domain.Diagnostics `json:"diagnostics,omitempty"`
}

// Pipeline is the composition root of the ingestion core. Each call is
// independent and synchronous; the pipeline owns no cross-request state
// beyond the readiness flag.
type Pipeline struct {
	calibrations CalibrationStore
	readings     ReadingStore
	pinger       Pinger
	mirror       Mirror // nil when the mirror is disabled
	logger       *slog.Logger
	metrics      *observability.Metrics
	ready        atomic.Bool
}

// New creates a Pipeline. Pass a nil mirror to disable mirroring.
func New(calibrations CalibrationStore, readings ReadingStore, pinger Pinger, mirror Mirror, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		calibrations: calibrations,
		readings:     readings,
		pinger:       pinger,
		mirror:       mirror,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness reports whether the warehouse is reachable. The first
// success is cached; a successful ingest also marks the service ready.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if p.ready.Load() {
		return nil
	}
	if err := p.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("warehouse not reachable: %w", err)
	}
	p.ready.Store(true)
	return nil
}

// Ingest runs the full pipeline for one normalized uplink. Errors are
// domain-typed: ErrCalibrationNotFound for unknown devices, StorageError for
// failed inserts. Conversion problems never error; they degrade to
// pass-through and surface in the receipt diagnostics.
func (p *Pipeline) Ingest(ctx context.Context, up payload.Uplink) (Receipt, error) {
	cal, err := p.calibrations.GetCalibration(ctx, up.DeviceID)
	if err != nil {
		if errors.Is(err, domain.ErrCalibrationNotFound) {
			p.metrics.CalibrationNotFound.Inc()
		}
		return Receipt{}, err
	}

	conv := domain.Convert(up.RawValue, up.RawUnit, cal)
	if reason := conv.Diagnostics.FallbackReason; reason != "" {
		p.metrics.ConversionFallbacks.WithLabelValues(reason).Inc()
		p.logger.Warn("conversion fell back to pass-through",
			"device_id", up.DeviceID,
			"reason", reason,
			"scale_type", cal.ScaleType,
		)
	}
	if conv.Diagnostics.Clamped {
		// Clamping silently bounds the stored value; the counter and log
		// line are the sensor-health signal for out-of-range readings.
		p.metrics.ConversionClamped.Inc()
		p.logger.Warn("raw distance outside physical envelope, clamped",
			"device_id", up.DeviceID,
			"raw_value", up.RawValue,
			"raw_unit", up.RawUnit,
			"raw_cm", conv.Diagnostics.RawCm,
			"usable_height_cm", conv.Diagnostics.UsableHeightCm,
		)
	}

	reading := domain.Reading{
		EventTime:    domain.NowUTC(),
		DeviceID:     up.DeviceID,
		GroupID:      cal.GroupID,
		Location:     up.Location,
		Value:        conv.Value,
		DisplayUnit:  conv.DisplayUnit,
		RawValue:     up.RawValue,
		RawUnit:      up.RawUnit,
		UplinkID:     up.UplinkID,
		BatteryVolts: up.BatteryVolts,
		TemperatureC: up.TemperatureC,
		TiltDegrees:  up.TiltDegrees,
		AuditPayload: up.Raw,
	}

	start := time.Now()
	if err := p.readings.InsertReading(ctx, reading); err != nil {
		p.metrics.StorageErrors.Inc()
		return Receipt{}, err
	}
	p.metrics.InsertDuration.Observe(time.Since(start).Seconds())
	p.metrics.ReadingsStored.WithLabelValues(up.Source).Inc()
	p.ready.Store(true)

	p.logger.Info("reading stored",
		"device_id", reading.DeviceID,
		"group_id", reading.GroupID,
		"raw_value", reading.RawValue,
		"raw_unit", reading.RawUnit,
		"value", reading.Value,
		"unit", reading.DisplayUnit,
		"uplink_id", reading.UplinkID,
		"source", up.Source,
	)

	p.publishToMirror(ctx, reading)

	diags := conv.Diagnostics
	return Receipt{
		Status:       "inserted",
		DeviceID:     reading.DeviceID,
		GroupID:      reading.GroupID,
		RawValue:     reading.RawValue,
		RawUnit:      reading.RawUnit,
		Value:        reading.Value,
		Unit:         reading.DisplayUnit,
		BatteryVolts: reading.BatteryVolts,
		TemperatureC: reading.TemperatureC,
		TiltDegrees:  reading.TiltDegrees,
		Diagnostics:  &diags,
	}, nil
}

// publishToMirror forwards a stored reading to the mirror topic. The
// warehouse insert already succeeded, so a publish failure only logs and
// counts.
func (p *Pipeline) publishToMirror(ctx context.Context, r domain.Reading) {
	if p.mirror == nil {
		return
	}
	if err := p.mirror.PublishReading(ctx, r); err != nil {
		p.metrics.MirrorErrors.Inc()
		p.logger.Warn("mirror publish failed", "device_id", r.DeviceID, "error", err)
		return
	}
	p.metrics.ReadingsMirrored.Inc()
}
