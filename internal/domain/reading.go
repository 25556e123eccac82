package domain

import "time"

// Scale types recognized by Convert. ScaleTypeLinearTank is the generic name;
// ScaleTypeGasoilLinear is the value present in the production meters table
// and dispatches to the same strategy.
const (
	ScaleTypeLinearTank   = "linear-tank"
	ScaleTypeGasoilLinear = "gasoil_linear"
)

// Calibration is the per-device configuration resolved from the warehouse.
// It is read-only to the pipeline. The three geometry parameters are pointers
// because they are individually nullable in the meters table; the linear-tank
// strategy requires all of them and falls back to pass-through otherwise.
type Calibration struct {
	DeviceID       string
	ScaleType      string
	SensorHeightCm *float64
	DeadZoneCm     *float64
	CapacityLiters *float64
	DisplayUnit    string
	GroupID        string
}

// Reading is the canonical record produced by one ingestion call. It is
// immutable once assembled and write-once to storage; there is no update or
// delete path.
type Reading struct {
	EventTime   time.Time `json:"event_time"`
	DeviceID    string    `json:"device_id"`
	GroupID     string    `json:"group_id,omitempty"`
	Location    string    `json:"location,omitempty"`
	Value       float64   `json:"value"`
	DisplayUnit string    `json:"unit,omitempty"`
	RawValue    float64   `json:"raw_value"`
	RawUnit     string    `json:"raw_unit,omitempty"`
	UplinkID    string    `json:"uplink_id,omitempty"`

	// Optional device telemetry, pass-through only, never converted.
	BatteryVolts *float64 `json:"battery_v,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	TiltDegrees  *float64 `json:"tilt_deg,omitempty"`

	// AuditPayload is the full inbound message, stored verbatim so the
	// conversion can be recomputed later against a fixed calibration.
	AuditPayload []byte `json:"-"`
}

// DeviceStatus is one row of the precomputed SCADA status view, surfaced
// unmodified by the read API.
type DeviceStatus struct {
	Location    string     `json:"location"`
	Sensor      string     `json:"sensor"`
	Range       string     `json:"range,omitempty"`
	Value       *float64   `json:"value,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	Percent     *float64   `json:"pct,omitempty"`
	State       string     `json:"state,omitempty"`
	LastReading *time.Time `json:"last_reading,omitempty"`
}
