package payload

import (
	"encoding/json"

	"github.com/mesuradors/tank-telemetry/internal/domain"
)

// ParseDirect extracts an uplink from the generic push format, where the
// payload names the device and value explicitly. "device_id" and "value" are
// required; "meter_id" is accepted as a legacy alias because the deployed
// sensors still post it. Everything else is optional and passes through.
func ParseDirect(body []byte) (Uplink, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return Uplink{}, &domain.ValidationError{Field: "body", Reason: "invalid JSON"}
	}

	deviceID, ok := strField(m, "device_id")
	if !ok {
		deviceID, ok = strField(m, "meter_id")
	}
	if !ok {
		return Uplink{}, &domain.ValidationError{Field: "device_id", Reason: "missing"}
	}

	v, present := m["value"]
	if !present {
		return Uplink{}, &domain.ValidationError{Field: "value", Reason: "missing"}
	}
	rawValue, ok := asFloat(v)
	if !ok {
		return Uplink{}, &domain.ValidationError{Field: "value", Reason: "must be a number"}
	}

	unit, _ := strField(m, "unit")
	location, _ := strField(m, "location")
	uplinkID, _ := strField(m, "uplink_id")

	return Uplink{
		DeviceID:     deviceID,
		RawValue:     rawValue,
		RawUnit:      unit,
		Location:     location,
		UplinkID:     uplinkID,
		BatteryVolts: optFloat(m, "battery_v"),
		TemperatureC: optFloat(m, "temperature_c"),
		TiltDegrees:  optFloat(m, "tilt_deg"),
		Raw:          body,
		Source:       SourceDirect,
	}, nil
}
