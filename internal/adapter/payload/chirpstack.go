package payload

import (
	"encoding/json"

	"github.com/mesuradors/tank-telemetry/internal/domain"
)

// EventUp is the ChirpStack event classifier that carries a measurement.
// Everything else (join, status, ack, ...) is routine non-measurement
// traffic.
const EventUp = "up"

// Ignore reasons returned for recognized-but-irrelevant ChirpStack traffic.
// Ignoring is a successful outcome, not an error: it keeps joins and status
// beacons out of the failure logs.
const (
	IgnoreNonMeasurementEvent = "non_measurement_event"
	IgnoreMissingDeviceName   = "missing_device_name"
	IgnoreMissingDistance     = "missing_distance"
)

// ChirpStackResult is the outcome of extracting a ChirpStack webhook call.
// Exactly one of Ignored or Uplink is meaningful. DeviceID is populated when
// the device was resolved even if the message was ignored, for
// diagnosability.
type ChirpStackResult struct {
	Uplink   Uplink
	Ignored  bool
	Reason   string
	DeviceID string
}

// objectPaths lists the known locations of the decoded DF555 object inside
// the webhook envelope, tried in order; the first dict-typed match wins.
var objectPaths = [][]string{
	{"object"},
	{"uplink", "object"},
	{"event", "object"},
}

// uplinkIDKeys lists the alternate spellings of the uplink correlation id
// across ChirpStack versions; first match wins.
var uplinkIDKeys = []string{"uplinkID", "uplinkId", "uplink_id"}

// ParseChirpStack extracts an uplink from a ChirpStack webhook envelope.
// The event classifier arrives out-of-band (query parameter). deviceMap
// translates external device names to internal ids; unmapped names pass
// through unchanged.
func ParseChirpStack(event string, body []byte, deviceMap map[string]string) (ChirpStackResult, error) {
	if event != "" && event != EventUp {
		return ChirpStackResult{Ignored: true, Reason: IgnoreNonMeasurementEvent}, nil
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ChirpStackResult{}, &domain.ValidationError{Field: "body", Reason: "invalid JSON"}
	}

	name, ok := extractDeviceName(m)
	if !ok {
		return ChirpStackResult{Ignored: true, Reason: IgnoreMissingDeviceName}, nil
	}
	deviceID := name
	if mapped, ok := deviceMap[name]; ok {
		deviceID = mapped
	}

	obj := extractObject(m)
	distanceMm, ok := asFloat(obj["distancia_mm"])
	if !ok {
		return ChirpStackResult{Ignored: true, Reason: IgnoreMissingDistance, DeviceID: deviceID}, nil
	}

	return ChirpStackResult{
		DeviceID: deviceID,
		Uplink: Uplink{
			DeviceID:     deviceID,
			RawValue:     distanceMm,
			RawUnit:      "mm",
			UplinkID:     extractUplinkID(m),
			BatteryVolts: optFloat(obj, "bateria_V"),
			TemperatureC: optFloat(obj, "temperatura_C"),
			TiltDegrees:  optFloat(obj, "inclinacio_deg"),
			Raw:          body,
			Source:       SourceChirpStack,
		},
	}, nil
}

// extractObject walks objectPaths and returns the first dict-typed match, or
// an empty map when the envelope carries no decoded object.
func extractObject(m map[string]any) map[string]any {
	for _, path := range objectPaths {
		node := m
		found := true
		for _, key := range path {
			next, ok := node[key].(map[string]any)
			if !ok {
				found = false
				break
			}
			node = next
		}
		if found {
			return node
		}
	}
	return map[string]any{}
}

// extractDeviceName reads deviceInfo.deviceName with a legacy top-level
// deviceName fallback.
func extractDeviceName(m map[string]any) (string, bool) {
	if info, ok := m["deviceInfo"].(map[string]any); ok {
		if name, ok := strField(info, "deviceName"); ok {
			return name, true
		}
	}
	return strField(m, "deviceName")
}

func extractUplinkID(m map[string]any) string {
	for _, key := range uplinkIDKeys {
		if id, ok := strField(m, key); ok {
			return id
		}
	}
	return ""
}
