// Package payload turns the two inbound message shapes into one normalized
// uplink. Adapters only extract; they never touch calibration or storage.
package payload

import (
	"strconv"
	"strings"
)

// Uplink source labels, used for metrics and logging.
const (
	SourceDirect     = "direct"
	SourceChirpStack = "chirpstack"
)

// Uplink is the normalized measurement tuple shared by both adapters.
type Uplink struct {
	DeviceID string
	RawValue float64
	RawUnit  string
	Location string
	UplinkID string

	BatteryVolts *float64
	TemperatureC *float64
	TiltDegrees  *float64

	// Raw is the inbound message exactly as received, kept for audit.
	Raw    []byte
	Source string
}

// asFloat coerces a decoded JSON value to float64. Numbers decode as float64;
// numeric strings are accepted too because some gateways quote their values.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// optFloat extracts an optional numeric field best-effort: absent or
// unparseable values become nil, never a failure.
func optFloat(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// strField returns a trimmed, non-empty string field.
func strField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
