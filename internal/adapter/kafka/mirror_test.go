package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mesuradors/tank-telemetry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeReading(t *testing.T) {
	battery := 3.6
	eventTime := time.Date(2026, time.February, 22, 22, 30, 0, 0, time.UTC)
	reading := domain.Reading{
		EventTime:    eventTime,
		DeviceID:     "gasoil_escola",
		GroupID:      "escola",
		Value:        500,
		DisplayUnit:  "L",
		RawValue:     1100,
		RawUnit:      "mm",
		UplinkID:     "u-1",
		BatteryVolts: &battery,
	}

	msg, err := serializeReading(reading)
	require.NoError(t, err)

	assert.Equal(t, []byte("gasoil_escola"), msg.Key)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "device_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("gasoil_escola"), msg.Headers[0].Value)
	assert.Equal(t, "event_time", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-02-22T22:30:00Z"), msg.Headers[1].Value)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "gasoil_escola", decoded["device_id"])
	assert.Equal(t, "escola", decoded["group_id"])
	assert.Equal(t, 500.0, decoded["value"])
	assert.Equal(t, "L", decoded["unit"])
	assert.Equal(t, 1100.0, decoded["raw_value"])
	assert.Equal(t, "mm", decoded["raw_unit"])
	assert.Equal(t, 3.6, decoded["battery_v"])
	_, hasAudit := decoded["AuditPayload"]
	assert.False(t, hasAudit, "audit payload stays out of the mirror message")
}
