package payload

import (
	"testing"

	"github.com/mesuradors/tank-telemetry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirect(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		body := []byte(`{"device_id":"gasoil_escola","value":123.4,"unit":"mm","location":"escola","uplink_id":"abc-1","battery_v":3.61,"temperature_c":18.2,"tilt_deg":1.5}`)

		up, err := ParseDirect(body)
		require.NoError(t, err)

		assert.Equal(t, "gasoil_escola", up.DeviceID)
		assert.Equal(t, 123.4, up.RawValue)
		assert.Equal(t, "mm", up.RawUnit)
		assert.Equal(t, "escola", up.Location)
		assert.Equal(t, "abc-1", up.UplinkID)
		require.NotNil(t, up.BatteryVolts)
		assert.Equal(t, 3.61, *up.BatteryVolts)
		require.NotNil(t, up.TemperatureC)
		assert.Equal(t, 18.2, *up.TemperatureC)
		require.NotNil(t, up.TiltDegrees)
		assert.Equal(t, 1.5, *up.TiltDegrees)
		assert.Equal(t, body, up.Raw, "audit payload must be the verbatim message")
		assert.Equal(t, SourceDirect, up.Source)
	})

	t.Run("minimal payload", func(t *testing.T) {
		up, err := ParseDirect([]byte(`{"device_id":"d1","value":5}`))
		require.NoError(t, err)

		assert.Equal(t, 5.0, up.RawValue)
		assert.Empty(t, up.RawUnit)
		assert.Nil(t, up.BatteryVolts)
		assert.Nil(t, up.TemperatureC)
		assert.Nil(t, up.TiltDegrees)
	})

	t.Run("legacy meter_id alias", func(t *testing.T) {
		up, err := ParseDirect([]byte(`{"meter_id":"gasoil_escola","value":5}`))
		require.NoError(t, err)
		assert.Equal(t, "gasoil_escola", up.DeviceID)
	})

	t.Run("quoted numeric value", func(t *testing.T) {
		up, err := ParseDirect([]byte(`{"device_id":"d1","value":"12.5"}`))
		require.NoError(t, err)
		assert.Equal(t, 12.5, up.RawValue)
	})

	t.Run("unparseable telemetry becomes nil", func(t *testing.T) {
		up, err := ParseDirect([]byte(`{"device_id":"d1","value":5,"battery_v":"low","tilt_deg":null}`))
		require.NoError(t, err)
		assert.Nil(t, up.BatteryVolts)
		assert.Nil(t, up.TiltDegrees)
	})
}

func TestParseDirect_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing device id", `{"value":5}`, "device_id"},
		{"blank device id", `{"device_id":"  ","value":5}`, "device_id"},
		{"missing value", `{"device_id":"d1"}`, "value"},
		{"non-numeric value", `{"device_id":"d1","value":"high"}`, "value"},
		{"invalid json", `{nope`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDirect([]byte(tt.body))
			require.Error(t, err)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}
