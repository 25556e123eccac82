// Package domain models tank-level telemetry from LoRaWAN distance sensors.
//
// # Data Source
//
// Readings originate from DF555 ultrasonic tank sensors mounted at the top of
// fuel and water tanks. The sensor measures the open-air distance down to the
// liquid surface and uplinks it over LoRaWAN. A ChirpStack network server
// decodes the payload and delivers it to this service as an HTTP webhook; a
// second, generic JSON push path exists for sensors that talk HTTP directly.
//
// # ChirpStack Webhook Conventions
//
// Decoded measurement object:
//
//	The decoded DF555 object may arrive at one of several locations in the
//	envelope depending on the ChirpStack version and webhook template:
//	top-level "object", nested "uplink.object", or nested "event.object".
//	The first dict-typed match wins. Inside it, "distancia_mm" carries the
//	distance in millimeters, with optional telemetry "bateria_V",
//	"temperatura_C", and "inclinacio_deg".
//
// Event classifier:
//
//	ChirpStack tags each webhook call with an event type ("up", "join",
//	"status", ...) as a query parameter. Only "up" carries a measurement;
//	everything else is routine traffic and is acknowledged but ignored.
//
// Device naming:
//
//	The ChirpStack device name ("deviceInfo.deviceName", with a legacy
//	top-level "deviceName" fallback) is an externally assigned label. A
//	static map translates known labels to internal device ids; unmapped
//	names pass through unchanged.
//
// # Tank Conversion Model
//
// A calibrated device converts raw distance to liters with a linear
// dip-gauge model:
//
//	usableHeight = sensorHeight - deadZone
//	levelCm      = clamp(sensorHeight - rawCm, 0, usableHeight)
//	liters       = clamp(levelCm/usableHeight * capacity, 0, capacity)
//
// The dead zone is the sensor's blind margin below the mounting point. Both
// clamps bound sensor noise to the tank's physical envelope. The divisor is
// always the usable height; an earlier revision of the formula divided by
// the dead zone, which produced wildly out-of-range volumes for every tank
// whose dead zone differed from its usable height.
//
// Distances normalize to centimeters before conversion ("mm", "cm", "m",
// case-insensitive; anything else is taken as already in centimeters).
//
// Devices without a complete calibration fall back to pass-through: the raw
// value is stored as the display value and the reason is kept in the
// conversion diagnostics. Fallback is never an error.
package domain
