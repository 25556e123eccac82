package domain

import "math"

// Fallback reasons recorded in Diagnostics when a calibrated conversion
// could not run and the raw value passed through instead.
const (
	FallbackMissingParams       = "missing_calibration_params"
	FallbackInvalidUsableHeight = "invalid_usable_height"
	FallbackUnknownScaleType    = "unknown_scale_type"
)

// Diagnostics carries the intermediate values of a conversion so operators
// can verify the formula from a response or log line without re-deriving it.
type Diagnostics struct {
	RawCm          float64 `json:"raw_cm,omitempty"`
	UsableHeightCm float64 `json:"usable_height_cm,omitempty"`
	LevelCm        float64 `json:"level_cm,omitempty"`
	Clamped        bool    `json:"clamped,omitempty"`
	FallbackReason string  `json:"fallback_reason,omitempty"`
}

// Conversion is the result of applying a calibration to a raw measurement.
type Conversion struct {
	Value       float64
	DisplayUnit string
	Diagnostics Diagnostics
}

// Convert applies the calibration's conversion strategy to a raw measurement.
// An absent scale type is configured pass-through; an unrecognized one falls
// back to pass-through with a diagnostic. Convert never fails: every
// degenerate calibration degrades to pass-through instead.
func Convert(rawValue float64, rawUnit string, cal Calibration) Conversion {
	switch cal.ScaleType {
	case "":
		return passThrough(rawValue, cal, "")
	case ScaleTypeLinearTank, ScaleTypeGasoilLinear:
		return convertLinearTank(rawValue, rawUnit, cal)
	default:
		return passThrough(rawValue, cal, FallbackUnknownScaleType)
	}
}

// convertLinearTank models a sensor at the top of a tank measuring open-air
// distance down to the liquid surface. Volume is linear in column height over
// the usable range. The divisor is the usable height (sensor height minus
// dead zone), never the dead zone itself.
func convertLinearTank(rawValue float64, rawUnit string, cal Calibration) Conversion {
	if cal.SensorHeightCm == nil || cal.DeadZoneCm == nil || cal.CapacityLiters == nil {
		return passThrough(rawValue, cal, FallbackMissingParams)
	}

	height := *cal.SensorHeightCm
	capacity := *cal.CapacityLiters
	usable := height - *cal.DeadZoneCm
	if usable <= 0 {
		return passThrough(rawValue, cal, FallbackInvalidUsableHeight)
	}

	rawCm := ToCentimeters(rawValue, rawUnit)

	// Clamp twice: raw readings can exceed the physical envelope through
	// noise or misalignment, and neither the column height nor the volume
	// may leave the tank's bounds.
	levelCm := clamp(height-rawCm, 0, usable)
	liters := clamp(levelCm/usable*capacity, 0, capacity)

	return Conversion{
		Value:       round3(liters),
		DisplayUnit: cal.DisplayUnit,
		Diagnostics: Diagnostics{
			RawCm:          rawCm,
			UsableHeightCm: usable,
			LevelCm:        levelCm,
			Clamped:        height-rawCm != levelCm,
		},
	}
}

func passThrough(rawValue float64, cal Calibration, reason string) Conversion {
	return Conversion{
		Value:       rawValue,
		DisplayUnit: cal.DisplayUnit,
		Diagnostics: Diagnostics{FallbackReason: reason},
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
