package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCentimeters(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		unit  string
		want  float64
	}{
		{"millimeters", 350, "mm", 35},
		{"centimeters", 42, "cm", 42},
		{"meters", 1.5, "m", 150},
		{"uppercase unit", 350, "MM", 35},
		{"surrounding whitespace", 350, " mm ", 35},
		{"empty unit passes through", 77, "", 77},
		{"unknown unit passes through", 77, "furlong", 77},
		{"negative value", -40, "mm", -4},
		{"zero", 0, "m", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToCentimeters(tt.value, tt.unit))
		})
	}
}

func TestToCentimeters_RoundTrip(t *testing.T) {
	// Converting to cm and back through the inverse ratio must recover the
	// original value within floating rounding.
	ratios := map[string]float64{"mm": 10, "cm": 1, "m": 0.01}
	for unit, inverse := range ratios {
		for _, v := range []float64{0, 0.001, 3.5, 123.456, 9999} {
			got := ToCentimeters(v, unit) * inverse
			assert.InDelta(t, v, got, 1e-9, "unit %s value %v", unit, v)
		}
	}
}
