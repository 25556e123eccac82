package domain

import "strings"

// ToCentimeters normalizes a distance to centimeters. Recognized units are
// "mm", "cm", and "m", case-insensitively and ignoring surrounding
// whitespace. An empty or unknown unit returns the value unchanged (already
// in the reference unit). The function is total; it never fails.
func ToCentimeters(value float64, unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "mm":
		return value / 10.0
	case "cm":
		return value
	case "m":
		return value * 100.0
	default:
		return value
	}
}
