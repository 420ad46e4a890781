package units

import (
	"math"
	"testing"
)

func TestConvertAngle(t *testing.T) {
	tests := []struct {
		name     string
		angleRad float64
		units    string
		expected float64
	}{
		{"pi to deg", math.Pi, DEG, 180.0},
		{"half pi to deg", math.Pi / 2, DEG, 90.0},
		{"full circle to deg", 2 * math.Pi, DEG, 360.0},
		{"pi to rad", math.Pi, RAD, math.Pi},
		{"unknown units default to rad", math.Pi, "unknown", math.Pi},
		{"zero", 0.0, DEG, 0.0},
		{"one degree azimuth bin", 2 * math.Pi / 360, DEG, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertAngle(tt.angleRad, tt.units)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ConvertAngle(%f, %s) = %f, want %f", tt.angleRad, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid rad", RAD, true},
		{"valid deg", DEG, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "DEG", false},
		{"case sensitive", "Rad", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "rad, deg"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}
