package units

import (
	"math"
	"testing"
)

func TestScaleFromMeters(t *testing.T) {
	tests := []struct {
		unit string
		want float64
	}{
		{M, 1},
		{CM, 100},
		{MM, 1000},
		{IN, 39.37007874015748},
	}
	for _, tt := range tests {
		got, err := ScaleFromMeters(tt.unit)
		if err != nil {
			t.Errorf("ScaleFromMeters(%q) error: %v", tt.unit, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ScaleFromMeters(%q) = %v, want %v", tt.unit, got, tt.want)
		}
	}

	if _, err := ScaleFromMeters("ft"); err == nil {
		t.Error("expected an error for an unknown unit")
	}
}

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false", u)
		}
	}
	for _, u := range []string{"", "CM", "meters", "ft"} {
		if IsValid(u) {
			t.Errorf("IsValid(%q) = true", u)
		}
	}
	if got := GetValidUnitsString(); got != "m, cm, mm, in" {
		t.Errorf("GetValidUnitsString() = %q", got)
	}
}
