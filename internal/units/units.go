// Package units names the length units BVH positions can be written in.
package units

import (
	"fmt"
	"strings"
)

// Length unit constants. Landmarks arrive in meters.
const (
	M  = "m"
	CM = "cm"
	MM = "mm"
	IN = "in"
)

// ValidUnits lists the accepted units in display order.
var ValidUnits = []string{M, CM, MM, IN}

var perMeter = map[string]float64{
	M:  1,
	CM: 100,
	MM: 1000,
	IN: 1 / 0.0254,
}

// IsValid reports whether unit is a known length unit.
func IsValid(unit string) bool {
	_, ok := perMeter[unit]
	return ok
}

// GetValidUnitsString returns the valid units for error messages.
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ScaleFromMeters is the factor converting meters to unit.
func ScaleFromMeters(unit string) (float64, error) {
	s, ok := perMeter[unit]
	if !ok {
		return 0, fmt.Errorf("unknown length unit %q (valid: %s)", unit, GetValidUnitsString())
	}
	return s, nil
}
