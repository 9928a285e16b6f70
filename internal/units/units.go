// Package units provides the acceleration units the API can report in.
package units

import "strings"

// Unit constants
const (
	G    = "g"
	MPS2 = "mps2"
)

// StandardGravity is one g in m/s².
const StandardGravity = 9.80665

// ValidUnits contains all valid unit values
var ValidUnits = []string{G, MPS2}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns the valid units for error messages.
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertAccel converts an acceleration in g to the target units.
// Samples are generated in g; unknown units leave the value unchanged.
func ConvertAccel(accelG float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS2:
		return accelG * StandardGravity
	default:
		return accelG
	}
}
