// Package units converts raw distances and altitudes in meters to display
// strings in metric or imperial units.
package units

import (
	"fmt"
	"strings"
)

// System is a unit system.
type System string

const (
	Metric   System = "metric"
	Imperial System = "imperial"
)

const (
	feetPerMeter = 3.28084
	feetPerMile  = 5280
)

// Parse returns the System named s (case-insensitive). Unknown or empty
// names yield Metric.
func Parse(s string) System {
	if strings.EqualFold(strings.TrimSpace(s), string(Imperial)) {
		return Imperial
	}
	return Metric
}

// Distance formats meters in the given system.
// Metric: whole meters below one kilometer, otherwise kilometers with two
// decimals. Imperial: whole feet below one mile, otherwise miles with two
// decimals.
func Distance(meters float64, s System) string {
	if s == Imperial {
		feet := meters * feetPerMeter
		if abs(feet) < feetPerMile {
			return fmt.Sprintf("%.0f ft", feet)
		}
		return fmt.Sprintf("%.2f mi", feet/feetPerMile)
	}
	if abs(meters) < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// Altitude formats an altitude or elevation difference in whole meters or feet.
func Altitude(meters float64, s System) string {
	if s == Imperial {
		return fmt.Sprintf("%.0f ft", meters*feetPerMeter)
	}
	return fmt.Sprintf("%.0f m", meters)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
