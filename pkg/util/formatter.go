// Package util holds small formatting helpers for result summaries, kept
// separate from the packages that
// use them the way the teacher centralizes numeric display formatting.
package util

import (
	"fmt"
	"math"
)

// FormatValueFactor renders value with an SI magnitude prefix and unit
// (e.g. "2.000 mA", "731.500 uV/m"), used by the ex-search result summary
// to print currents at a readable scale instead of raw floats.
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}
