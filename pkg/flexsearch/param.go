// Package flexsearch finds continuous electrode positions on the scalp
// that maximize an ROI goal function via derivative-free global
// optimization, then optionally maps the optimum onto discrete net
// electrodes.
package flexsearch

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/geo"
)

// electrodesPerChannel is the standard k=4 TI configuration: two
// electrodes per channel, two channels.
const electrodesPerChannel = 4

// paramDim is the decision-variable count for electrodesPerChannel
// electrodes, each parameterized by (longitude, latitude).
const paramDim = electrodesPerChannel * 2

// Bounds is the parameter box: longitude in [-pi, pi], latitude in
// [-pi/2, pi/2], repeated per electrode.
func Bounds() (lower, upper [paramDim]float64) {
	const pi = 3.14159265358979323846
	for i := 0; i < electrodesPerChannel; i++ {
		lower[2*i], upper[2*i] = -pi, pi
		lower[2*i+1], upper[2*i+1] = -pi/2, pi/2
	}
	return lower, upper
}

// Positions maps a paramDim-length parameter vector to electrodesPerChannel
// 3D scalp points via geo.ScalpPoint, one (longitude, latitude) pair per
// electrode.
func Positions(x []float64, center r3.Vec, scalpRadius float64) [electrodesPerChannel]r3.Vec {
	var out [electrodesPerChannel]r3.Vec
	for i := 0; i < electrodesPerChannel; i++ {
		lon, lat := x[2*i], x[2*i+1]
		out[i] = geo.ScalpPoint(center, scalpRadius, lon, lat)
	}
	return out
}

// clampToBounds projects x into the parameter box in place, used after a
// mutation step in the population optimizer to keep candidates feasible.
func clampToBounds(x []float64) {
	lower, upper := Bounds()
	for i := range x {
		if x[i] < lower[i] {
			x[i] = lower[i]
		}
		if x[i] > upper[i] {
			x[i] = upper[i]
		}
	}
}
