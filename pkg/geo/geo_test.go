package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestAffineInvertRoundTrips(t *testing.T) {
	a := Affine{M: [12]float64{
		1.1, 0.05, -0.02, 3,
		-0.03, 0.98, 0.01, -7,
		0.02, -0.01, 1.05, 12,
	}}
	inv, ok := a.Invert()
	assert.True(t, ok)

	p := r3.Vec{X: 10, Y: -4, Z: 8}
	roundTrip := inv.Apply(a.Apply(p))
	assert.InDelta(t, p.X, roundTrip.X, 1e-9)
	assert.InDelta(t, p.Y, roundTrip.Y, 1e-9)
	assert.InDelta(t, p.Z, roundTrip.Z, 1e-9)
}

func TestAffineIdentityIsNoOp(t *testing.T) {
	p := r3.Vec{X: 1, Y: 2, Z: 3}
	assert.Equal(t, p, Identity().Apply(p))
}

func TestAffineInvertRejectsSingular(t *testing.T) {
	singular := Affine{} // all-zero 3x3 block, determinant 0
	_, ok := singular.Invert()
	assert.False(t, ok)
}

func TestSphereContainsBoundary(t *testing.T) {
	s := Sphere{Center: r3.Vec{}, Radius: 5}
	assert.True(t, s.Contains(r3.Vec{X: 5, Y: 0, Z: 0})) // on boundary
	assert.True(t, s.Contains(r3.Vec{X: 3, Y: 0, Z: 0}))
	assert.False(t, s.Contains(r3.Vec{X: 5.01, Y: 0, Z: 0}))
}

func TestSphereAnalyticVolume(t *testing.T) {
	s := Sphere{Radius: 2}
	assert.InDelta(t, (4.0/3.0)*math.Pi*8, s.AnalyticVolumeMM3(), 1e-9)
}

func TestScalpPointLiesOnSphere(t *testing.T) {
	center := r3.Vec{X: 1, Y: 2, Z: 3}
	const radius = 90.0
	p := ScalpPoint(center, radius, 0.7, 0.3)
	assert.InDelta(t, radius, Distance(center, p), 1e-9)
}

func TestScalpPointAtPoles(t *testing.T) {
	center := r3.Vec{}
	top := ScalpPoint(center, 90, 0, math.Pi/2)
	assert.InDelta(t, 90, top.Z, 1e-9)
	assert.InDelta(t, 0, top.X, 1e-9)
	assert.InDelta(t, 0, top.Y, 1e-9)
}
