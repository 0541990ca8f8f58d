// Package ti implements the Temporal Interference envelope derivation:
// given two high-frequency E-field vectors at a point, the maximum-envelope
// magnitude and its projections onto a surface normal and tangent plane.
package ti

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MaxEnvelope computes the maximum TI-envelope magnitude at a point given the
// two channels' field vectors, using the standard closed form. With
// |E1| >= |E2| (the function sorts internally, so callers may pass either
// order):
//
//	if dot(E1, E2) >= |E2|^2: TI_max = 2*|E2|
//	else:                     TI_max = 2*|E1 x E2| / |E1 - E2|
//
// The threshold comes from maximizing min(|E1.n|, |E2.n|) over unit vectors
// n: the maximum sits at |E2| exactly when E2 already lies within |E2| of
// E1's projection onto E2's own direction, i.e. dot(E1,E2) >= |E2|^2. Both
// branches satisfy 0 <= TI_max <= 2*min(|E1|,|E2|): the first is tight by
// construction, the second shrinks the projection as the angle between the
// fields widens.
func MaxEnvelope(e1, e2 r3.Vec) float64 {
	m1 := r3.Norm(e1)
	m2 := r3.Norm(e2)
	if m1 < m2 {
		e1, e2 = e2, e1
		m1, m2 = m2, m1
	}
	if m2 < 1e-15 {
		return 0
	}
	if r3.Dot(e1, e2) >= m2*m2 {
		return 2 * m2
	}
	diff := r3.Sub(e1, e2)
	diffNorm := r3.Norm(diff)
	if diffNorm < 1e-15 {
		return 2 * m1
	}
	return 2 * r3.Norm(r3.Cross(e1, e2)) / diffNorm
}

// Directional splits a vector value into the component along a unit normal
// and the magnitude of the remaining tangential component.
func Directional(v r3.Vec, unitNormal r3.Vec) (normal, tangential float64) {
	normal = r3.Dot(v, unitNormal)
	tangentVec := r3.Sub(v, r3.Scale(normal, unitNormal))
	tangential = r3.Norm(tangentVec)
	return
}

// EnvelopeDirection returns the unit direction realizing MaxEnvelope's value,
// used to project the scalar envelope magnitude onto a surface normal and
// tangent. In the branch where dot(E1,E2) >= |E2|^2 the maximizing direction
// is along the smaller-magnitude field; otherwise it is the in-plane
// direction perpendicular to (E1-E2).
func EnvelopeDirection(e1, e2 r3.Vec) r3.Vec {
	m1 := r3.Norm(e1)
	m2 := r3.Norm(e2)
	if m1 < m2 {
		e1, e2 = e2, e1
		m1, m2 = m2, m1
	}
	if m2 < 1e-15 {
		return r3.Vec{}
	}
	if r3.Dot(e1, e2) >= m2*m2 {
		return r3.Scale(1/m2, e2)
	}
	diff := r3.Sub(e1, e2)
	diffNorm := r3.Norm(diff)
	cross := r3.Cross(e1, e2)
	crossNorm := r3.Norm(cross)
	if diffNorm < 1e-15 || crossNorm < 1e-15 {
		return r3.Scale(1/m1, e1)
	}
	unitDiff := r3.Scale(1/diffNorm, diff)
	unitPlaneNormal := r3.Scale(1/crossNorm, cross)
	dir := r3.Cross(unitDiff, unitPlaneNormal)
	dirNorm := r3.Norm(dir)
	if dirNorm < 1e-15 {
		return unitDiff
	}
	return r3.Scale(1/dirNorm, dir)
}

// Fields are the three derived per-point outputs: maximum envelope magnitude
// and its normal/tangential projections.
type Fields struct {
	Max        []float64
	Normal     []float64
	Tangential []float64
}

// NewFields allocates zeroed Fields for n points.
func NewFields(n int) Fields {
	return Fields{Max: make([]float64, n), Normal: make([]float64, n), Tangential: make([]float64, n)}
}

// Derive computes TI_max/TI_normal/TI_tangential at every point given the two
// channels' vector fields (flattened xyz triples, length 3*n each) and a
// per-point surface normal (same length convention; need not be
// pre-normalized). A zero normal at a point (undefined, e.g. outside
// cortex) reports TI_normal=0 and TI_tangential=TI_max, since without a
// surface there is nothing to project onto and the total envelope magnitude
// remains well-defined everywhere.
func Derive(e1, e2 []float64, normals []float64) Fields {
	n := len(e1) / 3
	out := NewFields(n)
	for i := 0; i < n; i++ {
		v1 := r3.Vec{X: e1[i*3], Y: e1[i*3+1], Z: e1[i*3+2]}
		v2 := r3.Vec{X: e2[i*3], Y: e2[i*3+1], Z: e2[i*3+2]}
		out.Max[i] = MaxEnvelope(v1, v2)

		var unitNormal r3.Vec
		if normals != nil {
			unitNormal = r3.Vec{X: normals[i*3], Y: normals[i*3+1], Z: normals[i*3+2]}
		}
		nn := r3.Norm(unitNormal)
		if nn < 1e-9 {
			out.Normal[i] = 0
			out.Tangential[i] = out.Max[i]
			continue
		}
		unitNormal = r3.Scale(1/nn, unitNormal)
		dir := EnvelopeDirection(v1, v2)
		envVec := r3.Scale(out.Max[i], dir)
		normal, tangential := Directional(envVec, unitNormal)
		out.Normal[i] = math.Abs(normal)
		out.Tangential[i] = tangential
	}
	return out
}
