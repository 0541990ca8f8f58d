package fe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/geo"
)

func tetraMesh() *Mesh {
	nodes := []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
	}
	return &Mesh{
		Nodes:      nodes,
		Elements:   [][4]int{{0, 1, 2, 3}},
		TissueTags: []int{2},
	}
}

func TestElementBarycenterIsNodeAverage(t *testing.T) {
	m := tetraMesh()
	bc := m.ElementBarycenter(0)
	assert.InDelta(t, 0.25, bc.X, 1e-12)
	assert.InDelta(t, 0.25, bc.Y, 1e-12)
	assert.InDelta(t, 0.25, bc.Z, 1e-12)
}

func TestElementAverageAveragesNodalField(t *testing.T) {
	m := tetraMesh()
	field := NewScalarField("magE", NodeDomain, 4)
	field.Data = []float64{2, 4, 6, 8}
	assert.Equal(t, 5.0, m.ElementAverage(field, 0))
}

func TestRadialNormalsAreUnitLength(t *testing.T) {
	m := tetraMesh()
	normals := m.RadialNormals()
	require.Len(t, normals, 12)
	n := r3.Vec{X: normals[3], Y: normals[4], Z: normals[5]}
	assert.InDelta(t, 1.0, r3.Norm(n), 1e-9)
}

func TestRadialNormalsLeavesOriginNodeZero(t *testing.T) {
	m := tetraMesh()
	normals := m.RadialNormals()
	assert.Equal(t, 0.0, normals[0])
	assert.Equal(t, 0.0, normals[1])
	assert.Equal(t, 0.0, normals[2])
}

func TestVoxelIndexRoundTripsWithVoxelCenter(t *testing.T) {
	vol := &Volume{
		Shape:       [3]int{4, 5, 6},
		VoxelSizeMM: [3]float64{1, 1, 1},
		QForm:       geo.Affine{M: [12]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0}},
		NComponents: 1,
		Data:        make([]float64, 4*5*6),
	}
	i, j, k := vol.VoxelIndex(0)
	assert.Equal(t, [3]int{0, 0, 0}, [3]int{i, j, k})

	flat := (2*5+1)*4 + 3
	gi, gj, gk := vol.VoxelIndex(flat)
	assert.Equal(t, 3, gi)
	assert.Equal(t, 1, gj)
	assert.Equal(t, 2, gk)

	center := vol.VoxelCenterMM(gi, gj, gk)
	assert.Equal(t, r3.Vec{X: 3, Y: 1, Z: 2}, center)
}

func TestReducedMaxPicksLargestComponent(t *testing.T) {
	vol := &Volume{Shape: [3]int{1, 1, 1}, NComponents: 3, Data: []float64{1, 9, 4}}
	assert.Equal(t, 9.0, vol.ReducedMax(0))
}

func TestConductivityModelLookupMissingTag(t *testing.T) {
	model := ConductivityModel{Isotropic: map[int]float64{1: 0.33}}
	v, ok := model.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, 0.33, v)

	_, ok = model.Lookup(99)
	assert.False(t, ok)
}

func TestFieldVec3AtReadsInterleavedComponents(t *testing.T) {
	field := NewVectorField("E", NodeDomain, 2)
	field.Data = []float64{1, 2, 3, 4, 5, 6}
	assert.Equal(t, r3.Vec{X: 4, Y: 5, Z: 6}, field.Vec3At(1))
}
