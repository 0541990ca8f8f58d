// Package fe defines the typed capability interface the core consumes from
// an underlying neuro-finite-element library: mesh I/O, conductivity-aware
// forward solving, atlas lookup, and voxel<->MNI affine transforms. The
// core never introspects or dispatches on a concrete FE backend; it is
// written entirely against this interface, and a backend is chosen once, by
// explicit strategy selection at construction.
package fe

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/geo"
)

// FieldDomain distinguishes which array a Field is aligned with.
type FieldDomain int

const (
	NodeDomain FieldDomain = iota
	ElementDomain
	VoxelDomain
)

func (d FieldDomain) String() string {
	switch d {
	case NodeDomain:
		return "node"
	case ElementDomain:
		return "element"
	case VoxelDomain:
		return "voxel"
	default:
		return "unknown"
	}
}

// Field is a named scalar or vector array aligned with one domain (mesh
// nodes, mesh elements, or voxels). Dim is 1 for scalar fields (magE,
// TI_max, ...) and 3 for vector fields (E). Data is flattened row-major:
// len(Data) == Count*Dim.
type Field struct {
	Name   string
	Domain FieldDomain
	Dim    int
	Count  int
	Data   []float64
}

// At returns element i of a scalar field.
func (f Field) At(i int) float64 {
	return f.Data[i]
}

// Vec3At returns element i of a Dim==3 field as a vector.
func (f Field) Vec3At(i int) r3.Vec {
	return r3.Vec{X: f.Data[i*3], Y: f.Data[i*3+1], Z: f.Data[i*3+2]}
}

// NewScalarField allocates a zeroed scalar field over count entries.
func NewScalarField(name string, domain FieldDomain, count int) Field {
	return Field{Name: name, Domain: domain, Dim: 1, Count: count, Data: make([]float64, count)}
}

// NewVectorField allocates a zeroed 3-vector field over count entries.
func NewVectorField(name string, domain FieldDomain, count int) Field {
	return Field{Name: name, Domain: domain, Dim: 3, Count: count, Data: make([]float64, count*3)}
}

// Mesh is the tetrahedral volume mesh: nodes, elements (4 node indices each),
// a tissue tag per element, and per-element volumes in mm^3.
type Mesh struct {
	Nodes             []r3.Vec
	Elements          [][4]int
	TissueTags        []int
	ElementVolumesMM3 []float64
	// GreyMatterElements lists element indices belonging to the grey-matter
	// submesh, used to produce the "grey_*" mesh outputs.
	GreyMatterElements []int
}

func (m *Mesh) NumNodes() int    { return len(m.Nodes) }
func (m *Mesh) NumElements() int { return len(m.Elements) }

// ElementBarycenter returns the centroid of element e's four nodes.
func (m *Mesh) ElementBarycenter(e int) r3.Vec {
	el := m.Elements[e]
	var sum r3.Vec
	for _, n := range el {
		sum = r3.Add(sum, m.Nodes[n])
	}
	return r3.Scale(0.25, sum)
}

// ElementAverage averages a nodal scalar field onto element e.
func (m *Mesh) ElementAverage(nodal Field, e int) float64 {
	el := m.Elements[e]
	sum := 0.0
	for _, n := range el {
		sum += nodal.At(n)
	}
	return sum / float64(len(el))
}

// RadialNormals approximates each node's outward surface normal as the unit
// radial direction from the coordinate origin, the convention shared by
// electrode placement (electrode.ResolvePlacements) and TI directional
// projection (pkg/simulator, pkg/exsearch) for a head model centered near
// the origin.
func (m *Mesh) RadialNormals() []float64 {
	out := make([]float64, len(m.Nodes)*3)
	for i, n := range m.Nodes {
		length := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
		if length < 1e-9 {
			continue
		}
		out[i*3] = n.X / length
		out[i*3+1] = n.Y / length
		out[i*3+2] = n.Z / length
	}
	return out
}

// Volume is a voxel grid: shape, voxel size in mm, the qform/sform affine
// mapping voxel indices to millimeter coordinates in its own space, and
// flattened data (NComponents per voxel; 1 for scalar fields, >1 for stacked
// 4D fields such as per-direction components).
type Volume struct {
	Shape       [3]int
	VoxelSizeMM [3]float64
	QForm       geo.Affine
	Space       geo.Space
	NComponents int
	Data        []float64
}

func (v *Volume) NumVoxels() int { return v.Shape[0] * v.Shape[1] * v.Shape[2] }

// VoxelIndex converts a flat voxel index to (i,j,k).
func (v *Volume) VoxelIndex(flat int) (i, j, k int) {
	nx, ny := v.Shape[0], v.Shape[1]
	k = flat / (nx * ny)
	rem := flat % (nx * ny)
	j = rem / nx
	i = rem % nx
	return
}

// VoxelCenterMM returns the millimeter-space center of voxel (i,j,k) via QForm.
func (v *Volume) VoxelCenterMM(i, j, k int) r3.Vec {
	return v.QForm.Apply(r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)})
}

// At returns the c-th component of voxel flat; ReducedMax reduces across
// components with max when the caller asks for a 4D field's reduced scalar.
func (v *Volume) At(flat, c int) float64 {
	return v.Data[flat*v.NComponents+c]
}

// ReducedMax returns the max over components at voxel flat.
func (v *Volume) ReducedMax(flat int) float64 {
	best := v.Data[flat*v.NComponents]
	for c := 1; c < v.NComponents; c++ {
		if x := v.Data[flat*v.NComponents+c]; x > best {
			best = x
		}
	}
	return best
}

// ElectrodeShape mirrors config.ElectrodeShape without importing pkg/config,
// keeping this package dependency-free of the configuration surface.
type ElectrodeShape int

const (
	ShapeRect ElectrodeShape = iota
	ShapeEllipse
)

// Placement is one electrode of a channel as seen by the solver: a 3D scalp
// center, its outward normal, its patch geometry, and the signed current (mA)
// flowing through it.
type Placement struct {
	Label       string
	Center      r3.Vec
	Normal      r3.Vec
	Shape       ElectrodeShape
	Dimensions  [2]float64 // mm x mm
	Thickness   float64    // mm
	CurrentMA   float64    // signed
	Conductivity float64   // S/m, electrode gel/sponge conductivity
}

// ConductivityModel maps a tissue tag to an isotropic conductivity in S/m.
// Tensors holds per-tag anisotropic tensors keyed the same way; Lookup and
// the memfe backend read only Isotropic, and nothing here reads Tensors.
type ConductivityModel struct {
	Isotropic map[int]float64
	Tensors   map[int][9]float64
}

// Lookup returns the isotropic conductivity for tag, or ok=false if absent.
func (c ConductivityModel) Lookup(tag int) (float64, bool) {
	v, ok := c.Isotropic[tag]
	return v, ok
}

// AtlasRegion is the element index set backing one atlas region on the mesh.
type AtlasRegion struct {
	ID       int
	Name     string
	Elements []int
}

// AtlasVoxelRegion is the voxel index set backing one atlas region in a volume.
type AtlasVoxelRegion struct {
	ID     int
	Name   string
	Voxels []int
}

// Library is the one seam the core is written against.
type Library interface {
	ReadMesh(ctx context.Context, path string) (*Mesh, error)
	WriteMesh(ctx context.Context, path string, mesh *Mesh, fields []Field) error

	ReadVolume(ctx context.Context, path string) (*Volume, error)
	WriteVolume(ctx context.Context, path string, vol *Volume) error

	// Solve runs the forward electromagnetic solver for one channel
	// (placements with zero-sum currents) and returns the nodal E field in
	// V/m. It is the single blocking operation in the whole pipeline.
	Solve(ctx context.Context, mesh *Mesh, placements []Placement, conductivity ConductivityModel) (Field, error)

	// AtlasMeshRegions returns, per cortical region, the set of mesh element
	// indices for the named atlas.
	AtlasMeshRegions(ctx context.Context, subjectID, atlasName string) (map[string]AtlasRegion, error)
	// AtlasVoxelRegions is the voxel-space counterpart.
	AtlasVoxelRegions(ctx context.Context, subjectID, atlasName string) (map[string]AtlasVoxelRegion, error)

	// SubjectToMNI returns the subject's precomputed affine to MNI space.
	SubjectToMNI(ctx context.Context, subjectID string) (geo.Affine, error)

	// InterpolateToVoxel rasterizes a mesh-space field onto a voxel grid
	// matching the given template volume's geometry.
	InterpolateToVoxel(ctx context.Context, mesh *Mesh, field Field, template *Volume) (*Volume, error)
}
