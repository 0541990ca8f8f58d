// Package memfe is a deterministic, in-memory reference implementation of
// fe.Library. It builds small synthetic head models instead of reading real
// segmentations, and solves the forward problem with a closed-form
// superposition of point-current potentials rather than an FE solve. It
// exists so the rest of the core (and its tests) can run end to end without
// a production neuro-FEM backend wired in, standing behind the same typed
// Library interface a real backend would implement.
package memfe

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
)

// Tissue tags used by the synthetic head model.
const (
	TissueWhiteMatter = 1
	TissueGreyMatter  = 2
	TissueCSF         = 3
	TissueSkull       = 4
	TissueScalp       = 5
)

// Library is the reference fe.Library backend. Zero value is usable.
type Library struct {
	// HeadRadiusMM is the outer scalp radius of the synthetic sphere shell
	// model; layers are carved at fixed fractions of it.
	HeadRadiusMM float64
}

func New() *Library { return &Library{HeadRadiusMM: 90} }

func (l *Library) radius() float64 {
	if l.HeadRadiusMM <= 0 {
		return 90
	}
	return l.HeadRadiusMM
}

// BuildHeadMesh generates a deterministic layered-sphere tetrahedral mesh:
// concentric shells of points connected into tetrahedra via a fixed
// longitude/latitude/radius lattice, tagged by tissue layer. The same
// (subjectID-independent) lattice is produced every call, matching the
// idempotence a real backend must also provide.
func (l *Library) BuildHeadMesh() *fe.Mesh {
	const nLat = 9
	const nLon = 16
	radius := l.radius()
	shells := []struct {
		frac float64
		tag  int
	}{
		{0.70, TissueWhiteMatter},
		{0.80, TissueGreyMatter},
		{0.85, TissueCSF},
		{0.92, TissueSkull},
		{1.00, TissueScalp},
	}

	var nodes []r3.Vec
	nodeIndex := map[[3]int]int{} // (shell, lat, lon) -> node index
	for si, sh := range shells {
		r := sh.frac * radius
		for li := 0; li <= nLat; li++ {
			lat := -math.Pi/2 + math.Pi*float64(li)/float64(nLat)
			for lj := 0; lj < nLon; lj++ {
				lon := -math.Pi + 2*math.Pi*float64(lj)/float64(nLon)
				p := geo.ScalpPoint(r3.Vec{}, r, lon, lat)
				nodeIndex[[3]int{si, li, lj}] = len(nodes)
				nodes = append(nodes, p)
			}
		}
	}

	var elements [][4]int
	var tags []int
	for si := 0; si < len(shells); si++ {
		for li := 0; li < nLat; li++ {
			for lj := 0; lj < nLon; lj++ {
				ljNext := (lj + 1) % nLon
				// Two triangular "layers" (inner/outer shell boundary of this
				// tetrahedral slab) give two prism corners; split each prism
				// into tets by a fixed diagonal pattern.
				siInner := si
				a := nodeIndex[[3]int{siInner, li, lj}]
				b := nodeIndex[[3]int{siInner, li, ljNext}]
				c := nodeIndex[[3]int{siInner, li + 1, lj}]
				d := nodeIndex[[3]int{siInner, li + 1, ljNext}]
				// Two tets approximate the quad patch's thickness using the
				// node itself as a degenerate 4th vertex offset slightly
				// inward, keeping the mesh a valid (if coarse) tetrahedral set
				// without needing a second radial shell per slab.
				inward := nodes[a]
				inward = r3.Scale(0.97, inward)
				elements = append(elements, [4]int{a, b, c, len(nodes)})
				nodes = append(nodes, inward)
				tags = append(tags, shells[si].tag)
				elements = append(elements, [4]int{b, d, c, len(nodes) - 1})
				tags = append(tags, shells[si].tag)
			}
		}
	}

	mesh := &fe.Mesh{Nodes: nodes, Elements: elements, TissueTags: tags}
	mesh.ElementVolumesMM3 = make([]float64, len(elements))
	for i, el := range elements {
		mesh.ElementVolumesMM3[i] = tetVolume(nodes[el[0]], nodes[el[1]], nodes[el[2]], nodes[el[3]])
	}
	for i, tag := range tags {
		if tag == TissueGreyMatter {
			mesh.GreyMatterElements = append(mesh.GreyMatterElements, i)
		}
	}
	return mesh
}

func tetVolume(a, b, c, d r3.Vec) float64 {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ad := r3.Sub(d, a)
	cross := r3.Cross(ac, ad)
	return math.Abs(r3.Dot(ab, cross)) / 6.0
}

// ReadMesh/WriteMesh round-trip via gob; the reference backend does not
// speak real Gmsh .msh, matching the layout convention's filenames only
// (DESIGN.md documents this substitution).
type meshEnvelope struct {
	Mesh   fe.Mesh
	Fields []fe.Field
}

func (l *Library) ReadMesh(ctx context.Context, path string) (*fe.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memfe: reading mesh %s: %w", path, err)
	}
	var env meshEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("memfe: decoding mesh %s: %w", path, err)
	}
	return &env.Mesh, nil
}

func (l *Library) WriteMesh(ctx context.Context, path string, mesh *fe.Mesh, fields []fe.Field) error {
	var buf bytes.Buffer
	env := meshEnvelope{Mesh: *mesh, Fields: fields}
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("memfe: encoding mesh %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("memfe: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("memfe: writing mesh %s: %w", path, err)
	}
	return nil
}

func (l *Library) ReadVolume(ctx context.Context, path string) (*fe.Volume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memfe: reading volume %s: %w", path, err)
	}
	var v fe.Volume
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, fmt.Errorf("memfe: decoding volume %s: %w", path, err)
	}
	return &v, nil
}

func (l *Library) WriteVolume(ctx context.Context, path string, vol *fe.Volume) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(*vol); err != nil {
		return fmt.Errorf("memfe: encoding volume %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("memfe: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("memfe: writing volume %s: %w", path, err)
	}
	return nil
}

// Solve superposes, for each placement, the potential gradient of a point
// current source/sink in an infinite homogeneous conductor of the dominant
// scalp-layer conductivity:
//
//	E(x) = sum_p  I_p / (4*pi*sigma*|x-c_p|^2) * unit(x-c_p)
//
// This is not a real volume-conductor FE solve (it ignores tissue boundaries
// entirely) but it is a genuine closed-form vector field: deterministic,
// smooth away from the sources, and linear in current — the property both
// the leadfield cache's superposition and the simulator's idempotence
// requirement depend on.
func (l *Library) Solve(ctx context.Context, mesh *fe.Mesh, placements []fe.Placement, conductivity fe.ConductivityModel) (fe.Field, error) {
	sigma, ok := conductivity.Lookup(TissueScalp)
	if !ok {
		return fe.Field{}, fmt.Errorf("memfe: no conductivity for scalp tissue tag %d", TissueScalp)
	}
	if sigma <= 0 {
		sigma = 0.33
	}

	field := fe.NewVectorField("E", fe.NodeDomain, mesh.NumNodes())
	const minDistMM = 1e-3
	for ni, node := range mesh.Nodes {
		var e r3.Vec
		for _, p := range placements {
			d := r3.Sub(node, p.Center)
			dist := math.Sqrt(r3.Dot(d, d))
			if dist < minDistMM {
				dist = minDistMM
			}
			// current is in mA; convert to A for V/m units as documented on Placement.
			coeff := (p.CurrentMA / 1000.0) / (4 * math.Pi * sigma * dist * dist * dist)
			e = r3.Add(e, r3.Scale(coeff, d))
		}
		field.Data[ni*3] = e.X
		field.Data[ni*3+1] = e.Y
		field.Data[ni*3+2] = e.Z
	}
	return field, nil
}

// regionBands partitions grey-matter elements into named regions by
// longitude/latitude octants of their barycenter, giving a small, stable set
// of addressable atlas regions ("frontal-L", "parietal-R", ...).
func (l *Library) regionBands(mesh *fe.Mesh, elements []int) map[string]fe.AtlasRegion {
	regions := map[string]fe.AtlasRegion{}
	for _, e := range elements {
		bc := mesh.ElementBarycenter(e)
		name := bandName(bc)
		r := regions[name]
		r.Name = name
		r.ID = bandID(name)
		r.Elements = append(r.Elements, e)
		regions[name] = r
	}
	return regions
}

var bandNames = []string{"frontal-L", "frontal-R", "parietal-L", "parietal-R", "occipital-L", "occipital-R", "temporal-L", "temporal-R"}

func bandID(name string) int {
	for i, n := range bandNames {
		if n == name {
			return i + 1
		}
	}
	return 0
}

func bandName(p r3.Vec) string {
	lon := math.Atan2(p.Y, p.X)
	side := "R"
	if p.Y >= 0 {
		side = "L"
	}
	switch {
	case p.Z > 0 && math.Abs(lon) < math.Pi/3:
		return "frontal-" + side
	case p.Z > 0:
		return "parietal-" + side
	case math.Abs(lon) > 2*math.Pi/3:
		return "occipital-" + side
	default:
		return "temporal-" + side
	}
}

func (l *Library) AtlasMeshRegions(ctx context.Context, subjectID, atlasName string) (map[string]fe.AtlasRegion, error) {
	mesh := l.BuildHeadMesh()
	return l.regionBands(mesh, mesh.GreyMatterElements), nil
}

func (l *Library) AtlasVoxelRegions(ctx context.Context, subjectID, atlasName string) (map[string]fe.AtlasVoxelRegion, error) {
	vol := l.referenceVolume(geo.Subject)
	regions := map[string]fe.AtlasVoxelRegion{}
	for flat := 0; flat < vol.NumVoxels(); flat++ {
		i, j, k := vol.VoxelIndex(flat)
		center := vol.VoxelCenterMM(i, j, k)
		dist := math.Sqrt(center.X*center.X + center.Y*center.Y + center.Z*center.Z)
		if dist > 0.85*l.radius() || dist < 0.70*l.radius() {
			continue // only grey-matter band is atlas-addressable, as on the mesh
		}
		name := bandName(center)
		r := regions[name]
		r.Name = name
		r.ID = bandID(name)
		r.Voxels = append(r.Voxels, flat)
		regions[name] = r
	}
	return regions, nil
}

// referenceVolume builds a coarse isotropic voxel grid covering the head,
// in the requested space (subject space is the native grid; MNI space
// applies a fixed translation to emulate template registration).
func (l *Library) referenceVolume(space geo.Space) *fe.Volume {
	const n = 40
	voxSize := 2 * l.radius() / float64(n)
	affine := geo.Affine{M: [12]float64{
		voxSize, 0, 0, -l.radius(),
		0, voxSize, 0, -l.radius(),
		0, 0, voxSize, -l.radius(),
	}}
	if space == geo.MNI {
		// Fixed, deterministic registration offset standing in for a real
		// subject->template affine.
		affine.M[3] += 1.5
		affine.M[7] += 0.5
		affine.M[11] -= 1.0
	}
	return &fe.Volume{
		Shape:       [3]int{n, n, n},
		VoxelSizeMM: [3]float64{voxSize, voxSize, voxSize},
		QForm:       affine,
		Space:       space,
		NComponents: 1,
		Data:        make([]float64, n*n*n),
	}
}

func (l *Library) SubjectToMNI(ctx context.Context, subjectID string) (geo.Affine, error) {
	// Deterministic per-library stand-in for a registration affine: an
	// identity rotation plus the same fixed offset used by referenceVolume,
	// so mesh-based and volume-based MNI transforms agree.
	return geo.Affine{M: [12]float64{
		1, 0, 0, 1.5,
		0, 1, 0, 0.5,
		0, 0, 1, -1.0,
	}}, nil
}

// InterpolateToVoxel assigns each voxel the field value of its nearest mesh
// node/element (nearest-neighbor, not trilinear — sufficient determinism for
// a reference backend).
func (l *Library) InterpolateToVoxel(ctx context.Context, mesh *fe.Mesh, field fe.Field, template *fe.Volume) (*fe.Volume, error) {
	out := &fe.Volume{
		Shape:       template.Shape,
		VoxelSizeMM: template.VoxelSizeMM,
		QForm:       template.QForm,
		Space:       template.Space,
		NComponents: field.Dim,
		Data:        make([]float64, template.NumVoxels()*field.Dim),
	}

	type sample struct {
		p r3.Vec
		v []float64
	}
	var samples []sample
	switch field.Domain {
	case fe.NodeDomain:
		samples = make([]sample, len(mesh.Nodes))
		for i, p := range mesh.Nodes {
			v := make([]float64, field.Dim)
			for d := 0; d < field.Dim; d++ {
				v[d] = field.Data[i*field.Dim+d]
			}
			samples[i] = sample{p: p, v: v}
		}
	case fe.ElementDomain:
		samples = make([]sample, mesh.NumElements())
		for i := range mesh.Elements {
			v := make([]float64, field.Dim)
			for d := 0; d < field.Dim; d++ {
				v[d] = field.Data[i*field.Dim+d]
			}
			samples[i] = sample{p: mesh.ElementBarycenter(i), v: v}
		}
	default:
		return nil, fmt.Errorf("memfe: cannot interpolate field already in voxel domain")
	}

	for flat := 0; flat < out.NumVoxels(); flat++ {
		i, j, k := out.VoxelIndex(flat)
		center := out.VoxelCenterMM(i, j, k)
		best, bestDist := 0, math.MaxFloat64
		for si, s := range samples {
			d := r3.Sub(center, s.p)
			dist := r3.Dot(d, d)
			if dist < bestDist {
				bestDist = dist
				best = si
			}
		}
		for d := 0; d < field.Dim; d++ {
			out.Data[flat*field.Dim+d] = samples[best].v[d]
		}
	}
	return out, nil
}

// ReferenceVolume exposes referenceVolume for callers (e.g. the simulator)
// that need a template volume shape/geometry: the reference volume of the
// given space.
func (l *Library) ReferenceVolume(space geo.Space) *fe.Volume {
	return l.referenceVolume(space)
}
