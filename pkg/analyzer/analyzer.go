package analyzer

import (
	"context"
	"fmt"

	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
	"github.com/simnibs/ti-orchestrator/pkg/tierr"
)

// Analyzer computes ROI-restricted statistics against one subject's atlas
// lookups. Sphere, atlas-region, and whole-head analysis are unified behind
// mesh/voxel entry points taking an optional ROI — a nil ROI means the
// whole head.
type Analyzer struct {
	Lib       fe.Library
	SubjectID string
}

// New constructs an Analyzer bound to one subject's atlas lookups.
func New(lib fe.Library, subjectID string) *Analyzer {
	return &Analyzer{Lib: lib, SubjectID: subjectID}
}

// AnalyzeMesh computes Stats for field over mesh, restricted to roi (nil for
// the whole head). field must be aligned to either mesh elements directly or
// mesh nodes, in which case it is averaged onto elements first.
func (a *Analyzer) AnalyzeMesh(ctx context.Context, mesh *fe.Mesh, meshSpace geo.Space, affine geo.Affine, field fe.Field, roi *ROI) (Stats, error) {
	elementValues, err := elementAligned(mesh, field)
	if err != nil {
		return Stats{}, err
	}

	var indices []int
	if roi == nil {
		indices = make([]int, mesh.NumElements())
		for i := range indices {
			indices[i] = i
		}
	} else {
		mask, err := ResolveMesh(ctx, a.Lib, a.SubjectID, mesh, meshSpace, affine, *roi)
		if err != nil {
			return Stats{}, err
		}
		indices = mask.Indices
	}

	if len(indices) == 0 {
		return NullStats(), nil
	}

	values := make([]float64, len(indices))
	volumes := make([]float64, len(indices))
	for i, e := range indices {
		values[i] = elementValues[e]
		volumes[i] = mesh.ElementVolumesMM3[e]
	}
	return ComputeMesh(values, volumes), nil
}

// AnalyzeVoxel is AnalyzeMesh's voxel-domain counterpart. vol carries its own
// space; a spherical ROI in a different space is rejected as SpaceMismatch by
// ResolveVoxel rather than silently converted.
func (a *Analyzer) AnalyzeVoxel(ctx context.Context, vol *fe.Volume, roi *ROI) (Stats, error) {
	if len(vol.Data) != vol.NumVoxels()*vol.NComponents {
		return Stats{}, tierr.New(tierr.ShapeMismatch, "", fmt.Sprintf(
			"volume data length %d does not match shape*components %d", len(vol.Data), vol.NumVoxels()*vol.NComponents))
	}

	var indices []int
	if roi == nil {
		indices = make([]int, vol.NumVoxels())
		for i := range indices {
			indices[i] = i
		}
	} else {
		mask, err := ResolveVoxel(ctx, a.Lib, a.SubjectID, vol, *roi)
		if err != nil {
			return Stats{}, err
		}
		indices = mask.Indices
	}

	if len(indices) == 0 {
		return NullStats(), nil
	}

	unitVolume := vol.VoxelSizeMM[0] * vol.VoxelSizeMM[1] * vol.VoxelSizeMM[2]
	values := make([]float64, len(indices))
	for i, flat := range indices {
		values[i] = vol.ReducedMax(flat)
	}
	return Compute(values, unitVolume), nil
}

// elementAligned returns field's values indexed by element, converting from
// a nodal field by averaging each element's four node values when necessary.
func elementAligned(mesh *fe.Mesh, field fe.Field) ([]float64, error) {
	switch field.Domain {
	case fe.ElementDomain:
		if field.Count != mesh.NumElements() || field.Dim != 1 {
			return nil, tierr.New(tierr.ShapeMismatch, field.Name, fmt.Sprintf(
				"element field has %d entries, mesh has %d elements", field.Count, mesh.NumElements()))
		}
		return field.Data, nil
	case fe.NodeDomain:
		if field.Count != mesh.NumNodes() || field.Dim != 1 {
			return nil, tierr.New(tierr.ShapeMismatch, field.Name, fmt.Sprintf(
				"node field has %d entries, mesh has %d nodes", field.Count, mesh.NumNodes()))
		}
		out := make([]float64, mesh.NumElements())
		for e := 0; e < mesh.NumElements(); e++ {
			out[e] = mesh.ElementAverage(field, e)
		}
		return out, nil
	default:
		return nil, tierr.New(tierr.ShapeMismatch, field.Name, fmt.Sprintf("field domain %s is not mesh-aligned", field.Domain))
	}
}
