// Package analyzer resolves regions of interest and computes reproducible
// statistical summaries of a scalar field over them, on either a tetrahedral
// mesh or a voxel grid.
package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
	"github.com/simnibs/ti-orchestrator/pkg/tierr"
)

// Kind distinguishes the two ways an ROI can be specified: a geometric
// sphere or a named atlas region.
type Kind int

const (
	SphereROI Kind = iota
	AtlasROI
)

// ROI is the tagged variant: exactly one of the Sphere/Atlas branches is
// meaningful depending on Kind.
type ROI struct {
	Kind Kind

	Sphere geo.Sphere

	AtlasName string
	// Region is either a region name (case-insensitive) or an integer atlas
	// label rendered as a string; Resolve accepts either form.
	Region string
}

// Domain mirrors fe.FieldDomain but restricted to the two domains the
// analyzer operates over.
type Domain int

const (
	MeshDomain Domain = iota
	VoxelDomain
)

// Mask is the resolved index set into either mesh elements or voxels.
type Mask struct {
	Domain  Domain
	Indices []int
}

// ResolveMesh converts roi to a concrete element-index mask over mesh,
// converting the ROI's sphere center to the mesh's space via affine when the
// ROI's declared space differs.
func ResolveMesh(ctx context.Context, lib fe.Library, subjectID string, mesh *fe.Mesh, meshSpace geo.Space, affine geo.Affine, roi ROI) (Mask, error) {
	switch roi.Kind {
	case SphereROI:
		sphere := roi.Sphere
		if sphere.Space != meshSpace {
			sphere.Center = convert(affine, sphere.Space, meshSpace, sphere.Center)
			sphere.Space = meshSpace
		}
		var idx []int
		for e := 0; e < mesh.NumElements(); e++ {
			if sphere.Contains(mesh.ElementBarycenter(e)) {
				idx = append(idx, e)
			}
		}
		return Mask{Domain: MeshDomain, Indices: idx}, nil

	case AtlasROI:
		regions, err := lib.AtlasMeshRegions(ctx, subjectID, roi.AtlasName)
		if err != nil {
			return Mask{}, fmt.Errorf("analyzer: resolving mesh atlas %q: %w", roi.AtlasName, err)
		}
		region, err := matchMeshRegion(regions, roi.Region)
		if err != nil {
			return Mask{}, err
		}
		return Mask{Domain: MeshDomain, Indices: region.Elements}, nil
	}
	return Mask{}, fmt.Errorf("analyzer: unknown ROI kind %d", roi.Kind)
}

// ResolveVoxel is ResolveMesh's voxel-domain counterpart.
func ResolveVoxel(ctx context.Context, lib fe.Library, subjectID string, vol *fe.Volume, roi ROI) (Mask, error) {
	switch roi.Kind {
	case SphereROI:
		sphere := roi.Sphere
		if sphere.Space != vol.Space {
			return Mask{}, tierr.New(tierr.SpaceMismatch, roi.AtlasName,
				fmt.Sprintf("spherical ROI declared in %s space but field volume is in %s space", sphere.Space, vol.Space))
		}
		var idx []int
		for flat := 0; flat < vol.NumVoxels(); flat++ {
			i, j, k := vol.VoxelIndex(flat)
			if sphere.Contains(vol.VoxelCenterMM(i, j, k)) {
				idx = append(idx, flat)
			}
		}
		return Mask{Domain: VoxelDomain, Indices: idx}, nil

	case AtlasROI:
		regions, err := lib.AtlasVoxelRegions(ctx, subjectID, roi.AtlasName)
		if err != nil {
			return Mask{}, fmt.Errorf("analyzer: resolving voxel atlas %q: %w", roi.AtlasName, err)
		}
		region, err := matchVoxelRegion(regions, roi.Region)
		if err != nil {
			return Mask{}, err
		}
		return Mask{Domain: VoxelDomain, Indices: region.Voxels}, nil
	}
	return Mask{}, fmt.Errorf("analyzer: unknown ROI kind %d", roi.Kind)
}

func matchMeshRegion(regions map[string]fe.AtlasRegion, region string) (fe.AtlasRegion, error) {
	for name, r := range regions {
		if strings.EqualFold(name, region) {
			return r, nil
		}
	}
	if id, err := strconv.Atoi(region); err == nil {
		for _, r := range regions {
			if r.ID == id {
				return r, nil
			}
		}
	}
	return fe.AtlasRegion{}, tierr.New(tierr.UnknownRegion, region, "region not present in atlas")
}

func matchVoxelRegion(regions map[string]fe.AtlasVoxelRegion, region string) (fe.AtlasVoxelRegion, error) {
	for name, r := range regions {
		if strings.EqualFold(name, region) {
			return r, nil
		}
	}
	if id, err := strconv.Atoi(region); err == nil {
		for _, r := range regions {
			if r.ID == id {
				return r, nil
			}
		}
	}
	return fe.AtlasVoxelRegion{}, tierr.New(tierr.UnknownRegion, region, "region not present in atlas")
}

// convert maps p from 'from' space to 'to' space using the subject's
// subject->MNI affine.
func convert(affine geo.Affine, from, to geo.Space, p r3.Vec) r3.Vec {
	if from == to {
		return p
	}
	if from == geo.Subject && to == geo.MNI {
		return affine.Apply(p)
	}
	inv, ok := affine.Invert()
	if !ok {
		return p
	}
	return inv.Apply(p)
}
