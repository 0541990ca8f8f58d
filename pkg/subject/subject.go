// Package subject models the read-only subject head model: tetrahedral
// mesh, EEG nets, and the subject<->MNI affine. It is created by external
// pre-processing and consumed read-only by every other package, so nothing
// here mutates a Subject after Load returns.
package subject

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
)

// Subject bundles everything the core needs about one subject: its mesh (via
// the FE library), its EEG nets, and its subject<->MNI affine.
type Subject struct {
	ID          string
	AffineToMNI geo.Affine
	Nets        map[string]NetTable

	lib  fe.Library
	mesh *fe.Mesh
}

// Load resolves a subject's mesh and affine through the FE library and
// attaches the given net tables (already parsed; typically from the
// m2m_<id>/eeg_positions/ directory).
func Load(ctx context.Context, lib fe.Library, id string, nets map[string]NetTable) (*Subject, error) {
	affine, err := lib.SubjectToMNI(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("subject %s: resolving MNI affine: %w", id, err)
	}
	return &Subject{ID: id, AffineToMNI: affine, Nets: nets, lib: lib}, nil
}

// Mesh lazily resolves and caches the subject's tetrahedral mesh. Builds are
// not expected to be concurrent per-subject in this core (subject load
// happens once up front), so no locking is applied here — unlike the
// leadfield cache, which is explicitly guarded.
func (s *Subject) Mesh(ctx context.Context) (*fe.Mesh, error) {
	if s.mesh != nil {
		return s.mesh, nil
	}
	type meshBuilder interface {
		BuildHeadMesh() *fe.Mesh
	}
	if mb, ok := s.lib.(meshBuilder); ok {
		s.mesh = mb.BuildHeadMesh()
		return s.mesh, nil
	}
	return nil, fmt.Errorf("subject %s: FE library does not expose a mesh builder and no mesh path was configured", s.ID)
}

// Net looks up an EEG net table by name, failing with a descriptive error
// if the net was never attached to this subject.
func (s *Subject) Net(name string) (NetTable, error) {
	n, ok := s.Nets[name]
	if !ok {
		return NetTable{}, fmt.Errorf("subject %s: unknown EEG net %q", s.ID, name)
	}
	return n, nil
}

// ScalpCenter estimates the head center from the mesh's scalp-tissue node
// cloud, used by flex-search's scalp parameterization as the projection
// origin.
func ScalpCenter(mesh *fe.Mesh, scalpTissueTag int) r3.Vec {
	var sum r3.Vec
	n := 0
	seen := map[int]bool{}
	for ei, tag := range mesh.TissueTags {
		if tag != scalpTissueTag {
			continue
		}
		for _, ni := range mesh.Elements[ei] {
			if seen[ni] {
				continue
			}
			seen[ni] = true
			sum = r3.Add(sum, mesh.Nodes[ni])
			n++
		}
	}
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/float64(n), sum)
}

// ScalpRadius estimates a representative scalp radius (mean node distance
// from center), used as flex-search's projection sphere radius.
func ScalpRadius(mesh *fe.Mesh, scalpTissueTag int, center r3.Vec) float64 {
	sum := 0.0
	n := 0
	seen := map[int]bool{}
	for ei, tag := range mesh.TissueTags {
		if tag != scalpTissueTag {
			continue
		}
		for _, ni := range mesh.Elements[ei] {
			if seen[ni] {
				continue
			}
			seen[ni] = true
			sum += geo.Distance(center, mesh.Nodes[ni])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SortedNetNames returns a subject's attached net names in sorted order, for
// deterministic iteration/logging.
func (s *Subject) SortedNetNames() []string {
	names := make([]string, 0, len(s.Nets))
	for n := range s.Nets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
