package simulator

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/fe"
)

// greySubmesh restricts mesh to its grey-matter elements, remapping node
// indices to a contiguous range. nodeMap[oldIndex] gives the new index (or
// -1 if the node does not belong to any grey-matter element), used to
// restrict node-domain fields onto the submesh with restrictNodal.
type greySubmesh struct {
	Mesh    *fe.Mesh
	nodeMap []int // len == len(full mesh nodes)
}

// buildGreySubmesh produces the grey-matter-only submesh written alongside
// the full head mesh ("grey_*" outputs).
func buildGreySubmesh(mesh *fe.Mesh) greySubmesh {
	nodeMap := make([]int, len(mesh.Nodes))
	for i := range nodeMap {
		nodeMap[i] = -1
	}

	var nodes []r3.Vec
	var elements [][4]int
	var tags []int
	var volumes []float64
	for _, e := range mesh.GreyMatterElements {
		el := mesh.Elements[e]
		var mapped [4]int
		for k, old := range el {
			if nodeMap[old] == -1 {
				nodeMap[old] = len(nodes)
				nodes = append(nodes, mesh.Nodes[old])
			}
			mapped[k] = nodeMap[old]
		}
		elements = append(elements, mapped)
		tags = append(tags, mesh.TissueTags[e])
		volumes = append(volumes, mesh.ElementVolumesMM3[e])
	}

	sub := &fe.Mesh{
		Nodes:             nodes,
		Elements:          elements,
		TissueTags:        tags,
		ElementVolumesMM3: volumes,
	}
	sub.GreyMatterElements = make([]int, len(elements))
	for i := range sub.GreyMatterElements {
		sub.GreyMatterElements[i] = i
	}

	return greySubmesh{Mesh: sub, nodeMap: nodeMap}
}

// restrictNodal restricts a flattened xyz-or-scalar nodal array (dim
// components per full-mesh node) onto the submesh's node set.
func (g greySubmesh) restrictNodal(data []float64, dim int) []float64 {
	out := make([]float64, len(g.Mesh.Nodes)*dim)
	for old, mapped := range g.nodeMap {
		if mapped == -1 {
			continue
		}
		for d := 0; d < dim; d++ {
			out[mapped*dim+d] = data[old*dim+d]
		}
	}
	return out
}
