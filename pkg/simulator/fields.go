package simulator

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/fe"
)

// vectorMagnitude reduces a Dim==3 node-domain field to a scalar "magE"
// field, stored alongside the vector E field in the per-channel mesh
// output.
func vectorMagnitude(name string, v fe.Field) fe.Field {
	out := fe.NewScalarField(name, v.Domain, v.Count)
	for i := 0; i < v.Count; i++ {
		e := v.Vec3At(i)
		out.Data[i] = r3.Norm(e)
	}
	return out
}

func scalarFieldFrom(name string, domain fe.FieldDomain, data []float64) fe.Field {
	return fe.Field{Name: name, Domain: domain, Dim: 1, Count: len(data), Data: data}
}
