package leadfield

import (
	"context"
	"fmt"

	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
)

// Build runs the leadfield build algorithm: for each electrode e in the
// net, solve the forward problem with unit current injected at e and
// extracted at the fingerprint's reference electrode, storing the
// resulting nodal E-field. The reference electrode's own row is left at
// its allocated zero value.
func Build(ctx context.Context, lib fe.Library, subj *subject.Subject, net subject.NetTable, fp Fingerprint, conductivity fe.ConductivityModel) (*Leadfield, error) {
	mesh, err := subj.Mesh(ctx)
	if err != nil {
		return nil, fmt.Errorf("leadfield build: %w", err)
	}

	refElectrode, ok := net.Lookup(fp.ReferenceElectrode)
	if !ok {
		return nil, fmt.Errorf("leadfield build: reference electrode %q not found in net %q", fp.ReferenceElectrode, net.Name)
	}

	lf := New(fp, net.Order, mesh.NumNodes())
	const unitCurrentMA = 1000.0 // 1 A expressed in mA, per Placement's mA convention

	for ei, label := range net.Order {
		if label == fp.ReferenceElectrode {
			continue // row stays zero: reference subtracted by construction
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("leadfield build: %w", ctx.Err())
		default:
		}

		elec, ok := net.Lookup(label)
		if !ok {
			return nil, fmt.Errorf("leadfield build: electrode %q missing from net table", label)
		}
		placements := []fe.Placement{
			{Label: label, Center: elec.Pos, CurrentMA: unitCurrentMA},
			{Label: fp.ReferenceElectrode, Center: refElectrode.Pos, CurrentMA: -unitCurrentMA},
		}

		field, err := lib.Solve(ctx, mesh, placements, conductivity)
		if err != nil {
			return nil, fmt.Errorf("leadfield build: electrode %s: %w", label, err)
		}
		for n := 0; n < mesh.NumNodes(); n++ {
			v := field.Vec3At(n)
			lf.SetNodeVector(ei, n, v.X, v.Y, v.Z)
		}
	}

	return lf, nil
}
