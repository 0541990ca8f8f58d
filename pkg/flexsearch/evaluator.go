package flexsearch

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/analyzer"
	"github.com/simnibs/ti-orchestrator/pkg/config"
	"github.com/simnibs/ti-orchestrator/pkg/electrode"
	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
	"github.com/simnibs/ti-orchestrator/pkg/ti"
)

// Evaluator binds everything one flex-search objective evaluation needs:
// the FE solver, the subject's mesh and coordinate frame, the electrode
// patch geometry and conductivity profile, the fixed channel currents, and
// the ROI + goal the optimizer is driving toward.
type Evaluator struct {
	Lib          fe.Library
	Mesh         *fe.Mesh
	MeshSpace    geo.Space
	Affine       geo.Affine
	ScalpCenter  r3.Vec
	ScalpRadius  float64
	Spec         electrode.Spec
	Conductivity fe.ConductivityModel
	Current1MA   float64
	Current2MA   float64
	Analyzer     *analyzer.Analyzer
	ROI          *analyzer.ROI
	Goal         config.Goal

	evalCount int
}

// placementsFromPositions rasterizes electrodesPerChannel scalp points into
// two zero-sum channels: electrodes 0,1 form channel 1 at +-Current1MA,
// electrodes 2,3 form channel 2 at +-Current2MA.
func (e *Evaluator) placementsFromPositions(pos [electrodesPerChannel]r3.Vec) (ch1, ch2 []fe.Placement) {
	shape := fe.ShapeRect
	if e.Spec.Shape == config.ElectrodeEllipse {
		shape = fe.ShapeEllipse
	}
	mk := func(label string, p r3.Vec, current float64) fe.Placement {
		normal := p
		if length := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z); length > 1e-9 {
			normal.X, normal.Y, normal.Z = p.X/length, p.Y/length, p.Z/length
		}
		return fe.Placement{
			Label:        label,
			Center:       p,
			Normal:       normal,
			Shape:        shape,
			Dimensions:   e.Spec.Dimensions,
			Thickness:    e.Spec.ThicknessMM,
			CurrentMA:    current,
			Conductivity: e.Spec.Conductivity,
		}
	}
	ch1 = []fe.Placement{
		mk("flex-1a", pos[0], e.Current1MA),
		mk("flex-1b", pos[1], -e.Current1MA),
	}
	ch2 = []fe.Placement{
		mk("flex-2a", pos[2], e.Current2MA),
		mk("flex-2b", pos[3], -e.Current2MA),
	}
	return ch1, ch2
}

// Objective is the scalar the optimizer minimizes: the negated goal value,
// so maximizing an ROI metric becomes minimizing -metric. A solver failure
// for this point is treated as +inf, so the optimizer simply avoids that
// region.
func (e *Evaluator) Objective(ctx context.Context, x []float64) float64 {
	e.evalCount++
	pos := Positions(x, e.ScalpCenter, e.ScalpRadius)
	ch1, ch2 := e.placementsFromPositions(pos)

	field1, err := e.Lib.Solve(ctx, e.Mesh, ch1, e.Conductivity)
	if err != nil {
		return math.Inf(1)
	}
	field2, err := e.Lib.Solve(ctx, e.Mesh, ch2, e.Conductivity)
	if err != nil {
		return math.Inf(1)
	}

	normals := e.Mesh.RadialNormals()
	fields := ti.Derive(field1.Data, field2.Data, normals)
	maxField := fe.Field{Name: "TI_max", Domain: fe.NodeDomain, Dim: 1, Count: len(fields.Max), Data: fields.Max}

	stats, err := e.Analyzer.AnalyzeMesh(ctx, e.Mesh, e.MeshSpace, e.Affine, maxField, e.ROI)
	if err != nil {
		return math.Inf(1)
	}

	goalValue := goalFromStats(stats, e.Goal)
	return -goalValue
}

func goalFromStats(s analyzer.Stats, goal config.Goal) float64 {
	switch goal {
	case config.GoalMean:
		return s.Mean
	case config.GoalMedian:
		return s.Median
	case config.GoalP99:
		return s.P99
	case config.GoalFocality:
		if s.VolumeMM3 > 0 {
			return s.Focality50 / s.VolumeMM3
		}
		return 0
	case config.GoalRatio:
		return s.Mean
	default:
		return s.Mean
	}
}

// Evaluations returns how many Objective calls have been made so far, a
// diagnostic surfaced alongside the optimizer's iteration count.
func (e *Evaluator) Evaluations() int { return e.evalCount }
