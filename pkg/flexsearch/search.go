package flexsearch

import (
	"context"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/config"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
)

// Result is one flex-search run's full outcome: the optimized continuous
// positions, the goal value they achieve, optimizer diagnostics, and (if a
// net was supplied) the nearest-net-electrode mapping.
type Result struct {
	Positions   [electrodesPerChannel]r3.Vec
	GoalValue   float64
	Generations int
	Evaluations int
	Cancelled   bool
	Mapped      []MappedElectrode // nil if no net mapping was requested
}

// Run executes the global search from Evaluator and settings, optionally
// polishes the optimum locally, and optionally maps the result onto a net.
func Run(ctx context.Context, eval *Evaluator, settings config.OptimizerSettings, net *subject.NetTable) Result {
	dim := paramDim
	lower, upper := Bounds()

	popResult := runPopulationSearch(ctx, settings, eval.Objective, dim, lower, upper)

	best := popResult.Best
	bestFitness := popResult.BestFitness
	if settings.LocalPolish && !popResult.Cancelled {
		if polished, fitness, ok := localPolish(ctx, eval, best); ok && fitness < bestFitness {
			best, bestFitness = polished, fitness
		}
	}

	positions := Positions(best, eval.ScalpCenter, eval.ScalpRadius)

	result := Result{
		Positions:   positions,
		GoalValue:   -bestFitness, // Objective negates the goal; undo for reporting
		Generations: popResult.Generations,
		Evaluations: eval.Evaluations(),
		Cancelled:   popResult.Cancelled,
	}

	if net != nil {
		labels := make([]string, 0, len(net.Electrodes))
		positionsList := make([]r3.Vec, 0, len(net.Electrodes))
		for _, label := range net.Order {
			e, ok := net.Lookup(label)
			if !ok {
				continue
			}
			labels = append(labels, label)
			positionsList = append(positionsList, e.Pos)
		}
		result.Mapped = MapToNet(positions[:], labels, positionsList)
	}

	return result
}

// localPolish runs gonum's derivative-free Nelder-Mead simplex method from
// the global optimum, as an optional local refinement pass. Bounds are
// enforced by projecting every candidate point the objective is called
// with, since Nelder-Mead itself is unconstrained.
func localPolish(ctx context.Context, eval *Evaluator, start []float64) ([]float64, float64, bool) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := append([]float64(nil), x...)
			clampToBounds(clamped)
			return eval.Objective(ctx, clamped)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: 200,
	}
	result, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
	if err != nil || result == nil {
		return nil, 0, false
	}
	clampToBounds(result.X)
	return result.X, result.F, true
}
