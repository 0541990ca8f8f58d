package flexsearch

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/simnibs/ti-orchestrator/pkg/config"
)

// member is one population individual: its parameter vector and the
// objective value it was last evaluated at.
type member struct {
	x   []float64
	fit float64
}

// PopulationResult is the global optimizer's outcome: the best point found,
// its objective value, how many generations ran, and whether the run ended
// by cooperative cancellation rather than convergence or exhaustion. On
// cancellation the best point found so far is still returned, with
// Cancelled set, rather than an error.
type PopulationResult struct {
	Best        []float64
	BestFitness float64
	Generations int
	Cancelled   bool
}

// runPopulationSearch is a real-coded (mu+lambda) evolution strategy: each
// generation ranks the population by fitness, recombines the fittest
// RecombinationRate fraction into a weighted mean "parent", and repopulates
// by Gaussian mutation of that parent scaled by MutationScale times the
// current spread, clamped back to the parameter box. It is standard-library
// -only by design (see DESIGN.md) since no evolutionary-optimization
// package appears anywhere in the retrieval pack.
//
// max_iterations=0 is a boundary case: the loop body never runs, so the
// best point returned is simply the best-evaluated initial-population
// member.
func runPopulationSearch(ctx context.Context, settings config.OptimizerSettings, objective func(context.Context, []float64) float64, dim int, lower, upper [paramDim]float64) PopulationResult {
	rng := newRand(settings.Seed)

	pop := make([]member, settings.PopulationSize)
	for i := range pop {
		x := make([]float64, dim)
		for d := 0; d < dim; d++ {
			x[d] = lower[d] + rng.Float64()*(upper[d]-lower[d])
		}
		pop[i] = member{x: x, fit: objective(ctx, x)}
	}
	sortByFitness(pop)

	result := PopulationResult{Best: append([]float64(nil), pop[0].x...), BestFitness: pop[0].fit}

	numElite := int(float64(settings.PopulationSize)*settings.RecombinationRate + 0.5)
	if numElite < 1 {
		numElite = 1
	}
	if numElite > settings.PopulationSize {
		numElite = settings.PopulationSize
	}

	prevBest := result.BestFitness
	for gen := 0; gen < settings.MaxIterations; gen++ {
		select {
		case <-ctx.Done():
			result.Cancelled = true
			return result
		default:
		}

		parent := weightedMean(pop[:numElite], dim)
		spread := populationSpread(pop, dim)

		next := make([]member, settings.PopulationSize)
		next[0] = member{x: append([]float64(nil), result.Best...), fit: result.BestFitness} // elitism
		for i := 1; i < settings.PopulationSize; i++ {
			x := make([]float64, dim)
			for d := 0; d < dim; d++ {
				x[d] = parent[d] + rng.NormFloat64()*settings.MutationScale*spread[d]
			}
			clampToBounds(x)
			next[i] = member{x: x, fit: objective(ctx, x)}
		}
		sortByFitness(next)
		pop = next
		result.Generations = gen + 1

		if pop[0].fit < result.BestFitness {
			result.Best = append([]float64(nil), pop[0].x...)
			result.BestFitness = pop[0].fit
		}

		if math.Abs(prevBest-result.BestFitness) < settings.Tolerance {
			break
		}
		prevBest = result.BestFitness
	}
	return result
}

func newRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(int64(*seed)))
}

func sortByFitness(pop []member) {
	sort.Slice(pop, func(i, j int) bool { return pop[i].fit < pop[j].fit })
}

func weightedMean(elite []member, dim int) []float64 {
	out := make([]float64, dim)
	totalWeight := 0.0
	for rank, m := range elite {
		weight := float64(len(elite) - rank) // linear rank weighting, fittest heaviest
		totalWeight += weight
		for d := 0; d < dim; d++ {
			out[d] += weight * m.x[d]
		}
	}
	if totalWeight > 0 {
		for d := range out {
			out[d] /= totalWeight
		}
	}
	return out
}

func populationSpread(pop []member, dim int) []float64 {
	spread := make([]float64, dim)
	mean := make([]float64, dim)
	for _, m := range pop {
		for d := 0; d < dim; d++ {
			mean[d] += m.x[d]
		}
	}
	n := float64(len(pop))
	for d := range mean {
		mean[d] /= n
	}
	for _, m := range pop {
		for d := 0; d < dim; d++ {
			diff := m.x[d] - mean[d]
			spread[d] += diff * diff
		}
	}
	for d := range spread {
		spread[d] = math.Sqrt(spread[d]/n) + 1e-6
	}
	return spread
}
