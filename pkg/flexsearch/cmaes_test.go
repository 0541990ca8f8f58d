package flexsearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simnibs/ti-orchestrator/pkg/config"
)

func sphereObjective(target []float64) func(context.Context, []float64) float64 {
	return func(_ context.Context, x []float64) float64 {
		sum := 0.0
		for i := range x {
			d := x[i] - target[i]
			sum += d * d
		}
		return sum
	}
}

func testBounds() (lower, upper [paramDim]float64) {
	return Bounds()
}

func TestRunPopulationSearchConvergesTowardMinimum(t *testing.T) {
	target := make([]float64, paramDim)
	lower, upper := testBounds()
	seed := uint64(42)
	settings := config.OptimizerSettings{
		PopulationSize: 24, MaxIterations: 60, Tolerance: 1e-10,
		MutationScale: 0.5, RecombinationRate: 0.5, Seed: &seed,
	}

	result := runPopulationSearch(context.Background(), settings, sphereObjective(target), paramDim, lower, upper)
	assert.False(t, result.Cancelled)
	assert.Less(t, result.BestFitness, 1.0)
}

func TestRunPopulationSearchZeroMaxIterationsNeverRunsLoopBody(t *testing.T) {
	target := make([]float64, paramDim)
	lower, upper := testBounds()
	seed := uint64(1)
	settings := config.OptimizerSettings{
		PopulationSize: 8, MaxIterations: 0, Tolerance: 1e-10,
		MutationScale: 0.5, RecombinationRate: 0.5, Seed: &seed,
	}

	result := runPopulationSearch(context.Background(), settings, sphereObjective(target), paramDim, lower, upper)
	assert.Equal(t, 0, result.Generations)
	assert.False(t, result.Cancelled)
}

func TestRunPopulationSearchHonorsCancellation(t *testing.T) {
	target := make([]float64, paramDim)
	lower, upper := testBounds()
	seed := uint64(7)
	settings := config.OptimizerSettings{
		PopulationSize: 8, MaxIterations: 1000, Tolerance: 0,
		MutationScale: 0.5, RecombinationRate: 0.5, Seed: &seed,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := runPopulationSearch(ctx, settings, sphereObjective(target), paramDim, lower, upper)
	assert.True(t, result.Cancelled)
}

func TestNewRandIsDeterministicWithSeed(t *testing.T) {
	seed := uint64(99)
	a := newRand(&seed)
	b := newRand(&seed)
	require.Equal(t, a.Float64(), b.Float64())
}

func TestWeightedMeanWeightsFittestMost(t *testing.T) {
	pop := []member{{x: []float64{0, 0}, fit: 0}, {x: []float64{10, 10}, fit: 1}}
	mean := weightedMean(pop, 2)
	assert.Less(t, mean[0], 5.0)
}
