package flexsearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/config"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
)

func testNet() subject.NetTable {
	return subject.NetTable{
		Name: "EEG10-20",
		Electrodes: map[string]subject.Electrode{
			"Fz": {Label: "Fz", Pos: r3.Vec{X: 0, Y: 80, Z: 20}},
			"Pz": {Label: "Pz", Pos: r3.Vec{X: 0, Y: -80, Z: 20}},
			"C3": {Label: "C3", Pos: r3.Vec{X: -70, Y: 0, Z: 40}},
			"C4": {Label: "C4", Pos: r3.Vec{X: 70, Y: 0, Z: 40}},
		},
		Order: []string{"Fz", "Pz", "C3", "C4"},
	}
}

func fastSettings() config.OptimizerSettings {
	seed := uint64(3)
	return config.OptimizerSettings{
		PopulationSize: 6, MaxIterations: 3, Tolerance: 1e-12,
		MutationScale: 0.3, RecombinationRate: 0.5, Seed: &seed, LocalPolish: false,
	}
}

func TestRunReturnsPositionsAndDiagnostics(t *testing.T) {
	eval := testEvaluator(t)
	result := Run(context.Background(), eval, fastSettings(), nil)

	assert.Nil(t, result.Mapped)
	assert.Greater(t, result.Evaluations, 0)
	assert.False(t, result.Cancelled)
	for _, p := range result.Positions {
		assert.InDelta(t, eval.ScalpRadius, r3.Norm(r3.Sub(p, eval.ScalpCenter)), 1e-6)
	}
}

func TestRunMapsOntoNetWhenProvided(t *testing.T) {
	eval := testEvaluator(t)
	net := testNet()
	result := Run(context.Background(), eval, fastSettings(), &net)

	require.Len(t, result.Mapped, electrodesPerChannel)
	for _, m := range result.Mapped {
		assert.NotEmpty(t, m.Label)
	}
}

func TestRunWithLocalPolishDoesNotWorsenFitness(t *testing.T) {
	eval := testEvaluator(t)
	settings := fastSettings()
	settings.LocalPolish = true

	result := Run(context.Background(), eval, settings, nil)
	assert.False(t, result.Cancelled)

	base := Run(context.Background(), testEvaluator(t), fastSettings(), nil)
	assert.GreaterOrEqual(t, result.GoalValue, base.GoalValue)
}
