package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simnibs/ti-orchestrator/pkg/tierr"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load([]byte("goal: mean\nbogus_option: 1\n"))
	require.Error(t, err)
	kind, ok := tierr.Of(err)
	assert.True(t, ok)
	assert.Equal(t, tierr.InvalidConfig, kind)
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	cfg, err := Load([]byte("goal: p99\n"))
	require.NoError(t, err)
	assert.Equal(t, GoalP99, cfg.Goal)
	assert.Equal(t, Default().TopK, cfg.TopK)
	assert.Equal(t, Default().EEGNet, cfg.EEGNet)
}

func TestValidateRejectsNonPositiveIntensity(t *testing.T) {
	cfg := Default()
	cfg.Intensities = []float64{2.0, -1.0}
	err := cfg.Validate()
	require.Error(t, err)
	kind, _ := tierr.Of(err)
	assert.Equal(t, tierr.InvalidConfig, kind)
}

func TestValidateRejectsUnknownGoal(t *testing.T) {
	cfg := Default()
	cfg.Goal = Goal("nonsense")
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroTopK(t *testing.T) {
	cfg := Default()
	cfg.TopK = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeMaxIterations(t *testing.T) {
	cfg := Default()
	cfg.Optimizer.MaxIterations = -1
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsZeroMaxIterationsBoundary(t *testing.T) {
	cfg := Default()
	cfg.Optimizer.MaxIterations = 0
	assert.NoError(t, cfg.Validate())
}
