package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullStatsHasZeroCountAndNaNStatistics(t *testing.T) {
	s := NullStats()
	assert.Equal(t, 0, s.Count)
	assert.True(t, math.IsNaN(s.Mean))
	assert.True(t, math.IsNaN(s.P99))
}

func TestComputeEmptyReturnsNullStats(t *testing.T) {
	s := Compute(nil, 1.0)
	assert.Equal(t, 0, s.Count)
	assert.True(t, math.IsNaN(s.Mean))
}

func TestComputeBasicSummary(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	s := Compute(values, 2.0)
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Mean)
	assert.Equal(t, 10.0, s.VolumeMM3)
}

func TestComputeMeshUsesPerElementVolume(t *testing.T) {
	values := []float64{1, 2, 3}
	volumes := []float64{1, 2, 3}
	s := ComputeMesh(values, volumes)
	assert.Equal(t, 6.0, s.VolumeMM3)
	// Weighted mean = (1*1 + 2*2 + 3*3) / (1+2+3) = 14/6, not the plain
	// unweighted mean of 2.0.
	assert.InDelta(t, 14.0/6.0, s.Mean, 1e-9)
}

func TestFocalityThresholdsAreMonotonic(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	s := Compute(values, 1.0)
	assert.GreaterOrEqual(t, s.Focality75, 0.0)
	assert.GreaterOrEqual(t, s.Focality50, s.Focality75)
}

func TestComputeSingleValueHasZeroStdDev(t *testing.T) {
	s := Compute([]float64{7}, 1.0)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 0.0, s.Std)
}
